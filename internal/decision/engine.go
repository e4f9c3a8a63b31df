package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"voice-runtime/internal/callstate"
	"voice-runtime/internal/cardhealth"
	"voice-runtime/internal/emotion"
	"voice-runtime/internal/llm"
	"voice-runtime/internal/loopdetect"
	"voice-runtime/internal/tenant"
	"voice-runtime/pkg/logger"
)

// BypassConfidence is the minimum card-match confidence for skipping
// the language model. Confidence alone is not enough: the card must
// also be structurally healthy and the call must not be looping.
const BypassConfidence = 0.92

// Engine is "Brain-1": it turns one utterance into a Decision.
//
// Order of attempts:
//  1. quick deterministic rules (no model call)
//  2. fast triage-card matching with a guarded bypass
//  3. language-model call behind the circuit breaker
//  4. rule-based fallback decision
//
// The engine has no side effects; all call-state mutation happens in
// the runtime orchestrator.
type Engine struct {
	llm   llm.Client
	loops *loopdetect.Detector
}

func NewEngine(client llm.Client, loops *loopdetect.Detector) *Engine {
	return &Engine{llm: client, loops: loops}
}

type Input struct {
	CallID     string
	Text       string // display text
	Normalized string
	State      callstate.CallState
	Config     tenant.RuntimeConfig
	Emotion    emotion.Detection
}

// Decide always returns a valid Decision; errors are absorbed into the
// fallback path.
func (e *Engine) Decide(ctx context.Context, in Input) Decision {
	extracted := extractEntities(in.Text, in.Normalized)

	if d, ok := quickDecision(in); ok {
		d.Entities = extracted.Merge(d.Entities)
		return d
	}

	// An active booking stays in the booking flow; the utterance is the
	// answer to whichever slot was just asked for.
	if in.State.Booking.Active && !in.State.Booking.Confirmed {
		return bookingContinuation(in, extracted)
	}

	matches := MatchCards(in.Normalized, in.Config)
	if len(matches) > 0 {
		best := matches[0]
		looping := e.loops != nil && e.loops.Check(in.CallID, "").IsLooping
		healthy := cardhealth.Score(best.Card).Healthy()
		if best.Confidence >= BypassConfidence && healthy && !looping {
			d := Decision{
				Action:          routingToAction(best.Card.Routing),
				TriageTag:       tenant.Tag(best.Card.Name),
				IntentTag:       tenant.Tag(best.Card.Name),
				Confidence:      best.Confidence,
				Reasoning:       fmt.Sprintf("card %q matched (%d triggers, %d synonyms)", best.Card.Name, best.TriggerHits, best.SynonymHits),
				Entities:        extracted,
				MatchedCardID:   best.Card.ID,
				MatchedCardName: best.Card.Name,
				Source:          SourceCardMatch,
			}
			return d
		}
	}

	d, err := e.llmDecision(ctx, in, matches)
	if err != nil {
		logger.From(ctx).Warn("decision falling back", "call_id", in.CallID, "err", err)
		return fallbackDecision(extracted)
	}
	d.Entities = extracted.Merge(d.Entities)
	return d
}

// quickDecision handles the deterministic shortcuts that never need a
// model: explicit emergencies, wrong number / spam, and a frustrated
// caller asking for a human.
func quickDecision(in Input) (Decision, bool) {
	text := in.Normalized

	if containsAny(text, emergencyPhrases) {
		return Decision{
			Action:     ActionTransfer,
			TriageTag:  "emergency",
			IntentTag:  "emergency",
			Confidence: 0.98,
			Reasoning:  "explicit emergency phrase",
			Flags:      callstate.Flags{IsEmergency: true},
			Source:     SourceQuickRule,
		}, true
	}

	if containsAny(text, wrongNumberPhrases) {
		return Decision{
			Action:     ActionEnd,
			IntentTag:  "wrong-number",
			Confidence: 0.97,
			Reasoning:  "caller indicated wrong number",
			Flags:      callstate.Flags{IsWrongNumber: true},
			Source:     SourceQuickRule,
		}, true
	}
	if containsAny(text, spamPhrases) {
		return Decision{
			Action:     ActionEnd,
			IntentTag:  "spam",
			Confidence: 0.97,
			Reasoning:  "caller asked to stop calling",
			Flags:      callstate.Flags{IsSpam: true},
			Source:     SourceQuickRule,
		}, true
	}

	wantsHuman := containsAny(text, humanPhrases)
	if wantsHuman && (in.Emotion.Frustrated || in.State.Flags.IsFrustrated) {
		return Decision{
			Action:     ActionTransfer,
			IntentTag:  "wants-human",
			Confidence: 0.95,
			Reasoning:  "frustrated caller requesting a human",
			Flags:      callstate.Flags{IsFrustrated: true, WantsHuman: true},
			Source:     SourceQuickRule,
		}, true
	}

	return Decision{}, false
}

var emergencyPhrases = []string{
	"it's an emergency", "this is an emergency", "an emergency",
	"call 911", "someone is hurt", "house is flooding", "smell gas",
	"gas leak", "smoke coming",
}

var wrongNumberPhrases = []string{
	"wrong number", "didn't mean to call", "meant to call someone else",
	"who is this", "i misdialed",
}

var spamPhrases = []string{
	"stop calling", "take me off your list", "do not call me",
	"unsubscribe",
}

var humanPhrases = []string{
	"real person", "speak to a person", "speak to a human",
	"talk to a human", "talk to someone", "a representative",
	"your manager", "an actual person", "speak with someone",
}

func containsAny(normalized string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(normalized, p) {
			return true
		}
	}
	return false
}

// fallbackDecision is the pinned answer used whenever the model is
// unavailable: ask a follow-up, low confidence, flagged for a deeper
// lookup by the scenario engine.
func fallbackDecision(entities callstate.Entities) Decision {
	return Decision{
		Action:            ActionAskFollowup,
		Confidence:        0.3,
		Reasoning:         "language model unavailable; rule-based fallback",
		Entities:          entities,
		NeedsDeeperLookup: true,
		Source:            SourceFallback,
	}
}

// bookingContinuation keeps an in-progress booking on its rails and
// fills the slot the caller was just asked about. Regex extraction has
// already had its chance; free-text slots take the whole utterance.
func bookingContinuation(in Input, extracted callstate.Entities) Decision {
	d := Decision{
		Action:     ActionBook,
		TriageTag:  in.State.CurrentIntent,
		IntentTag:  in.State.CurrentIntent,
		Confidence: 0.9,
		Reasoning:  "booking in progress",
		Entities:   extracted,
		Source:     SourceQuickRule,
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		return d
	}
	switch {
	case in.State.Entities.Name == "":
		d.Entities.Name = cleanName(text)
	case in.State.Entities.Phone == "":
		// Phone only comes from the regex; never stuff free text here.
	case in.State.Entities.Address == "":
		d.Entities.Address = text
	case in.State.Entities.PreferredTime == "":
		d.Entities.PreferredTime = text
	}
	return d
}

var namePrefixes = []string{
	"it's ", "its ", "my name is ", "this is ", "i'm ", "im ", "name is ",
}

func cleanName(text string) string {
	lower := strings.ToLower(text)
	for _, p := range namePrefixes {
		if strings.HasPrefix(lower, p) {
			return strings.TrimSpace(text[len(p):])
		}
	}
	return text
}

func routingToAction(r tenant.Routing) Action {
	switch r {
	case tenant.RoutingBook:
		return ActionBook
	case tenant.RoutingTransfer:
		return ActionTransfer
	case tenant.RoutingScenario:
		return ActionRouteToScenario
	case tenant.RoutingMessage:
		return ActionMessageOnly
	default:
		return ActionAskFollowup
	}
}

var (
	phoneRe = regexp.MustCompile(`\+?\d[\d\-\s().]{6,}\d`)
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// extractEntities pulls structured facts a regex can find reliably.
// Names, addresses and problems come from the model; phone and email
// never need one.
func extractEntities(text, normalized string) callstate.Entities {
	var e callstate.Entities
	if m := phoneRe.FindString(text); m != "" {
		e.Phone = strings.TrimSpace(m)
	}
	if m := emailRe.FindString(text); m != "" {
		e.Email = m
	}
	_ = normalized
	return e
}

// llmTimeout bounds the decision call; the orchestrator's own deadline
// still applies on top.
const llmTimeout = 5 * time.Second

func (e *Engine) llmDecision(ctx context.Context, in Input, matches []CardMatch) (Decision, error) {
	if e.llm == nil {
		return Decision{}, fmt.Errorf("decision: no llm client configured")
	}

	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	resp, err := e.llm.Complete(ctx, llm.Request{
		System: decisionSystemPrompt(in.Config),
		Prompt: decisionUserPrompt(in, matches),
	})
	if err != nil {
		return Decision{}, err
	}
	return parseDecision(resp.Text, in.Config)
}

// decisionSystemPrompt is built entirely from per-tenant data; no
// business logic is embedded here.
func decisionSystemPrompt(cfg tenant.RuntimeConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the intake decision layer for %s, a %s company.\n", cfg.Name, cfg.Trade)
	b.WriteString("Classify the caller's latest utterance into exactly one action:\n")
	b.WriteString("ROUTE_TO_SCENARIO, TRANSFER, BOOK, ASK_FOLLOWUP, MESSAGE_ONLY, ROUTE_TO_VENDOR, END.\n")
	b.WriteString("Respond with a single JSON object:\n")
	b.WriteString(`{"action":"...","triage_tag":"...","intent_tag":"...","confidence":0.0,"reasoning":"...",` + "\n")
	b.WriteString(`"entities":{"name":"","phone":"","email":"","address":"","problem":"","preferred_time":""},` + "\n")
	b.WriteString(`"flags":{"is_emergency":false,"is_frustrated":false,"is_vendor":false,"wants_human":false}}` + "\n")
	fmt.Fprintf(&b, "triage_tag must be one of: %s.\n", strings.Join(cfg.TriageTags(), ", "))
	if len(cfg.ServiceTypes) > 0 {
		fmt.Fprintf(&b, "Services offered: %s.\n", strings.Join(cfg.ServiceTypes, ", "))
	}
	b.WriteString("Leave entity fields empty unless the caller stated them this turn.")
	return b.String()
}

func decisionUserPrompt(in Input, matches []CardMatch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Caller said: %q\n", in.Text)
	fmt.Fprintf(&b, "Turn number: %d\n", in.State.TurnCount+1)
	if in.Emotion.Primary != "" {
		fmt.Fprintf(&b, "Detected emotion: %s (intensity %.2f)\n", in.Emotion.Primary, in.Emotion.Intensity)
	}
	if in.State.CurrentIntent != "" {
		fmt.Fprintf(&b, "Current intent: %s\n", in.State.CurrentIntent)
	}
	if in.State.Entities.Problem != "" {
		fmt.Fprintf(&b, "Known problem: %s\n", in.State.Entities.Problem)
	}
	if len(matches) > 0 {
		fmt.Fprintf(&b, "Closest configured topic: %q (confidence %.2f)\n", matches[0].Card.Name, matches[0].Confidence)
	}
	if n := len(in.State.History); n > 0 {
		b.WriteString("Recent turns:\n")
		start := n - 4
		if start < 0 {
			start = 0
		}
		for _, rec := range in.State.History[start:] {
			fmt.Fprintf(&b, "- %s: %s\n", rec.Speaker, rec.Text)
		}
	}
	return b.String()
}

// llmDecisionPayload mirrors the JSON contract in the system prompt.
type llmDecisionPayload struct {
	Action     string             `json:"action"`
	TriageTag  string             `json:"triage_tag"`
	IntentTag  string             `json:"intent_tag"`
	Confidence float64            `json:"confidence"`
	Reasoning  string             `json:"reasoning"`
	Entities   callstate.Entities `json:"entities"`
	Flags      callstate.Flags    `json:"flags"`
}

func parseDecision(raw string, cfg tenant.RuntimeConfig) (Decision, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Decision{}, fmt.Errorf("decision: no JSON object in model output")
	}

	var p llmDecisionPayload
	if err := json.Unmarshal([]byte(raw[start:end+1]), &p); err != nil {
		return Decision{}, fmt.Errorf("decision: parse model output: %w", err)
	}

	d := Decision{
		Action:     NormalizeAction(strings.ToUpper(strings.TrimSpace(p.Action))),
		TriageTag:  validateTag(p.TriageTag, cfg),
		IntentTag:  strings.TrimSpace(p.IntentTag),
		Confidence: clamp01(p.Confidence),
		Reasoning:  p.Reasoning,
		Entities:   p.Entities,
		Flags:      p.Flags,
		Source:     SourceLLM,
	}
	return d, nil
}

// validateTag keeps the tag inside the tenant's vocabulary. An unknown
// tag would otherwise leak model invention into triage.
func validateTag(tag string, cfg tenant.RuntimeConfig) string {
	t := tenant.Tag(tag)
	if t == "" {
		return ""
	}
	for _, known := range cfg.TriageTags() {
		if t == known {
			return t
		}
	}
	return "other"
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
