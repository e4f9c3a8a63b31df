// Package runtime orchestrates one caller turn end to end: preprocess,
// emotion, decision, triage, handler, response construction, guardrails,
// validation, and the fallback ladder. Its contract is absolute: every
// call returns non-empty text and a coherent action, no matter which
// stage failed.
package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"voice-runtime/internal/callstate"
	"voice-runtime/internal/clarify"
	"voice-runtime/internal/decision"
	"voice-runtime/internal/emotion"
	"voice-runtime/internal/handlers"
	"voice-runtime/internal/loopdetect"
	"voice-runtime/internal/metrics"
	"voice-runtime/internal/preprocess"
	"voice-runtime/internal/respond"
	"voice-runtime/internal/tenant"
	"voice-runtime/internal/trace"
	"voice-runtime/internal/triage"
	"voice-runtime/internal/validate"
	"voice-runtime/pkg/logger"
)

// Bailout texts. These are the last words the runtime can always say;
// they must never be empty and never promise specifics.
const (
	hardBailoutText = "I want to make sure you get the help you need. Let me connect you with one of our team members."
	hangupBailText  = "Thanks so much for calling. We'll follow up with you shortly. Goodbye!"
	softBailoutText = "Sorry, I didn't get that quite right. Could you tell me a bit more about what you need?"
)

// TurnRequest is one caller utterance to process.
type TurnRequest struct {
	CallID      string
	WorkspaceID string
	Text        string
}

// TurnResult is the contract with the transport layer: Text is always
// non-empty and Action always one of the closed set.
type TurnResult struct {
	Text           string              `json:"text"`
	Action         handlers.TurnAction `json:"action"`
	ShouldTransfer bool                `json:"should_transfer"`
	ShouldHangup   bool                `json:"should_hangup"`
	State          callstate.CallState `json:"call_state"`
}

// Options are tunables; zero values take defaults.
type Options struct {
	MaxTurnHistory    int
	LateTurnThreshold int
}

func (o Options) withDefaults() Options {
	if o.MaxTurnHistory <= 0 {
		o.MaxTurnHistory = 10
	}
	if o.LateTurnThreshold <= 0 {
		o.LateTurnThreshold = 3
	}
	return o
}

// Deps wires the pipeline. Store, Tenants, Engine, and Handlers are
// required; the rest degrade gracefully when nil.
type Deps struct {
	Store     callstate.Store
	Tenants   tenant.Provider
	Engine    *decision.Engine
	Handlers  *handlers.Registry
	Builder   respond.Constructor
	Clarifier *clarify.Clarifier
	Loops     *loopdetect.Detector

	Traces   *trace.Writer
	Enricher callstate.Enricher
	Metrics  *metrics.Metrics
}

type Runtime struct {
	deps  Deps
	opts  Options
	clock func() time.Time
}

func New(deps Deps, opts Options) (*Runtime, error) {
	if deps.Store == nil || deps.Tenants == nil || deps.Engine == nil || deps.Handlers == nil {
		return nil, errors.New("runtime: store, tenants, engine and handlers are required")
	}
	if deps.Builder == nil {
		deps.Builder = respond.NewSimpleConstructor()
	}
	if deps.Loops == nil {
		deps.Loops = loopdetect.NewDetector(0)
	}
	return &Runtime{deps: deps, opts: opts.withDefaults(), clock: time.Now}, nil
}

// WithClock overrides time for tests.
func (r *Runtime) WithClock(clock func() time.Time) *Runtime {
	r.clock = clock
	return r
}

// ProcessTurn runs the full pipeline for one utterance. It never
// returns an error and never returns empty text: any failure collapses
// into the bailout ladder instead.
func (r *Runtime) ProcessTurn(ctx context.Context, req TurnRequest) (res TurnResult) {
	log := logger.From(ctx).With("call_id", req.CallID, "workspace_id", req.WorkspaceID)
	start := r.clock()
	timings := make(map[string]int64)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("turn panicked", "panic", fmt.Sprint(rec))
			r.countBailout("hard")
			res = TurnResult{
				Text:           hardBailoutText,
				Action:         handlers.ActionTransfer,
				ShouldTransfer: true,
				State:          callstate.CallState{CallID: req.CallID, WorkspaceID: req.WorkspaceID},
			}
		}
	}()

	// Stage 1: preprocess.
	t0 := r.clock()
	pre := preprocess.Clean(req.Text)
	timings["preprocess"] = r.clock().Sub(t0).Milliseconds()

	// Stage 2: session state. A missing or unreadable record starts a
	// fresh call rather than failing the turn.
	st, err := r.deps.Store.Load(ctx, req.CallID)
	if err != nil {
		if !errors.Is(err, callstate.ErrNotFound) {
			log.Warn("call state load failed, starting fresh", "err", err)
		}
		st = callstate.CallState{CallID: req.CallID, WorkspaceID: req.WorkspaceID}
	}
	turn := st.TurnCount + 1

	// Stage 3: emotion.
	t0 = r.clock()
	emo := emotion.Detect(pre.Normalized, st.History)
	timings["emotion"] = r.clock().Sub(t0).Milliseconds()

	// Stage 4: tenant config. Without it the pipeline still runs; every
	// downstream stage tolerates an empty config.
	cfg, err := r.deps.Tenants.LoadRuntimeConfig(ctx, req.WorkspaceID)
	if err != nil {
		log.Warn("tenant config unavailable", "err", err)
		cfg = tenant.RuntimeConfig{CompanyID: req.WorkspaceID}
	}

	// Stage 5: style analysis runs beside the decision; it only shapes
	// tone, so a panic there degrades to the previous style.
	styleCh := make(chan callstate.Style, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				log.Warn("style analysis panicked", "panic", fmt.Sprint(rec))
				styleCh <- st.Style
			}
		}()
		styleCh <- emotion.AnalyzeStyle(st.Style, emo)
	}()

	t0 = r.clock()
	dec := r.deps.Engine.Decide(ctx, decision.Input{
		CallID:     req.CallID,
		Text:       pre.Text,
		Normalized: pre.Normalized,
		State:      st,
		Config:     cfg,
		Emotion:    emo,
	})
	timings["decide"] = r.clock().Sub(t0).Milliseconds()
	r.countDecision(dec)

	style := <-styleCh

	// Stage 6: triage and the route handler.
	tri := triage.RouteDecision(dec, cfg)

	t0 = r.clock()
	hres := r.deps.Handlers.Dispatch(ctx, tri.Route, handlers.Input{
		CallID:      req.CallID,
		WorkspaceID: req.WorkspaceID,
		Text:        pre.Text,
		Normalized:  pre.Normalized,
		State:       st,
		Config:      cfg,
		Decision:    dec,
		Triage:      tri,
	})
	timings["handle"] = r.clock().Sub(t0).Milliseconds()

	// Stage 7: construct, guard, substitute.
	t0 = r.clock()
	firstForScenario := tri.MatchedCardID != "" && st.CurrentIntent != dec.TriageTag
	built, err := r.deps.Builder.BuildFinalResponse(ctx, respond.BuildInput{
		Style:                  style,
		Triage:                 tri,
		Content:                hres.Text,
		IsFirstTurnForScenario: firstForScenario,
	})
	if err != nil {
		log.Warn("response construction failed, using simple path", "err", err)
		built = r.deps.Builder.BuildSimpleResponse(ctx, hres.Text, "handler")
	}
	text := respond.ApplyGuardrails(built.Text, cfg.Settings)
	text = respond.Substitute(text, respond.Vars(hres.State, cfg))
	timings["build"] = r.clock().Sub(t0).Milliseconds()

	action := hres.Action
	shouldTransfer := hres.ShouldTransfer
	shouldHangup := hres.ShouldHangup
	bailoutReason := ""

	// Stage 8: validation and the fallback ladder.
	t0 = r.clock()
	v := validate.New(r.deps.Loops, r.lateTurnThreshold(cfg))
	check := v.Validate(text, req.CallID, turn)
	if !check.Usable && check.Reason == validate.ReasonLateTurn && action == handlers.ActionHangup {
		// Wrap-up phrasing is a dead end only when the call goes on; a
		// goodbye on a hangup turn is the point of the turn.
		check = validate.Result{Usable: true}
	}
	if !check.Usable {
		log.Info("response rejected", "reason", check.Reason, "turn", turn)
		bailoutReason = check.Reason
		if validate.IsHardFailure(check.Reason) {
			// Loops and dead ends do not get retried; the caller goes
			// to a human (or the call ends, if it already was ending).
			text, action, shouldTransfer, shouldHangup = r.hardBailout(action)
			r.countBailout("hard")
		} else {
			cl := r.clarify(ctx, req, pre.Text, &cfg, turn)
			if cl.Success && v.Validate(cl.Text, req.CallID, turn).Usable {
				text = cl.Text
			} else {
				text = softBailoutText
			}
			action = handlers.ActionContinue
			shouldTransfer, shouldHangup = false, false
			r.countBailout("soft")
		}
	}
	timings["validate"] = r.clock().Sub(t0).Milliseconds()

	// Final gate. Nothing past this line may empty the text.
	if strings.TrimSpace(text) == "" {
		text = hardBailoutText
		action = handlers.ActionTransfer
		shouldTransfer, shouldHangup = true, false
		bailoutReason = "final_gate"
		r.countBailout("final_gate")
	}

	// Stage 9: persist state and bookkeeping. All best-effort.
	now := r.clock().UTC()
	newState := r.advanceState(st, hres, dec, emo, style, req, pre, text, string(action), now)
	if err := r.deps.Store.Save(ctx, newState); err != nil {
		log.Warn("call state save failed", "err", err)
	}
	r.deps.Loops.Record(req.CallID, text)
	if action == handlers.ActionHangup {
		r.deps.Loops.Forget(req.CallID)
	}

	if r.deps.Enricher != nil && dec.Entities.HasContact() {
		if err := r.deps.Enricher.EnrichCustomer(ctx, req.WorkspaceID, req.CallID, newState.Entities); err != nil {
			log.Warn("customer enrichment failed", "err", err)
		}
	}

	r.submitTrace(req, pre, emo, dec, tri, text, string(action), bailoutReason, turn, timings, start)
	r.countTurn(string(action), string(tri.Route), r.clock().Sub(start))

	return TurnResult{
		Text:           text,
		Action:         action,
		ShouldTransfer: shouldTransfer,
		ShouldHangup:   shouldHangup,
		State:          newState,
	}
}

// hardBailout keeps the bailout aligned with what the handler already
// decided: a call that was ending still ends, everything else goes to a
// human.
func (r *Runtime) hardBailout(prior handlers.TurnAction) (string, handlers.TurnAction, bool, bool) {
	if prior == handlers.ActionHangup {
		return hangupBailText, handlers.ActionHangup, false, true
	}
	return hardBailoutText, handlers.ActionTransfer, true, false
}

func (r *Runtime) clarify(ctx context.Context, req TurnRequest, userText string, cfg *tenant.RuntimeConfig, turn int) clarify.Result {
	if r.deps.Clarifier == nil {
		return clarify.Result{}
	}
	res := r.deps.Clarifier.Clarify(ctx, userText, cfg, req.CallID, turn)
	if res.Success && r.deps.Metrics != nil {
		r.deps.Metrics.ClarifierUsed.WithLabelValues(res.Source).Inc()
	}
	return res
}

func (r *Runtime) lateTurnThreshold(cfg tenant.RuntimeConfig) int {
	if cfg.Settings.LateTurnThreshold > 0 {
		return cfg.Settings.LateTurnThreshold
	}
	return r.opts.LateTurnThreshold
}

// advanceState folds this turn's outcome into the carried call state.
func (r *Runtime) advanceState(st callstate.CallState, hres handlers.Result, dec decision.Decision, emo emotion.Detection, style callstate.Style, req TurnRequest, pre preprocess.Result, finalText, action string, now time.Time) callstate.CallState {
	// Handler-side updates (booking progress, vendor flag) win as the base.
	ns := hres.State
	ns.CallID = req.CallID
	ns.WorkspaceID = req.WorkspaceID
	ns.TurnCount = st.TurnCount + 1
	if dec.TriageTag != "" && dec.TriageTag != ns.CurrentIntent {
		ns.LastIntent = ns.CurrentIntent
		ns.CurrentIntent = dec.TriageTag
	}
	ns.Emotion = emo.Snapshot()
	ns.Style = style
	ns.Entities = ns.Entities.Merge(dec.Entities)
	ns.Flags = ns.Flags.Merge(dec.Flags)
	ns.AppendTurn(callstate.TurnRecord{
		Speaker:   callstate.SpeakerCaller,
		Text:      pre.Text,
		Emotion:   emo.Primary,
		Timestamp: now,
	}, r.opts.MaxTurnHistory)
	ns.AppendTurn(callstate.TurnRecord{
		Speaker:   callstate.SpeakerAgent,
		Text:      finalText,
		Action:    action,
		Timestamp: now,
	}, r.opts.MaxTurnHistory)
	ns.UpdatedAt = now
	return ns
}

func (r *Runtime) submitTrace(req TurnRequest, pre preprocess.Result, emo emotion.Detection, dec decision.Decision, tri triage.Result, text, action, bailoutReason string, turn int, timings map[string]int64, start time.Time) {
	if r.deps.Traces == nil {
		return
	}
	tj, _ := json.Marshal(timings)
	r.deps.Traces.Submit(trace.Record{
		WorkspaceID:      req.WorkspaceID,
		CallID:           req.CallID,
		TurnNumber:       turn,
		RawInput:         req.Text,
		NormalizedInput:  pre.Normalized,
		Emotion:          emo.Primary,
		EmotionIntensity: emo.Intensity,
		Action:           string(dec.Action),
		Confidence:       dec.Confidence,
		DecisionSource:   string(dec.Source),
		Route:            string(tri.Route),
		MatchedCardID:    tri.MatchedCardID,
		ResponseText:     text,
		ResponseAction:   action,
		BailedOut:        bailoutReason != "",
		BailoutReason:    bailoutReason,
		Timings:          string(tj),
		TotalMs:          r.clock().Sub(start).Milliseconds(),
	})
}

func (r *Runtime) countDecision(d decision.Decision) {
	if r.deps.Metrics == nil {
		return
	}
	r.deps.Metrics.DecisionSource.WithLabelValues(string(d.Source)).Inc()
	if d.Source == decision.SourceFallback {
		r.deps.Metrics.LLMFallbacks.Inc()
	}
}

func (r *Runtime) countBailout(kind string) {
	if r.deps.Metrics != nil {
		r.deps.Metrics.Bailouts.WithLabelValues(kind).Inc()
	}
}

func (r *Runtime) countTurn(action, route string, d time.Duration) {
	if r.deps.Metrics == nil {
		return
	}
	r.deps.Metrics.TurnsTotal.WithLabelValues(action).Inc()
	r.deps.Metrics.TurnDuration.WithLabelValues(route).Observe(d.Seconds())
}
