// Package clarify produces a tailored clarifying question when the
// normal pipeline could not land a usable response. It prefers a model
// call bounded by a hard timeout, and falls back to trade-specific rule
// templates so it can always answer without one.
package clarify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voice-runtime/internal/llm"
	"voice-runtime/internal/tenant"
	"voice-runtime/pkg/logger"
)

const (
	SourceLLM  = "llm"
	SourceRule = "rule"

	defaultTimeout = 3 * time.Second
	maxTokens      = 150
)

type Result struct {
	Text    string
	Source  string
	Success bool
}

// Clarifier asks a short, business-specific question back to the caller.
type Clarifier struct {
	llm     llm.Client
	timeout time.Duration
}

func New(client llm.Client, timeout time.Duration) *Clarifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Clarifier{llm: client, timeout: timeout}
}

// Clarify returns a question to move the call forward. Success is false
// only when the rule fallback also produced nothing, which cannot
// happen with a non-nil config; callers can rely on Text being set.
func (c *Clarifier) Clarify(ctx context.Context, userText string, cfg *tenant.RuntimeConfig, callID string, turn int) Result {
	if c.llm != nil && cfg != nil {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.llm.Complete(ctx, llm.Request{
			System:    systemPrompt(cfg),
			Prompt:    userPrompt(userText, turn),
			MaxTokens: maxTokens,
		})
		if err == nil {
			if text := sanitize(resp.Text); text != "" {
				return Result{Text: text, Source: SourceLLM, Success: true}
			}
		} else {
			logger.From(ctx).Warn("clarifier llm unavailable, using rules",
				"call_id", callID, "error", err)
		}
	}

	if text := ruleClarification(userText, cfg); text != "" {
		return Result{Text: text, Source: SourceRule, Success: true}
	}
	return Result{}
}

func systemPrompt(cfg *tenant.RuntimeConfig) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You answer phones for %s, a %s business.\n", cfg.Name, cfg.Trade)
	if len(cfg.ServiceTypes) > 0 {
		fmt.Fprintf(&b, "Services offered: %s.\n", strings.Join(cfg.ServiceTypes, ", "))
	}
	b.WriteString("The caller said something you need clarified. ")
	b.WriteString("Ask ONE short, specific question about their situation. ")
	b.WriteString("Never say 'how can I help you', 'anything else', or other generic receptionist phrases. ")
	b.WriteString("Reply with the question only, no preamble.")
	return b.String()
}

func userPrompt(userText string, turn int) string {
	return fmt.Sprintf("Caller (turn %d): %q\n\nYour clarifying question:", turn, userText)
}

// sanitize strips quotes and keeps only the first line of model output.
func sanitize(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.Trim(text, `"'`)
	if len(text) > 300 {
		return ""
	}
	return strings.TrimSpace(text)
}

// ruleClarification picks a template keyed on what the caller mentioned.
// Every template grounds itself in the tenant's trade so the question
// never sounds canned.
func ruleClarification(userText string, cfg *tenant.RuntimeConfig) string {
	trade := "service"
	if cfg != nil && cfg.Trade != "" {
		trade = strings.ToLower(cfg.Trade)
	}
	lower := strings.ToLower(userText)

	switch {
	case containsAny(lower, "urgent", "emergency", "right now", "asap"):
		return fmt.Sprintf("I want to make sure we get the right %s help to you quickly. What exactly is happening right now?", trade)
	case containsAny(lower, "broken", "broke", "not working", "stopped", "problem", "issue"):
		return fmt.Sprintf("So I can get the right %s technician lined up, can you describe what's not working?", trade)
	case containsAny(lower, "appointment", "schedule", "book", "come out", "visit"):
		return fmt.Sprintf("Happy to get a %s visit scheduled. What day and time usually works best for you?", trade)
	case containsAny(lower, "price", "cost", "quote", "estimate", "charge"):
		return fmt.Sprintf("I can help with that. What kind of %s work are you looking to have done?", trade)
	case containsAny(lower, "service", "maintenance", "tune", "check"):
		return fmt.Sprintf("Sure. Is this for routine %s maintenance, or is something acting up?", trade)
	default:
		return fmt.Sprintf("Just so I point you to the right person, could you tell me a little more about what %s help you need?", trade)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
