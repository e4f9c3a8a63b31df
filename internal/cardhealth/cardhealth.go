// Package cardhealth scores the structural completeness of a triage
// card. The score gates the fast-path bypass of the decision engine
// and nothing else; a shallow card is still usable through the normal
// path.
package cardhealth

import (
	"strings"

	"voice-runtime/internal/tenant"
)

// HealthyThreshold is the minimum score for a card to be trusted with
// a decision-engine bypass.
const HealthyThreshold = 2

type Health struct {
	Score   int
	Reasons []string
}

func (h Health) Healthy() bool {
	return h.Score >= HealthyThreshold
}

// genericWords are one-word triggers too vague to count as specific.
// A card whose only trigger is one of these would fire on half of all
// utterances.
var genericWords = map[string]bool{
	"help":     true,
	"problem":  true,
	"issue":    true,
	"service":  true,
	"question": true,
	"broken":   true,
	"info":     true,
	"call":     true,
}

// Score computes a fresh health score from the card structure alone.
// Nothing here is persisted.
func Score(card tenant.Card) Health {
	var h Health

	opening := strings.TrimSpace(card.OpeningLine)
	switch {
	case len(opening) >= 100:
		h.Score += 2
		h.Reasons = append(h.Reasons, "substantive opening line")
	case len(opening) >= 20:
		h.Score++
		h.Reasons = append(h.Reasons, "has opening line")
	default:
		h.Reasons = append(h.Reasons, "opening line missing or trivial")
	}

	// Follow-ups are what keep a conversation moving; weight them
	// heavily.
	if len(card.FollowUpQuestions) > 0 || len(card.Steps) > 0 {
		h.Score += 2
		h.Reasons = append(h.Reasons, "has follow-up questions or steps")
	} else {
		h.Reasons = append(h.Reasons, "no follow-up questions or steps")
	}

	if strings.TrimSpace(card.NextAction) != "" {
		h.Score++
		h.Reasons = append(h.Reasons, "defined next action")
	} else {
		h.Reasons = append(h.Reasons, "no defined next action")
	}

	specific := 0
	for _, t := range card.Triggers {
		words := strings.Fields(strings.ToLower(strings.TrimSpace(t)))
		if len(words) == 0 {
			continue
		}
		if len(words) > 1 || !genericWords[words[0]] {
			specific++
		}
	}
	switch {
	case specific >= 2:
		h.Score++
		h.Reasons = append(h.Reasons, "multiple specific triggers")
	case len(card.Triggers) == 1 && specific == 0:
		h.Score--
		h.Reasons = append(h.Reasons, "single generic trigger")
	}

	if h.Score < 0 {
		h.Score = 0
	}
	return h
}
