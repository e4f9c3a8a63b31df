package cardhealth

import (
	"testing"

	"voice-runtime/internal/tenant"
)

func TestScore_ShallowCardIsUnhealthy(t *testing.T) {
	card := tenant.Card{
		Name:        "No Cool",
		OpeningLine: "Sorry to hear that, let's take a look.",
		Triggers:    []string{"no cool"},
	}
	h := Score(card)
	if h.Score != 1 {
		t.Fatalf("expected score 1, got %d (%v)", h.Score, h.Reasons)
	}
	if h.Healthy() {
		t.Fatalf("card without questions/steps/action must not be healthy")
	}
}

func TestScore_CompleteCardIsHealthy(t *testing.T) {
	card := tenant.Card{
		Name:              "No Cool",
		OpeningLine:       "Sorry to hear your system isn't cooling. Let me get a few details.",
		Triggers:          []string{"no cool", "not cooling"},
		FollowUpQuestions: []string{"Is the unit running at all?"},
		NextAction:        "booking",
	}
	h := Score(card)
	if h.Score < 4 {
		t.Fatalf("expected score >= 4, got %d (%v)", h.Score, h.Reasons)
	}
	if !h.Healthy() {
		t.Fatalf("expected healthy")
	}
}

func TestScore_SingleGenericTriggerPenalized(t *testing.T) {
	card := tenant.Card{
		Name:        "Catch All",
		OpeningLine: "ok",
		Triggers:    []string{"help"},
	}
	h := Score(card)
	if h.Score != 0 {
		t.Fatalf("expected floor at 0, got %d (%v)", h.Score, h.Reasons)
	}
}

func TestScore_LongOpeningLineRewardedTwice(t *testing.T) {
	long := make([]byte, 120)
	for i := range long {
		long[i] = 'a'
	}
	card := tenant.Card{Name: "Verbose", OpeningLine: string(long)}
	h := Score(card)
	if h.Score != 2 {
		t.Fatalf("expected score 2 for long opening alone, got %d", h.Score)
	}
}
