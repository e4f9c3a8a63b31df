package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-runtime/internal/callstate"
	"voice-runtime/internal/emotion"
	"voice-runtime/internal/llm"
	"voice-runtime/internal/loopdetect"
	"voice-runtime/internal/tenant"
)

func healthyCard() tenant.Card {
	return tenant.Card{
		ID:      "card-1",
		Name:    "No Cool",
		Enabled: true,
		Triggers: []string{
			"no cool", "not cooling", "stopped working",
		},
		Synonyms:          []string{"blowing warm air"},
		Routing:           tenant.RoutingBook,
		OpeningLine:       "Sorry to hear the system isn't cooling. Let me grab a few details so we can get someone out.",
		FollowUpQuestions: []string{"Is the unit running at all?"},
		NextAction:        "booking",
	}
}

func testConfig(cards ...tenant.Card) tenant.RuntimeConfig {
	return tenant.RuntimeConfig{
		CompanyID:    "co-1",
		Name:         "Acme Comfort",
		Trade:        "HVAC",
		ServiceTypes: []string{"repair", "maintenance"},
		Cards:        cards,
	}
}

func TestNormalizeAction_UnknownBecomesFollowup(t *testing.T) {
	if got := NormalizeAction("DO_A_BARREL_ROLL"); got != ActionAskFollowup {
		t.Fatalf("got %v", got)
	}
	if got := NormalizeAction("TRANSFER"); got != ActionTransfer {
		t.Fatalf("got %v", got)
	}
}

func TestQuickRule_Emergency(t *testing.T) {
	e := NewEngine(&llm.StubClient{Err: errors.New("must not be called")}, nil)
	d := e.Decide(context.Background(), Input{
		CallID:     "c1",
		Text:       "I smell gas in the basement",
		Normalized: "i smell gas in the basement",
		Config:     testConfig(),
	})
	if d.Action != ActionTransfer || !d.Flags.IsEmergency {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.Source != SourceQuickRule {
		t.Fatalf("expected quick rule source, got %v", d.Source)
	}
}

func TestQuickRule_WrongNumberEnds(t *testing.T) {
	e := NewEngine(&llm.StubClient{Err: errors.New("must not be called")}, nil)
	d := e.Decide(context.Background(), Input{
		CallID:     "c1",
		Normalized: "sorry wrong number",
		Config:     testConfig(),
	})
	if d.Action != ActionEnd || !d.Flags.IsWrongNumber {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestQuickRule_FrustratedWantsHuman(t *testing.T) {
	e := NewEngine(&llm.StubClient{Err: errors.New("must not be called")}, nil)
	d := e.Decide(context.Background(), Input{
		CallID:     "c1",
		Normalized: "i want to speak to a real person",
		Emotion:    emotion.Detection{Frustrated: true},
		Config:     testConfig(),
	})
	if d.Action != ActionTransfer || !d.Flags.WantsHuman {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestCardBypass_HighConfidenceHealthyCard(t *testing.T) {
	stub := &llm.StubClient{Err: errors.New("must not be called")}
	e := NewEngine(stub, loopdetect.NewDetector(time.Minute))

	d := e.Decide(context.Background(), Input{
		CallID:     "c1",
		Text:       "My AC stopped working and it's not cooling at all",
		Normalized: "my ac stopped working and it's not cooling at all",
		Config:     testConfig(healthyCard()),
	})
	if d.Source != SourceCardMatch {
		t.Fatalf("expected bypass, got %+v", d)
	}
	if d.Action != ActionBook {
		t.Fatalf("expected BOOK per card routing, got %v", d.Action)
	}
	if d.MatchedCardID != "card-1" {
		t.Fatalf("expected card carry-through, got %+v", d)
	}
	if stub.Calls != 0 {
		t.Fatalf("bypass must not call the model")
	}
}

func TestCardBypass_UnhealthyCardFallsThrough(t *testing.T) {
	// High keyword confidence, but no questions/steps/action: the card
	// must not bypass even above the confidence floor.
	card := healthyCard()
	card.FollowUpQuestions = nil
	card.Steps = nil
	card.NextAction = ""
	card.OpeningLine = "ok"

	stub := &llm.StubClient{Err: errors.New("model down")}
	e := NewEngine(stub, loopdetect.NewDetector(time.Minute))

	d := e.Decide(context.Background(), Input{
		CallID:     "c1",
		Normalized: "my ac stopped working and it's not cooling at all",
		Config:     testConfig(card),
	})
	if stub.Calls != 1 {
		t.Fatalf("expected model consulted, calls=%d", stub.Calls)
	}
	if d.Source != SourceFallback {
		t.Fatalf("expected fallback with model down, got %+v", d)
	}
}

func TestCardBypass_LoopingCallFallsThrough(t *testing.T) {
	loops := loopdetect.NewDetector(time.Minute)
	loops.Record("c1", "same answer")
	loops.Record("c1", "same answer")

	stub := &llm.StubClient{Err: errors.New("model down")}
	e := NewEngine(stub, loops)

	d := e.Decide(context.Background(), Input{
		CallID:     "c1",
		Normalized: "my ac stopped working and it's not cooling at all",
		Config:     testConfig(healthyCard()),
	})
	if stub.Calls != 1 {
		t.Fatalf("looping call must not bypass, calls=%d", stub.Calls)
	}
	if d.Action != ActionAskFollowup {
		t.Fatalf("unexpected action: %v", d.Action)
	}
}

func TestFallback_ShapeIsPinned(t *testing.T) {
	e := NewEngine(&llm.StubClient{Err: errors.New("model down")}, nil)
	d := e.Decide(context.Background(), Input{
		CallID:     "c1",
		Normalized: "can you explain your maintenance plans",
		Config:     testConfig(),
	})
	if d.Action != ActionAskFollowup || d.Confidence != 0.3 || !d.NeedsDeeperLookup {
		t.Fatalf("unexpected fallback: %+v", d)
	}
}

func TestLLMDecision_ParsedAndValidated(t *testing.T) {
	stub := &llm.StubClient{Response: llm.Response{
		Text: `{"action":"book","triage_tag":"made-up-tag","intent_tag":"cooling","confidence":1.7,"reasoning":"r","entities":{"name":"Dana"},"flags":{}}`,
	}}
	e := NewEngine(stub, nil)
	d := e.Decide(context.Background(), Input{
		CallID:     "c1",
		Normalized: "something that matches no card",
		Config:     testConfig(healthyCard()),
	})
	// lowercase action is not a member of the enum
	if d.Action != ActionBook {
		t.Fatalf("expected normalized BOOK, got %v", d.Action)
	}
	if d.TriageTag != "other" {
		t.Fatalf("unknown tag must fold to other, got %q", d.TriageTag)
	}
	if d.Confidence != 1.0 {
		t.Fatalf("confidence must clamp to 1.0, got %v", d.Confidence)
	}
	if d.Entities.Name != "Dana" {
		t.Fatalf("expected entities carried, got %+v", d.Entities)
	}
}

func TestExtractEntities_PhoneAndEmail(t *testing.T) {
	e := extractEntities("call me at 555-010-9999 or mail dana@example.com", "")
	if e.Phone == "" || e.Email != "dana@example.com" {
		t.Fatalf("unexpected entities: %+v", e)
	}
}

func TestMatchCards_SynonymWeights(t *testing.T) {
	card := tenant.Card{
		ID: "c", Name: "Tune Up", Enabled: true,
		Triggers: []string{"tune up"},
		Synonyms: []string{"service", "annual maintenance"},
	}
	cfg := testConfig(card)

	// Single generic-word synonym alone is not eligible (needs 2 synonym hits).
	if got := MatchCards("i need service", cfg); len(got) != 0 {
		t.Fatalf("single synonym hit must not be eligible: %+v", got)
	}

	// Two synonym hits are eligible.
	got := MatchCards("i need service maybe annual maintenance", cfg)
	if len(got) != 1 {
		t.Fatalf("expected eligible match, got %+v", got)
	}
	if got[0].SynonymHits != 2 {
		t.Fatalf("expected 2 synonym hits, got %+v", got[0])
	}
	// 0.5 (generic single) + 0.8 (multi-word) = 1.3
	if got[0].Score < 1.29 || got[0].Score > 1.31 {
		t.Fatalf("unexpected weighted score: %v", got[0].Score)
	}
}

func TestBookingContinuation_FillsSlotsInOrder(t *testing.T) {
	e := NewEngine(&llm.StubClient{Err: errors.New("model down")}, nil)

	state := callstate.CallState{
		CallID:        "c1",
		CurrentIntent: "no-cool",
		Booking:       callstate.Booking{Active: true},
	}

	d := e.Decide(context.Background(), Input{
		CallID: "c1", Text: "It's Dana", Normalized: "its dana",
		State: state, Config: testConfig(),
	})
	if d.Action != ActionBook || d.Source != SourceQuickRule {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.Entities.Name != "Dana" {
		t.Fatalf("name = %q", d.Entities.Name)
	}

	state.Entities.Name = "Dana"
	d = e.Decide(context.Background(), Input{
		CallID: "c1", Text: "555-867-5309", Normalized: "555 867 5309",
		State: state, Config: testConfig(),
	})
	if d.Entities.Phone == "" {
		t.Fatalf("phone not extracted: %+v", d.Entities)
	}
	if d.Entities.Address != "" {
		t.Fatalf("free text must not leak into later slots: %+v", d.Entities)
	}

	state.Entities.Phone = "555-867-5309"
	d = e.Decide(context.Background(), Input{
		CallID: "c1", Text: "12 Oak Street", Normalized: "12 oak street",
		State: state, Config: testConfig(),
	})
	if d.Entities.Address != "12 Oak Street" {
		t.Fatalf("address = %q", d.Entities.Address)
	}
}

func TestBookingContinuation_EmergencyStillWins(t *testing.T) {
	e := NewEngine(&llm.StubClient{Err: errors.New("model down")}, nil)

	d := e.Decide(context.Background(), Input{
		CallID:     "c1",
		Text:       "wait, I smell gas",
		Normalized: "wait i smell gas",
		State: callstate.CallState{
			CallID:  "c1",
			Booking: callstate.Booking{Active: true},
		},
		Config: testConfig(),
	})
	if d.Action != ActionTransfer || !d.Flags.IsEmergency {
		t.Fatalf("emergency should preempt booking: %+v", d)
	}
}
