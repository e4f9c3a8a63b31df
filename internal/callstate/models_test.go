package callstate

import (
	"context"
	"testing"
	"time"
)

func TestEntitiesMerge_NewerWins(t *testing.T) {
	old := Entities{Name: "Ann", Phone: "555-0100", Problem: "no heat"}
	newer := Entities{Phone: "555-0199", Address: "12 Elm St"}

	got := old.Merge(newer)
	if got.Name != "Ann" {
		t.Fatalf("expected name preserved, got %q", got.Name)
	}
	if got.Phone != "555-0199" {
		t.Fatalf("expected newer phone, got %q", got.Phone)
	}
	if got.Address != "12 Elm St" {
		t.Fatalf("expected address added, got %q", got.Address)
	}
	if got.Problem != "no heat" {
		t.Fatalf("expected problem preserved, got %q", got.Problem)
	}
}

func TestFlagsMerge_NeverUnset(t *testing.T) {
	f := Flags{IsEmergency: true}
	got := f.Merge(Flags{IsFrustrated: true})
	if !got.IsEmergency || !got.IsFrustrated {
		t.Fatalf("expected both flags set, got %+v", got)
	}
}

func TestAppendTurn_BoundsHistory(t *testing.T) {
	s := CallState{CallID: "c1"}
	for i := 0; i < 7; i++ {
		s.AppendTurn(TurnRecord{Speaker: SpeakerCaller, Text: "hello", Timestamp: time.Now()}, 5)
	}
	if len(s.History) != 5 {
		t.Fatalf("expected history bounded at 5, got %d", len(s.History))
	}
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Load(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	st := CallState{CallID: "c1", WorkspaceID: "w1", TurnCount: 2}
	if err := store.Save(ctx, st); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.TurnCount != 2 || got.WorkspaceID != "w1" {
		t.Fatalf("unexpected state: %+v", got)
	}
}
