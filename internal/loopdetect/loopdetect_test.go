package loopdetect

import (
	"testing"
	"time"
)

func TestSignature_MasksSpecifics(t *testing.T) {
	a := Signature("I can book you for 2pm on Monday, John")
	b := Signature("I can book you for 4pm on Friday, John")
	if a != b {
		t.Fatalf("signatures should match:\n%q\n%q", a, b)
	}
}

func TestCheck_ThirdIdenticalResponseLoops(t *testing.T) {
	d := NewDetector(30 * time.Minute)
	msg := "Could you tell me a bit more about the issue?"

	d.Record("c1", msg)
	if got := d.Check("c1", msg); got.IsLooping {
		t.Fatalf("one prior occurrence is not a loop: %+v", got)
	}
	d.Record("c1", msg)
	got := d.Check("c1", msg)
	if !got.IsLooping || got.ConsecutiveMatches != 2 {
		t.Fatalf("expected loop on third occurrence: %+v", got)
	}
}

func TestCheck_DifferentResponseResetsStreak(t *testing.T) {
	d := NewDetector(30 * time.Minute)
	d.Record("c1", "same thing")
	d.Record("c1", "same thing")
	d.Record("c1", "something new entirely")
	if got := d.Check("c1", "same thing"); got.ConsecutiveMatches != 0 {
		t.Fatalf("expected reset streak, got %+v", got)
	}
}

func TestCheck_IsolatedPerCall(t *testing.T) {
	d := NewDetector(30 * time.Minute)
	d.Record("c1", "repeat me")
	d.Record("c1", "repeat me")
	if got := d.Check("c2", "repeat me"); got.IsLooping {
		t.Fatalf("call isolation broken: %+v", got)
	}
}

func TestTTL_EntriesExpire(t *testing.T) {
	now := time.Unix(1700000000, 0)
	d := NewDetector(30 * time.Minute).WithClock(func() time.Time { return now })

	d.Record("c1", "old response")
	d.Record("c1", "old response")

	now = now.Add(31 * time.Minute)
	if got := d.Check("c1", "old response"); got.ConsecutiveMatches != 0 {
		t.Fatalf("expected expiry, got %+v", got)
	}
}

func TestSweep_EvictsIdleCalls(t *testing.T) {
	now := time.Unix(1700000000, 0)
	d := NewDetector(30 * time.Minute).WithClock(func() time.Time { return now })

	d.Record("c1", "hello")
	now = now.Add(31 * time.Minute)
	d.sweep()
	if d.Size() != 0 {
		t.Fatalf("expected idle call evicted, size %d", d.Size())
	}
}
