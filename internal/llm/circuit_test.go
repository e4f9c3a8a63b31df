package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterThresholdFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Minute})
	for i := 0; i < 3; i++ {
		if !b.Allow() {
			t.Fatalf("closed breaker must allow")
		}
		b.Record(false)
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %v", b.State())
	}
	if b.Allow() {
		t.Fatalf("open breaker must reject before timeout")
	}
}

func TestBreaker_HalfOpenThenCloses(t *testing.T) {
	now := time.Unix(1700000000, 0)
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 30 * time.Second}).
		WithClock(func() time.Time { return now })

	b.Record(false)
	if b.State() != StateOpen {
		t.Fatalf("expected open")
	}

	now = now.Add(31 * time.Second)
	if !b.Allow() {
		t.Fatalf("expected half-open probe allowed")
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %v", b.State())
	}

	b.Record(true)
	b.Record(true)
	if b.State() != StateClosed {
		t.Fatalf("expected closed after successes, got %v", b.State())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1700000000, 0)
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: time.Second}).
		WithClock(func() time.Time { return now })

	b.Record(false)
	now = now.Add(2 * time.Second)
	b.Allow()
	b.Record(false)
	if b.State() != StateOpen {
		t.Fatalf("expected reopened, got %v", b.State())
	}
}

func TestGuardedClient_ReturnsBreakerError(t *testing.T) {
	stub := &StubClient{Err: errors.New("boom")}
	g := NewGuardedClient(stub, NewBreaker(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour}))

	if _, err := g.Complete(context.Background(), Request{Prompt: "x"}); err == nil {
		t.Fatalf("expected inner error")
	}

	_, err := g.Complete(context.Background(), Request{Prompt: "x"})
	var open *ErrBreakerOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if stub.Calls != 1 {
		t.Fatalf("open breaker must not call inner client, calls=%d", stub.Calls)
	}
}

func TestGuardedClient_PassThrough(t *testing.T) {
	stub := &StubClient{Response: Response{Text: "ok"}}
	g := NewGuardedClient(stub, NewBreaker(BreakerConfig{}))
	resp, err := g.Complete(context.Background(), Request{Prompt: "x"})
	if err != nil || resp.Text != "ok" {
		t.Fatalf("unexpected: %v %v", resp, err)
	}
}
