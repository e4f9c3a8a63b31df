package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// BreakerState is the explicit circuit state machine.
type BreakerState int

const (
	StateClosed   BreakerState = iota // normal operation
	StateOpen                         // failing, reject requests
	StateHalfOpen                     // probing for recovery
)

func (s BreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when the circuit rejects a call outright.
type ErrBreakerOpen struct {
	State BreakerState
}

func (e *ErrBreakerOpen) Error() string {
	return fmt.Sprintf("llm: circuit breaker is %s", e.State)
}

type BreakerConfig struct {
	// FailureThreshold opens the circuit after this many consecutive
	// failures in the closed state.
	FailureThreshold int
	// SuccessThreshold closes the circuit after this many successes in
	// half-open.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	out := c
	if out.FailureThreshold <= 0 {
		out.FailureThreshold = 5
	}
	if out.SuccessThreshold <= 0 {
		out.SuccessThreshold = 2
	}
	if out.OpenTimeout <= 0 {
		out.OpenTimeout = 30 * time.Second
	}
	return out
}

// Breaker tracks failures around an LLM client. Callers that receive
// *ErrBreakerOpen (or any error) must use their fallback value; the
// breaker never leaves a caller without an answer path.
type Breaker struct {
	cfg   BreakerConfig
	clock func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	successes   int
	lastFailure time.Time

	// onTransition, when set, observes state changes (metrics hook).
	onTransition func(from, to BreakerState)
}

func NewBreaker(cfg BreakerConfig) *Breaker {
	return &Breaker{cfg: cfg.withDefaults(), clock: time.Now, state: StateClosed}
}

// WithClock overrides time for tests.
func (b *Breaker) WithClock(clock func() time.Time) *Breaker {
	b.clock = clock
	return b
}

// OnTransition registers a state-change observer.
func (b *Breaker) OnTransition(fn func(from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTransition = fn
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onTransition != nil {
		b.onTransition(from, to)
	}
}

// Allow reports whether a call may proceed, moving open → half-open
// once the open timeout has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.clock().Sub(b.lastFailure) >= b.cfg.OpenTimeout {
			b.transition(StateHalfOpen)
			b.successes = 0
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return false
	}
}

// Record feeds a call outcome back into the state machine.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		switch b.state {
		case StateClosed:
			b.failures = 0
		case StateHalfOpen:
			b.successes++
			if b.successes >= b.cfg.SuccessThreshold {
				b.transition(StateClosed)
				b.failures = 0
				b.successes = 0
			}
		}
		return
	}

	b.failures++
	b.lastFailure = b.clock()
	switch b.state {
	case StateClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		// Any failure while probing re-opens immediately.
		b.transition(StateOpen)
		b.successes = 0
	}
}

func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// GuardedClient wraps a Client with a Breaker. It still returns errors;
// converting an error into a fallback value is the caller's job, since
// only the caller knows what a safe fallback looks like.
type GuardedClient struct {
	inner   Client
	breaker *Breaker
}

func NewGuardedClient(inner Client, breaker *Breaker) *GuardedClient {
	return &GuardedClient{inner: inner, breaker: breaker}
}

func (g *GuardedClient) Complete(ctx context.Context, req Request) (Response, error) {
	if !g.breaker.Allow() {
		return Response{}, &ErrBreakerOpen{State: g.breaker.State()}
	}
	resp, err := g.inner.Complete(ctx, req)
	g.breaker.Record(err == nil)
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (g *GuardedClient) Breaker() *Breaker { return g.breaker }
