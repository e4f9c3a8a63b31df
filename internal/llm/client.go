// Package llm wraps the language-model provider behind a small
// completion interface plus the circuit breaker that guards it. The
// decision engine and the clarifier are the only consumers; both carry
// rule-based fallbacks and never surface an LLM error to the caller.
package llm

import (
	"context"
	"errors"
)

type Request struct {
	System    string
	Prompt    string
	MaxTokens int
}

type Response struct {
	Text string
}

var ErrEmptyResponse = errors.New("llm: empty response")

type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// StubClient returns canned responses; for tests and offline runs.
type StubClient struct {
	Response Response
	Err      error

	// Fn, when set, takes precedence.
	Fn func(ctx context.Context, req Request) (Response, error)

	Calls int
}

func (s *StubClient) Complete(ctx context.Context, req Request) (Response, error) {
	s.Calls++
	if s.Fn != nil {
		return s.Fn(ctx, req)
	}
	return s.Response, s.Err
}
