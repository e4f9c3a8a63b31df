// Package scenario defines the contract to the knowledge/scenario
// engine ("Brain-2"). The engine itself is an external system; the
// runtime treats it as a black box and degrades to a generic follow-up
// on any failure.
package scenario

import (
	"context"
	"errors"

	"voice-runtime/internal/callstate"
)

type QueryOptions struct {
	State        callstate.CallState
	IntentTag    string
	TriageTag    string
	ScenarioHint string
}

type Answer struct {
	Response   string
	Confidence float64

	Meta Meta
}

type Meta struct {
	Tier         string
	ScenarioID   string
	ScenarioName string
	Cost         float64
}

type Engine interface {
	Query(ctx context.Context, companyID, text string, opts QueryOptions) (Answer, error)
}

// StubEngine returns a fixed answer; for tests and local wiring.
type StubEngine struct {
	Answer Answer
	Err    error

	Calls    int
	LastOpts QueryOptions
}

func (s *StubEngine) Query(ctx context.Context, companyID, text string, opts QueryOptions) (Answer, error) {
	s.Calls++
	s.LastOpts = opts
	return s.Answer, s.Err
}

// Unavailable is an engine that always errors; useful as a default so
// wiring without a real engine still exercises the degraded path.
type Unavailable struct{}

func (Unavailable) Query(ctx context.Context, companyID, text string, opts QueryOptions) (Answer, error) {
	return Answer{}, errors.New("scenario: engine not configured")
}
