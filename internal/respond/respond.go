// Package respond assembles final spoken text. The constructor is the
// single place behavioral filler, triage opening line, and handler
// content are woven together; guardrails and variable substitution are
// applied by the orchestrator after construction.
package respond

import (
	"context"
	"strings"
	"time"

	"voice-runtime/internal/callstate"
	"voice-runtime/internal/triage"
)

type BuildInput struct {
	Style   callstate.Style
	Triage  triage.Result
	Content string

	// IsFirstTurnForScenario controls whether a matched card's opening
	// line is prepended. Repeating it on later turns reads as double
	// talk.
	IsFirstTurnForScenario bool
}

type Meta struct {
	Sources        []string
	ConstructionMs int64
}

type Built struct {
	Text string
	SSML string
	Meta Meta
}

type Constructor interface {
	BuildFinalResponse(ctx context.Context, in BuildInput) (Built, error)
	BuildSimpleResponse(ctx context.Context, text, source string) Built
}

// SimpleConstructor is the in-process default. A richer external
// constructor (prosody, SSML marks) can replace it without touching
// the orchestrator.
type SimpleConstructor struct {
	clock func() time.Time
}

func NewSimpleConstructor() *SimpleConstructor {
	return &SimpleConstructor{clock: time.Now}
}

func (c *SimpleConstructor) BuildFinalResponse(ctx context.Context, in BuildInput) (Built, error) {
	start := c.clock()
	var parts []string
	var sources []string

	if f := styleFiller(in.Style); f != "" && in.Triage.OpeningLine == "" {
		parts = append(parts, f)
		sources = append(sources, "behavior")
	}

	useOpening := in.Triage.OpeningLine != "" && (in.IsFirstTurnForScenario || strings.TrimSpace(in.Content) == "")
	if useOpening {
		parts = append(parts, strings.TrimSpace(in.Triage.OpeningLine))
		sources = append(sources, "triage_card")
	}

	if t := strings.TrimSpace(in.Content); t != "" {
		parts = append(parts, t)
		sources = append(sources, "handler")
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	return Built{
		Text: text,
		Meta: Meta{
			Sources:        sources,
			ConstructionMs: c.clock().Sub(start).Milliseconds(),
		},
	}, nil
}

func (c *SimpleConstructor) BuildSimpleResponse(ctx context.Context, text, source string) Built {
	return Built{
		Text: strings.TrimSpace(text),
		Meta: Meta{Sources: []string{source}},
	}
}

// styleFiller is a short empathy lead-in keyed off behavioral state.
// Kept deliberately small; card opening lines carry their own tone.
func styleFiller(s callstate.Style) string {
	switch s.Mood {
	case "empathetic", "supportive":
		return "I'm sorry to hear that."
	case "de-escalating":
		return "I completely understand, and I want to get this sorted for you."
	default:
		return ""
	}
}
