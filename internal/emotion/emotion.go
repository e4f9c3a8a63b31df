// Package emotion classifies caller affect from normalized text and
// recent turn history, and derives the behavioral style the agent
// should respond with. Everything here is pure; mutation of call state
// happens in the runtime.
package emotion

import (
	"strings"

	"voice-runtime/internal/callstate"
)

// Detection is one turn's affect read.
type Detection struct {
	Primary   string
	Intensity float64

	Frustrated bool
	Urgent     bool
}

var frustrationCues = []string{
	"frustrated", "ridiculous", "unacceptable", "annoyed", "fed up",
	"third time", "again and again", "still not", "nobody called",
	"waste of time", "terrible",
}

var urgencyCues = []string{
	"right now", "immediately", "as soon as possible", "asap",
	"today", "urgent", "emergency", "can't wait",
}

var distressCues = []string{
	"worried", "scared", "afraid", "panicking", "stressed",
}

// Detect classifies one normalized utterance. History raises intensity:
// a caller who was frustrated last turn and still sounds negative is
// escalating, not resetting.
func Detect(normalized string, history []callstate.TurnRecord) Detection {
	d := Detection{Primary: "neutral", Intensity: 0.2}

	hits := 0
	for _, cue := range frustrationCues {
		if strings.Contains(normalized, cue) {
			hits++
		}
	}
	if hits > 0 {
		d.Primary = "frustrated"
		d.Frustrated = true
		d.Intensity = 0.5 + 0.15*float64(hits)
	}

	for _, cue := range distressCues {
		if strings.Contains(normalized, cue) {
			if !d.Frustrated {
				d.Primary = "worried"
			}
			if d.Intensity < 0.5 {
				d.Intensity = 0.5
			}
			break
		}
	}

	for _, cue := range urgencyCues {
		if strings.Contains(normalized, cue) {
			d.Urgent = true
			if d.Intensity < 0.4 {
				d.Intensity = 0.4
			}
			break
		}
	}

	// Escalation: consecutive frustrated turns compound.
	if d.Frustrated && wasFrustratedRecently(history) {
		d.Intensity += 0.2
	}
	if d.Intensity > 1.0 {
		d.Intensity = 1.0
	}
	return d
}

func wasFrustratedRecently(history []callstate.TurnRecord) bool {
	for i := len(history) - 1; i >= 0 && i >= len(history)-3; i-- {
		if history[i].Speaker == callstate.SpeakerCaller && history[i].Emotion == "frustrated" {
			return true
		}
	}
	return false
}

// Snapshot converts a detection into the call-state emotion record.
func (d Detection) Snapshot() callstate.Emotion {
	return callstate.Emotion{Primary: d.Primary, Intensity: d.Intensity}
}

// AnalyzeStyle derives the behavioral style for the next response.
// Failure mode is the zero Detection, which maps to a neutral style;
// the turn never fails on behavioral analysis.
func AnalyzeStyle(prev callstate.Style, d Detection) callstate.Style {
	style := callstate.Style{Mood: "neutral", Tone: "friendly"}

	switch {
	case d.Frustrated && d.Intensity >= 0.7:
		style.Mood = "de-escalating"
		style.Tone = "calm"
	case d.Frustrated:
		style.Mood = "empathetic"
		style.Tone = "reassuring"
	case d.Primary == "worried":
		style.Mood = "supportive"
		style.Tone = "reassuring"
	case d.Urgent:
		style.Mood = "focused"
		style.Tone = "brisk"
	}

	// Once de-escalating, stay there for the rest of the call unless the
	// caller reads calm again.
	if prev.Mood == "de-escalating" && d.Primary != "neutral" {
		style.Mood = "de-escalating"
		style.Tone = "calm"
	}
	return style
}
