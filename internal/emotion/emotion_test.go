package emotion

import (
	"testing"

	"voice-runtime/internal/callstate"
)

func TestDetect_Neutral(t *testing.T) {
	d := Detect("i'd like to ask about your services", nil)
	if d.Primary != "neutral" || d.Frustrated || d.Urgent {
		t.Fatalf("unexpected detection: %+v", d)
	}
}

func TestDetect_Frustration(t *testing.T) {
	d := Detect("this is ridiculous it's the third time i'm calling", nil)
	if !d.Frustrated || d.Primary != "frustrated" {
		t.Fatalf("expected frustration: %+v", d)
	}
	if d.Intensity < 0.5 {
		t.Fatalf("expected raised intensity, got %v", d.Intensity)
	}
}

func TestDetect_EscalatesAcrossTurns(t *testing.T) {
	hist := []callstate.TurnRecord{
		{Speaker: callstate.SpeakerCaller, Text: "x", Emotion: "frustrated"},
	}
	base := Detect("this is unacceptable", nil)
	esc := Detect("this is unacceptable", hist)
	if esc.Intensity <= base.Intensity {
		t.Fatalf("expected escalation: base %v esc %v", base.Intensity, esc.Intensity)
	}
}

func TestDetect_Urgency(t *testing.T) {
	d := Detect("i need someone today", nil)
	if !d.Urgent {
		t.Fatalf("expected urgency: %+v", d)
	}
}

func TestAnalyzeStyle_FrustratedGetsReassuring(t *testing.T) {
	s := AnalyzeStyle(callstate.Style{}, Detection{Primary: "frustrated", Frustrated: true, Intensity: 0.5})
	if s.Tone != "reassuring" {
		t.Fatalf("unexpected style: %+v", s)
	}
}

func TestAnalyzeStyle_DeEscalationSticks(t *testing.T) {
	prev := callstate.Style{Mood: "de-escalating", Tone: "calm"}
	s := AnalyzeStyle(prev, Detection{Primary: "worried", Intensity: 0.5})
	if s.Mood != "de-escalating" {
		t.Fatalf("expected sticky de-escalation, got %+v", s)
	}
}

func TestAnalyzeStyle_ZeroDetectionIsNeutral(t *testing.T) {
	s := AnalyzeStyle(callstate.Style{}, Detection{})
	if s.Mood != "neutral" || s.Tone != "friendly" {
		t.Fatalf("expected neutral default, got %+v", s)
	}
}
