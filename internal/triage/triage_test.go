package triage

import (
	"testing"

	"voice-runtime/internal/decision"
	"voice-runtime/internal/tenant"
)

func TestRouteDecision_ActionMapping(t *testing.T) {
	cases := []struct {
		action decision.Action
		want   Route
	}{
		{decision.ActionTransfer, RouteTransfer},
		{decision.ActionBook, RouteBookingFlow},
		{decision.ActionEnd, RouteEndCall},
		{decision.ActionRouteToVendor, RouteVendorHandling},
		{decision.ActionMessageOnly, RouteMessageOnly},
		{decision.ActionRouteToScenario, RouteScenarioEngine},
		{decision.ActionAskFollowup, RouteScenarioEngine},
	}
	for _, tc := range cases {
		got := RouteDecision(decision.Decision{Action: tc.action}, tenant.RuntimeConfig{})
		if got.Route != tc.want {
			t.Fatalf("action %v: expected %v, got %v", tc.action, tc.want, got.Route)
		}
	}
}

func TestRouteDecision_CarriesCardOpeningLine(t *testing.T) {
	cfg := tenant.RuntimeConfig{Cards: []tenant.Card{{
		ID:          "card-1",
		Name:        "No Cool",
		Enabled:     true,
		OpeningLine: "Sorry to hear that, let's get someone out.",
	}}}
	d := decision.Decision{Action: decision.ActionBook, MatchedCardID: "card-1"}

	got := RouteDecision(d, cfg)
	if got.OpeningLine == "" || got.MatchedCardName != "No Cool" {
		t.Fatalf("expected card carry-through, got %+v", got)
	}
}

func TestRouteDecision_DisabledCardNotCarried(t *testing.T) {
	cfg := tenant.RuntimeConfig{Cards: []tenant.Card{{ID: "card-1", Name: "Off", Enabled: false}}}
	d := decision.Decision{Action: decision.ActionBook, MatchedCardID: "card-1"}
	if got := RouteDecision(d, cfg); got.MatchedCardID != "" {
		t.Fatalf("disabled card must not carry: %+v", got)
	}
}
