// Package triage maps a decision onto one of the fixed runtime routes
// and carries matched-card content forward so the response constructor
// can reuse the configured opening line verbatim.
package triage

import (
	"voice-runtime/internal/decision"
	"voice-runtime/internal/tenant"
)

// Route is the closed set of handler destinations.
type Route string

const (
	RouteScenarioEngine Route = "SCENARIO_ENGINE"
	RouteTransfer       Route = "TRANSFER"
	RouteBookingFlow    Route = "BOOKING_FLOW"
	RouteEndCall        Route = "END_CALL"
	RouteVendorHandling Route = "VENDOR_HANDLING"
	RouteMessageOnly    Route = "MESSAGE_ONLY"
)

// Result is the router's output.
type Result struct {
	Route Route `json:"route"`

	MatchedCardID   string `json:"matched_card_id,omitempty"`
	MatchedCardName string `json:"matched_card_name,omitempty"`
	OpeningLine     string `json:"opening_line,omitempty"`

	// Reason is for logs and traces only.
	Reason string `json:"reason,omitempty"`
}

// RouteDecision is a pure function from (Decision, tenant config) to a
// Result. ASK_FOLLOWUP rides the scenario route: the scenario engine is
// where follow-up content comes from.
func RouteDecision(d decision.Decision, cfg tenant.RuntimeConfig) Result {
	res := Result{Reason: string(d.Source)}

	switch d.Action {
	case decision.ActionTransfer:
		res.Route = RouteTransfer
	case decision.ActionBook:
		res.Route = RouteBookingFlow
	case decision.ActionEnd:
		res.Route = RouteEndCall
	case decision.ActionRouteToVendor:
		res.Route = RouteVendorHandling
	case decision.ActionMessageOnly:
		res.Route = RouteMessageOnly
	case decision.ActionRouteToScenario, decision.ActionAskFollowup:
		res.Route = RouteScenarioEngine
	default:
		// Unreachable once actions are normalized.
		res.Route = RouteScenarioEngine
		res.Reason = "unknown action"
	}

	if d.MatchedCardID != "" {
		if card, ok := cfg.CardByID(d.MatchedCardID); ok {
			res.MatchedCardID = card.ID
			res.MatchedCardName = card.Name
			res.OpeningLine = card.OpeningLine
			res.Reason = "card match"
		}
	}
	return res
}
