package decision

import "voice-runtime/internal/callstate"

// Action is the closed set of things a turn decision can ask for.
// Anything else coming back from the language model is normalized to
// ActionAskFollowup before it leaves this package.
type Action string

const (
	ActionRouteToScenario Action = "ROUTE_TO_SCENARIO"
	ActionTransfer        Action = "TRANSFER"
	ActionBook            Action = "BOOK"
	ActionAskFollowup     Action = "ASK_FOLLOWUP"
	ActionMessageOnly     Action = "MESSAGE_ONLY"
	ActionRouteToVendor   Action = "ROUTE_TO_VENDOR"
	ActionEnd             Action = "END"
)

// NormalizeAction maps arbitrary input onto the closed enum.
func NormalizeAction(raw string) Action {
	switch Action(raw) {
	case ActionRouteToScenario, ActionTransfer, ActionBook,
		ActionAskFollowup, ActionMessageOnly, ActionRouteToVendor, ActionEnd:
		return Action(raw)
	default:
		return ActionAskFollowup
	}
}

// Source records which layer produced the decision, for trace only.
type Source string

const (
	SourceQuickRule Source = "quick_rule"
	SourceCardMatch Source = "card_match"
	SourceLLM       Source = "llm"
	SourceFallback  Source = "fallback"
)

// Decision is the engine's output for one turn.
type Decision struct {
	Action     Action  `json:"action"`
	TriageTag  string  `json:"triage_tag,omitempty"`
	IntentTag  string  `json:"intent_tag,omitempty"`
	Confidence float64 `json:"confidence"`

	// Reasoning is free text for the trace; never spoken.
	Reasoning string `json:"reasoning,omitempty"`

	// Entities are this turn's extractions only; the orchestrator merges
	// them into call state.
	Entities callstate.Entities `json:"entities,omitempty"`
	Flags    callstate.Flags    `json:"flags,omitempty"`

	// NeedsDeeperLookup marks a low-confidence fallback that should be
	// revisited by the scenario engine.
	NeedsDeeperLookup bool `json:"needs_deeper_lookup,omitempty"`

	// Card match carry-through, so triage can reuse the opening line
	// instead of re-deriving content.
	MatchedCardID   string `json:"matched_card_id,omitempty"`
	MatchedCardName string `json:"matched_card_name,omitempty"`

	Source Source `json:"source,omitempty"`
}
