// Package handlers holds one handler per triage route. Handlers
// produce response content, not final spoken text; assembly happens in
// the response constructor. Every handler absorbs its own failures and
// returns something usable.
package handlers

import (
	"context"
	"fmt"

	"voice-runtime/internal/callstate"
	"voice-runtime/internal/decision"
	"voice-runtime/internal/scenario"
	"voice-runtime/internal/tenant"
	"voice-runtime/internal/triage"
	"voice-runtime/internal/vendorlog"
	"voice-runtime/pkg/logger"
)

// TurnAction is what the transport layer is told to do after speaking.
type TurnAction string

const (
	ActionContinue    TurnAction = "continue"
	ActionTransfer    TurnAction = "transfer"
	ActionTakeMessage TurnAction = "take_message"
	ActionHangup      TurnAction = "hangup"
)

// Input is the handler-facing view of one turn.
type Input struct {
	CallID      string
	WorkspaceID string

	Text       string
	Normalized string

	State    callstate.CallState
	Config   tenant.RuntimeConfig
	Decision decision.Decision
	Triage   triage.Result
}

// Result is a handler's output. Text may be empty when the triage
// card's opening line already fully answers.
type Result struct {
	Text string

	ScenarioID   string
	ScenarioName string

	Action         TurnAction
	ShouldTransfer bool
	ShouldHangup   bool

	// State carries handler-side state updates (booking progress)
	// back to the orchestrator.
	State callstate.CallState

	BookingReady bool
}

// Handler implements one route. Errors are absorbed; the contract is
// "always return a Result".
type Handler func(ctx context.Context, in Input) Result

// Registry is the enum-keyed dispatch table. Adding a route is one
// registration here.
type Registry struct {
	handlers map[triage.Route]Handler
}

type Deps struct {
	Scenario scenario.Engine
	Vendors  *vendorlog.Service
	Events   EventSink
}

func NewRegistry(deps Deps) *Registry {
	if deps.Scenario == nil {
		deps.Scenario = scenario.Unavailable{}
	}
	if deps.Events == nil {
		deps.Events = NopEvents{}
	}
	r := &Registry{handlers: make(map[triage.Route]Handler)}
	r.handlers[triage.RouteScenarioEngine] = scenarioHandler(deps.Scenario)
	r.handlers[triage.RouteTransfer] = transferHandler
	r.handlers[triage.RouteBookingFlow] = bookingHandler(deps.Events)
	r.handlers[triage.RouteEndCall] = endCallHandler
	r.handlers[triage.RouteVendorHandling] = vendorHandler(deps.Vendors)
	r.handlers[triage.RouteMessageOnly] = messageOnlyHandler
	return r
}

// Dispatch runs the handler for the route. An unknown route degrades
// to the scenario path rather than failing the turn.
func (r *Registry) Dispatch(ctx context.Context, route triage.Route, in Input) Result {
	h, ok := r.handlers[route]
	if !ok {
		h = r.handlers[triage.RouteScenarioEngine]
	}
	return h(ctx, in)
}

// scenarioHandler delegates substantive questions to the external
// engine. On failure it returns a generic prompt for more detail
// instead of propagating the error.
func scenarioHandler(engine scenario.Engine) Handler {
	return func(ctx context.Context, in Input) Result {
		ans, err := engine.Query(ctx, in.WorkspaceID, in.Text, scenario.QueryOptions{
			State:        in.State,
			IntentTag:    in.Decision.IntentTag,
			TriageTag:    in.Decision.TriageTag,
			ScenarioHint: in.Triage.MatchedCardName,
		})
		if err != nil || ans.Response == "" {
			if err != nil {
				logger.From(ctx).Warn("scenario engine failed", "call_id", in.CallID, "err", err)
			}
			return Result{
				Text:   "Could you tell me a bit more about what's going on?",
				Action: ActionContinue,
				State:  in.State,
			}
		}
		return Result{
			Text:         ans.Response,
			ScenarioID:   ans.Meta.ScenarioID,
			ScenarioName: ans.Meta.ScenarioName,
			Action:       ActionContinue,
			State:        in.State,
		}
	}
}

// transferHandler picks a message variant by emotion flags and signals
// the transfer.
func transferHandler(ctx context.Context, in Input) Result {
	var text string
	switch {
	case in.State.Flags.IsEmergency || in.Decision.Flags.IsEmergency:
		text = "I understand this is urgent. I'm connecting you with someone right now, please stay on the line."
	case in.State.Flags.IsFrustrated || in.Decision.Flags.IsFrustrated:
		text = "I hear you, and I'm sorry for the runaround. Let me get you straight to a team member who can take care of this."
	default:
		text = "Let me connect you with one of our team members who can help with that."
	}
	return Result{
		Text:           text,
		Action:         ActionTransfer,
		ShouldTransfer: true,
		State:          in.State,
	}
}

// endCallHandler chooses a closing line based on why the call ends.
func endCallHandler(ctx context.Context, in Input) Result {
	var text string
	switch {
	case in.State.Flags.IsWrongNumber || in.Decision.Flags.IsWrongNumber:
		text = "No problem at all, it sounds like you reached the wrong number. Have a good one!"
	case in.State.Flags.IsSpam || in.Decision.Flags.IsSpam:
		text = "Understood, we'll take you off our list. Goodbye."
	default:
		text = fmt.Sprintf("Thanks for calling %s. Have a great day!", in.Config.Name)
	}
	return Result{
		Text:         text,
		Action:       ActionHangup,
		ShouldHangup: true,
		State:        in.State,
	}
}

// vendorHandler deals with business-to-business callers: record the
// contact, then transfer if urgent or take a message otherwise. The
// vendor log is best-effort.
func vendorHandler(vendors *vendorlog.Service) Handler {
	return func(ctx context.Context, in Input) Result {
		state := in.State
		state.Flags.IsVendor = true

		urgent := in.State.Flags.IsEmergency || in.Decision.Flags.IsEmergency

		if vendors != nil {
			err := vendors.Create(ctx, vendorlog.Record{
				WorkspaceID: in.WorkspaceID,
				CallID:      in.CallID,
				VendorName:  in.Decision.Entities.Name,
				Purpose:     in.Decision.IntentTag,
				Urgent:      urgent,
				Message:     in.Text,
			})
			if err != nil {
				// Non-fatal: the caller still gets handled.
				logger.From(ctx).Warn("vendor log write failed", "call_id", in.CallID, "err", err)
			}
		}

		if urgent {
			return Result{
				Text:           "Thanks for letting us know. I'll connect you with our team right away.",
				Action:         ActionTransfer,
				ShouldTransfer: true,
				State:          state,
			}
		}
		return Result{
			Text:   "Thanks for calling. I'll pass your message along to our team, could you give me your name and what this is regarding?",
			Action: ActionTakeMessage,
			State:  state,
		}
	}
}

// messageOnlyHandler returns empty text when a card matched, letting
// the opening line stand alone; otherwise it synthesizes a follow-up
// from what is already known.
func messageOnlyHandler(ctx context.Context, in Input) Result {
	if in.Triage.MatchedCardID != "" && in.Triage.OpeningLine != "" {
		return Result{Text: "", Action: ActionContinue, State: in.State}
	}

	ent := in.State.Entities.Merge(in.Decision.Entities)
	var text string
	switch {
	case ent.Name == "":
		text = "Happy to help with that. Could I get your name first?"
	case ent.Problem == "":
		text = fmt.Sprintf("Thanks, %s. Could you tell me a little more about what you need help with?", ent.Name)
	default:
		text = fmt.Sprintf("Got it, %s. Is there anything else you'd like to add about the %s?", ent.Name, ent.Problem)
	}
	return Result{Text: text, Action: ActionContinue, State: in.State}
}
