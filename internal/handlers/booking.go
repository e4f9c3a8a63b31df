package handlers

import (
	"context"
	"fmt"
	"time"

	"voice-runtime/internal/callstate"
)

// The booking flow is a small explicit state machine over required
// slots: name, phone, address, preferred time, then confirmation. One
// missing slot is requested per turn; confirmation happens only once
// all four are present.

// Slot names double as lifecycle event subjects.
const (
	SlotName    = "name"
	SlotPhone   = "phone"
	SlotAddress = "address"
	SlotTime    = "preferred_time"
)

// Event is a booking lifecycle notification for audit/observability.
type Event struct {
	CallID      string
	WorkspaceID string
	Type        string // "slot_requested" | "booking_confirmed"
	Slot        string
	At          time.Time
}

type EventSink interface {
	Emit(ctx context.Context, e Event)
}

type NopEvents struct{}

func (NopEvents) Emit(ctx context.Context, e Event) {}

// NextMissingSlot returns the first unfilled slot in collection order,
// or "" when the booking is complete.
func NextMissingSlot(e callstate.Entities) string {
	switch {
	case e.Name == "":
		return SlotName
	case e.Phone == "":
		return SlotPhone
	case e.Address == "":
		return SlotAddress
	case e.PreferredTime == "":
		return SlotTime
	default:
		return ""
	}
}

func bookingHandler(events EventSink) Handler {
	return func(ctx context.Context, in Input) Result {
		state := in.State
		state.Booking.Active = true
		ent := state.Entities.Merge(in.Decision.Entities)
		state.Entities = ent

		now := time.Now().UTC()
		missing := NextMissingSlot(ent)
		if missing != "" {
			events.Emit(ctx, Event{
				CallID:      in.CallID,
				WorkspaceID: in.WorkspaceID,
				Type:        "slot_requested",
				Slot:        missing,
				At:          now,
			})
			return Result{
				Text:   slotPrompt(missing, ent),
				Action: ActionContinue,
				State:  state,
			}
		}

		state.Booking.Confirmed = true
		events.Emit(ctx, Event{
			CallID:      in.CallID,
			WorkspaceID: in.WorkspaceID,
			Type:        "booking_confirmed",
			At:          now,
		})
		return Result{
			Text: fmt.Sprintf(
				"Perfect, %s. I have you down at %s, we'll call %s to confirm, and you'd prefer %s. You're all set!",
				ent.Name, ent.Address, ent.Phone, ent.PreferredTime,
			),
			Action:       ActionContinue,
			State:        state,
			BookingReady: true,
		}
	}
}

func slotPrompt(slot string, e callstate.Entities) string {
	switch slot {
	case SlotName:
		return "I can get that scheduled for you. Could I start with your name?"
	case SlotPhone:
		return fmt.Sprintf("Thanks, %s. What's the best phone number to reach you?", e.Name)
	case SlotAddress:
		return "Got it. And what's the service address?"
	case SlotTime:
		return "Almost done. What day and time works best for you?"
	default:
		return "Could you tell me a bit more so I can get you scheduled?"
	}
}
