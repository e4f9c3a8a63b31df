package handlers

import (
	"context"
	"strings"
	"testing"

	"voice-runtime/internal/callstate"
	"voice-runtime/internal/decision"
	"voice-runtime/internal/triage"
)

type captureEvents struct {
	events []Event
}

func (c *captureEvents) Emit(ctx context.Context, e Event) {
	c.events = append(c.events, e)
}

func TestNextMissingSlot_Order(t *testing.T) {
	e := callstate.Entities{}
	if got := NextMissingSlot(e); got != SlotName {
		t.Fatalf("expected name first, got %q", got)
	}
	e.Name = "Dana"
	if got := NextMissingSlot(e); got != SlotPhone {
		t.Fatalf("expected phone, got %q", got)
	}
	e.Phone = "555-0100"
	if got := NextMissingSlot(e); got != SlotAddress {
		t.Fatalf("expected address, got %q", got)
	}
	e.Address = "12 Elm St"
	if got := NextMissingSlot(e); got != SlotTime {
		t.Fatalf("expected preferred time, got %q", got)
	}
	e.PreferredTime = "tomorrow morning"
	if got := NextMissingSlot(e); got != "" {
		t.Fatalf("expected complete, got %q", got)
	}
}

func TestBookingHandler_AsksForAddressWhenNamePhoneKnown(t *testing.T) {
	sink := &captureEvents{}
	r := NewRegistry(Deps{Events: sink})

	in := baseInput()
	in.State.Entities = callstate.Entities{Name: "Dana", Phone: "555-0100"}
	got := r.Dispatch(context.Background(), triage.RouteBookingFlow, in)

	if !strings.Contains(got.Text, "address") {
		t.Fatalf("expected address ask, got %q", got.Text)
	}
	if got.BookingReady {
		t.Fatalf("booking must not be ready with missing slots")
	}
	if len(sink.events) != 1 || sink.events[0].Slot != SlotAddress {
		t.Fatalf("expected slot_requested event for address, got %+v", sink.events)
	}
	if !got.State.Booking.Active {
		t.Fatalf("expected booking flow marked active")
	}
}

func TestBookingHandler_ConfirmsWithAllFourSlots(t *testing.T) {
	sink := &captureEvents{}
	r := NewRegistry(Deps{Events: sink})

	in := baseInput()
	in.State.Entities = callstate.Entities{
		Name: "Dana", Phone: "555-0100", Address: "12 Elm St", PreferredTime: "tomorrow 9am",
	}
	got := r.Dispatch(context.Background(), triage.RouteBookingFlow, in)

	if !got.BookingReady {
		t.Fatalf("expected confirmation, got %+v", got)
	}
	if !got.State.Booking.Confirmed {
		t.Fatalf("expected booking confirmed state")
	}
	if len(sink.events) != 1 || sink.events[0].Type != "booking_confirmed" {
		t.Fatalf("expected booking_confirmed event, got %+v", sink.events)
	}
}

func TestBookingHandler_MergesThisTurnEntities(t *testing.T) {
	r := NewRegistry(Deps{})
	in := baseInput()
	in.State.Entities = callstate.Entities{Name: "Dana", Phone: "555-0100", Address: "12 Elm St"}
	in.Decision = decision.Decision{Entities: callstate.Entities{PreferredTime: "friday 2pm"}}

	got := r.Dispatch(context.Background(), triage.RouteBookingFlow, in)
	if !got.BookingReady {
		t.Fatalf("this-turn entity should complete booking: %+v", got)
	}
	if got.State.Entities.PreferredTime != "friday 2pm" {
		t.Fatalf("expected merged entities, got %+v", got.State.Entities)
	}
}
