package callstate

import "time"

// CallState is the per-call mutable record carried across turns.
//
// Ownership invariant: during one turn the state is owned exclusively
// by the runtime orchestrator. Between turns it lives in the session
// store. It is never shared across calls, so it needs no locking.
//
// Multi-tenant invariant: WorkspaceID is required on every record.

type CallState struct {
	CallID      string `json:"call_id"`
	WorkspaceID string `json:"workspace_id"`

	// TurnCount is 1-based once the first turn has been processed.
	TurnCount int `json:"turn_count"`

	CurrentIntent string `json:"current_intent,omitempty"`
	LastIntent    string `json:"last_intent,omitempty"`

	Emotion Emotion `json:"emotion"`
	Style   Style   `json:"style"`

	// Entities accumulate turn-over-turn; newer values override older.
	Entities Entities `json:"entities"`

	Flags Flags `json:"flags"`

	Booking Booking `json:"booking"`

	// History holds the most recent turns, oldest first, bounded by the
	// runtime's MaxTurnHistory setting.
	History []TurnRecord `json:"history,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Emotion is the most recent affect snapshot for the caller.
type Emotion struct {
	Primary   string  `json:"primary,omitempty"`
	Intensity float64 `json:"intensity,omitempty"`
}

// Style is behavioral state carried forward between turns (how the
// agent should sound, not what it should say).
type Style struct {
	Mood string `json:"mood,omitempty"`
	Tone string `json:"tone,omitempty"`
}

// Entities are the facts extracted from the caller so far.
type Entities struct {
	Name          string `json:"name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	Address       string `json:"address,omitempty"`
	Problem       string `json:"problem,omitempty"`
	PreferredTime string `json:"preferred_time,omitempty"`
}

// Merge returns e with newer's non-empty fields overriding.
func (e Entities) Merge(newer Entities) Entities {
	out := e
	if newer.Name != "" {
		out.Name = newer.Name
	}
	if newer.Phone != "" {
		out.Phone = newer.Phone
	}
	if newer.Email != "" {
		out.Email = newer.Email
	}
	if newer.Address != "" {
		out.Address = newer.Address
	}
	if newer.Problem != "" {
		out.Problem = newer.Problem
	}
	if newer.PreferredTime != "" {
		out.PreferredTime = newer.PreferredTime
	}
	return out
}

// HasContact reports whether any contact detail is known.
func (e Entities) HasContact() bool {
	return e.Name != "" || e.Phone != "" || e.Email != ""
}

type Flags struct {
	IsEmergency   bool `json:"is_emergency,omitempty"`
	IsFrustrated  bool `json:"is_frustrated,omitempty"`
	IsVendor      bool `json:"is_vendor,omitempty"`
	WantsHuman    bool `json:"wants_human,omitempty"`
	IsSpam        bool `json:"is_spam,omitempty"`
	IsWrongNumber bool `json:"is_wrong_number,omitempty"`
}

// Merge ORs newer flags in. Flags never un-set themselves mid-call;
// only the orchestrator clears them explicitly.
func (f Flags) Merge(newer Flags) Flags {
	return Flags{
		IsEmergency:   f.IsEmergency || newer.IsEmergency,
		IsFrustrated:  f.IsFrustrated || newer.IsFrustrated,
		IsVendor:      f.IsVendor || newer.IsVendor,
		WantsHuman:    f.WantsHuman || newer.WantsHuman,
		IsSpam:        f.IsSpam || newer.IsSpam,
		IsWrongNumber: f.IsWrongNumber || newer.IsWrongNumber,
	}
}

// Booking is the slot-collection sub-state. The slot values themselves
// live in Entities; this records where the flow is.
type Booking struct {
	Active    bool `json:"active,omitempty"`
	Confirmed bool `json:"confirmed,omitempty"`
}

type Speaker string

const (
	SpeakerCaller Speaker = "caller"
	SpeakerAgent  Speaker = "agent"
)

type TurnRecord struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Action    string    `json:"action,omitempty"`
	Emotion   string    `json:"emotion,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AppendTurn appends a turn record and trims history to max entries,
// dropping the oldest.
func (s *CallState) AppendTurn(rec TurnRecord, max int) {
	s.History = append(s.History, rec)
	if max > 0 && len(s.History) > max {
		s.History = s.History[len(s.History)-max:]
	}
}
