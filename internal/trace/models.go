package trace

import "time"

// Record is an immutable, append-only trace of one processed turn.
//
// Invariants:
// - Records are never updated or deleted.
// - workspace_id is required for tenancy isolation.
// - Writing a trace is best-effort; turn processing never blocks on it.
//
// Storage recommendation (Postgres):
// - Table turn_traces with an INSERT-only policy.
// - Optional: partition by time for retention.

type Record struct {
	ID          string `json:"id" db:"id"`
	WorkspaceID string `json:"workspace_id" db:"workspace_id"`
	CallID      string `json:"call_id" db:"call_id"`
	TurnNumber  int    `json:"turn_number" db:"turn_number"`

	// Caller input, before and after preprocessing.
	RawInput        string `json:"raw_input" db:"raw_input"`
	NormalizedInput string `json:"normalized_input" db:"normalized_input"`

	// Pipeline outcomes.
	Emotion          string  `json:"emotion,omitempty" db:"emotion"`
	EmotionIntensity float64 `json:"emotion_intensity,omitempty" db:"emotion_intensity"`
	Action           string  `json:"action" db:"action"`
	Confidence       float64 `json:"confidence" db:"confidence"`
	DecisionSource   string  `json:"decision_source" db:"decision_source"`
	Route            string  `json:"route" db:"route"`
	MatchedCardID    string  `json:"matched_card_id,omitempty" db:"matched_card_id"`

	// Final output after guardrails and validation.
	ResponseText   string `json:"response_text" db:"response_text"`
	ResponseAction string `json:"response_action" db:"response_action"`
	BailedOut      bool   `json:"bailed_out,omitempty" db:"bailed_out"`
	BailoutReason  string `json:"bailout_reason,omitempty" db:"bailout_reason"`

	// Timings is JSON of per-stage durations in milliseconds.
	Timings string `json:"timings,omitempty" db:"timings"`
	TotalMs int64  `json:"total_ms" db:"total_ms"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
