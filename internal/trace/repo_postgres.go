package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo appends turn traces to the turn_traces table.
//
// The table is INSERT-only; retention is handled out of band.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) (*PostgresRepo, error) {
	if db == nil {
		return nil, errors.New("trace: db is nil")
	}
	return &PostgresRepo{db: db}, nil
}

func (r *PostgresRepo) Append(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO turn_traces
		   (id, workspace_id, call_id, turn_number,
		    raw_input, normalized_input,
		    emotion, emotion_intensity, action, confidence, decision_source,
		    route, matched_card_id,
		    response_text, response_action, bailed_out, bailout_reason,
		    timings, total_ms, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		rec.ID, rec.WorkspaceID, rec.CallID, rec.TurnNumber,
		rec.RawInput, rec.NormalizedInput,
		rec.Emotion, rec.EmotionIntensity, rec.Action, rec.Confidence, rec.DecisionSource,
		rec.Route, rec.MatchedCardID,
		rec.ResponseText, rec.ResponseAction, rec.BailedOut, rec.BailoutReason,
		rec.Timings, rec.TotalMs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("trace: insert: %w", err)
	}
	return nil
}
