package vendorlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresRepo appends vendor contact records to the vendor_logs table.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) (*PostgresRepo, error) {
	if db == nil {
		return nil, errors.New("vendorlog: db is nil")
	}
	return &PostgresRepo{db: db}, nil
}

func (r *PostgresRepo) Create(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO vendor_logs
		   (id, workspace_id, call_id, vendor_name, purpose, urgent, message, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.WorkspaceID, rec.CallID, rec.VendorName, rec.Purpose,
		rec.Urgent, rec.Message, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("vendorlog: insert: %w", err)
	}
	return nil
}
