// Package trace captures what happened on each turn for debugging and
// tuning. Traces are internal-only and written asynchronously so a slow
// or failing sink never delays a caller.
package trace

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for turn traces.
//
// It MUST be append-only. No Update/Delete methods are provided.

type Repository interface {
	Append(ctx context.Context, r Record) error
}

var ErrInvalidRecord = errors.New("trace: invalid record")

// Service validates and stamps records before handing them to the repo.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Append(ctx context.Context, r Record) error {
	if s.repo == nil {
		return errors.New("trace: repository not configured")
	}
	if r.WorkspaceID == "" || r.CallID == "" {
		return ErrInvalidRecord
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, r)
}
