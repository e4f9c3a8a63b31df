// Package vendorlog records business-to-business caller contacts.
//
// Writes are best-effort: a vendor-log failure must never fail the
// turn that produced it.
package vendorlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Record struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	CallID      string    `json:"call_id"`
	VendorName  string    `json:"vendor_name,omitempty"`
	Purpose     string    `json:"purpose,omitempty"`
	Urgent      bool      `json:"urgent,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository is append-only; records are never updated or deleted.
type Repository interface {
	Create(ctx context.Context, rec Record) error
}

var ErrInvalidRecord = errors.New("vendorlog: invalid record")

// Service validates and stamps records before appending.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) Create(ctx context.Context, rec Record) error {
	if s == nil || s.repo == nil {
		return errors.New("vendorlog: repository not configured")
	}
	if rec.WorkspaceID == "" || rec.CallID == "" {
		return ErrInvalidRecord
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock().UTC()
	}
	return s.repo.Create(ctx, rec)
}

// MemoryRepo is an in-memory append-only repository useful for tests.
type MemoryRepo struct {
	mu      sync.Mutex
	records []Record
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepo) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}
