package callstate

import (
	"context"
	"errors"
	"sync"
)

// Store is the session persistence contract.
//
// Load returns ErrNotFound for an unknown call; the orchestrator then
// starts a fresh state. Save fully replaces the record.

var ErrNotFound = errors.New("callstate: not found")

type Store interface {
	Load(ctx context.Context, callID string) (CallState, error)
	Save(ctx context.Context, state CallState) error
}

// Enricher receives newly extracted contact/location facts so an
// external customer record can be updated. Calls are best-effort; the
// turn must never fail on an enricher error.
type Enricher interface {
	EnrichCustomer(ctx context.Context, workspaceID, callID string, e Entities) error
}

// MemoryStore is an in-memory session store for tests and local runs.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]CallState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]CallState)}
}

func (s *MemoryStore) Load(ctx context.Context, callID string) (CallState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[callID]
	if !ok {
		return CallState{}, ErrNotFound
	}
	return st, nil
}

func (s *MemoryStore) Save(ctx context.Context, state CallState) error {
	if state.CallID == "" {
		return errors.New("callstate: call_id required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.CallID] = state
	return nil
}
