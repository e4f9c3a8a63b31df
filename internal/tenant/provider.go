package tenant

import (
	"context"
	"errors"
	"sync"
)

// Provider loads the runtime configuration for one company.
//
// Implementations must be safe for concurrent use; the runtime calls
// this at every turn and expects it to be cheap (cached upstream or
// indexed by primary key).

var ErrNotFound = errors.New("tenant: company not found")

type Provider interface {
	LoadRuntimeConfig(ctx context.Context, companyID string) (RuntimeConfig, error)
}

// MemoryProvider serves a fixed set of configs. Useful for tests and
// local runs.
type MemoryProvider struct {
	mu      sync.RWMutex
	configs map[string]RuntimeConfig
}

func NewMemoryProvider(configs ...RuntimeConfig) *MemoryProvider {
	m := &MemoryProvider{configs: make(map[string]RuntimeConfig)}
	for _, c := range configs {
		m.configs[c.CompanyID] = c
	}
	return m
}

func (m *MemoryProvider) Put(c RuntimeConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[c.CompanyID] = c
}

func (m *MemoryProvider) LoadRuntimeConfig(ctx context.Context, companyID string) (RuntimeConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.configs[companyID]
	if !ok {
		return RuntimeConfig{}, ErrNotFound
	}
	return c, nil
}
