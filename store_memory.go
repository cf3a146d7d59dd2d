package portal

import (
	"context"
	"sync"
)

// MemoryStore is an ephemeral TokenStore, mostly for tests and short-lived
// tools. Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	reg   *Registration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token, nil
}

func (m *MemoryStore) SetToken(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) ClearToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

func (m *MemoryStore) Registration(ctx context.Context) (*Registration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.reg == nil {
		return nil, nil
	}
	reg := *m.reg
	return &reg, nil
}

func (m *MemoryStore) SetRegistration(ctx context.Context, reg *Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reg == nil {
		m.reg = nil
		return nil
	}
	copied := *reg
	m.reg = &copied
	return nil
}

func (m *MemoryStore) ScrubPassword(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reg != nil {
		m.reg.Password = ""
	}
	return nil
}

func (m *MemoryStore) ClearRegistration(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reg = nil
	return nil
}

var _ TokenStore = (*MemoryStore)(nil)
