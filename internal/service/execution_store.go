package service

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/unclebandit/dialer-backend/internal/model"
)

// ExecutionStateStore holds the transient per-campaign execution view.
// The campaign row stays the durable source of truth.
type ExecutionStateStore interface {
	Get(ctx context.Context, campaignID uuid.UUID) (*model.ExecutionState, bool, error)
	Put(ctx context.Context, state *model.ExecutionState) error
}

// MemoryExecutionStore keeps states for the lifetime of the process.
type MemoryExecutionStore struct {
	mu     sync.RWMutex
	states map[uuid.UUID]model.ExecutionState
}

func NewMemoryExecutionStore() *MemoryExecutionStore {
	return &MemoryExecutionStore{states: make(map[uuid.UUID]model.ExecutionState)}
}

func (m *MemoryExecutionStore) Get(_ context.Context, campaignID uuid.UUID) (*model.ExecutionState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[campaignID]
	if !ok {
		return nil, false, nil
	}
	s.Errors = append([]string{}, s.Errors...)
	return &s, true, nil
}

func (m *MemoryExecutionStore) Put(_ context.Context, state *model.ExecutionState) error {
	s := *state
	s.Errors = append([]string{}, state.Errors...)
	m.mu.Lock()
	m.states[state.CampaignID] = s
	m.mu.Unlock()
	return nil
}

var _ ExecutionStateStore = (*MemoryExecutionStore)(nil)
