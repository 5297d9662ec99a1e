package store

import (
	"context"
	"sort"
	"sync"

	"bridgemint/internal/hold"
)

// MemoryHoldStore keeps holds in a process-local map. Suitable for the
// reference deployment and tests.
type MemoryHoldStore struct {
	mu   sync.RWMutex
	data map[string]hold.Hold
}

func NewMemoryHoldStore() *MemoryHoldStore {
	return &MemoryHoldStore{data: make(map[string]hold.Hold)}
}

func (m *MemoryHoldStore) Put(_ context.Context, h hold.Hold) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[h.HoldID] = h
	return nil
}

func (m *MemoryHoldStore) Get(_ context.Context, holdID string) (*hold.Hold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.data[holdID]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (m *MemoryHoldStore) List(_ context.Context) ([]hold.Hold, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]hold.Hold, 0, len(m.data))
	for _, h := range m.data {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MemoryTransferStore keeps transfers in a process-local map.
type MemoryTransferStore struct {
	mu   sync.RWMutex
	data map[string]Transfer
}

func NewMemoryTransferStore() *MemoryTransferStore {
	return &MemoryTransferStore{data: make(map[string]Transfer)}
}

func (m *MemoryTransferStore) Put(_ context.Context, tr Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[tr.ID] = tr
	return nil
}

func (m *MemoryTransferStore) Get(_ context.Context, id string) (*Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tr, ok := m.data[id]
	if !ok {
		return nil, nil
	}
	return &tr, nil
}

func (m *MemoryTransferStore) List(_ context.Context) ([]Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transfer, 0, len(m.data))
	for _, tr := range m.data {
		out = append(out, tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}
