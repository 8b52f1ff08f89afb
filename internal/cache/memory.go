package cache

import (
	"context"
	"sync"

	"github.com/alexisbeaulieu97/stageplan/internal/ports"
	"github.com/alexisbeaulieu97/stageplan/internal/stage"
	"github.com/alexisbeaulieu97/stageplan/internal/step"
)

// MemoryStore is a process-local PlanCache. Entries are stored encoded so
// every Get decodes fresh steps.
type MemoryStore struct {
	mu      sync.RWMutex
	prefix  string
	entries map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefix: DefaultPrefix, entries: make(map[string][]byte)}
}

// Get implements ports.PlanCache.
func (m *MemoryStore) Get(ctx context.Context, id stage.ID, stagesOnly bool) ([]*step.Step, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.RLock()
	data, ok := m.entries[Key(m.prefix, id, stagesOnly)]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	steps, err := decode(id, stagesOnly, data)
	if err != nil {
		return nil, false, err
	}
	return steps, true, nil
}

// Put implements ports.PlanCache.
func (m *MemoryStore) Put(ctx context.Context, id stage.ID, stagesOnly bool, steps []*step.Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := encode(id, stagesOnly, steps)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[Key(m.prefix, id, stagesOnly)] = data
	return nil
}

// Clear implements ports.PlanCache.
func (m *MemoryStore) Clear(ctx context.Context, id stage.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		m.entries = make(map[string][]byte)
		return nil
	}
	for _, key := range keysFor(m.prefix, id) {
		delete(m.entries, key)
	}
	return nil
}

// Len reports the number of stored entries.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

var _ ports.PlanCache = (*MemoryStore)(nil)
