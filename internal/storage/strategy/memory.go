package strategy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/newthinker/risklab/internal/core"
)

// MemoryStore is an in-memory strategy store.
type MemoryStore struct {
	strategies map[int64]core.Strategy
	nextID     int64
	mu         sync.RWMutex
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strategies: make(map[int64]core.Strategy),
		now:        time.Now,
	}
}

// Create adds a strategy to the store.
func (m *MemoryStore) Create(ctx context.Context, in core.StrategyInput) (*core.Strategy, error) {
	if err := in.ValidateCreate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	s := core.Strategy{
		ID:        m.nextID,
		Status:    core.StrategyInactive,
		CreatedAt: m.now().UTC(),
	}
	in.Apply(&s)
	m.strategies[s.ID] = s

	return &s, nil
}

// Get retrieves a strategy by ID.
func (m *MemoryStore) Get(ctx context.Context, id int64) (*core.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.strategies[id]
	if !ok {
		return nil, notFound(id)
	}
	return &s, nil
}

// List returns strategies ordered by ID.
func (m *MemoryStore) List(ctx context.Context, filter ListFilter) ([]core.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]core.Strategy, 0, len(m.strategies))
	for _, s := range m.strategies {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	if filter.Skip >= len(result) {
		return []core.Strategy{}, nil
	}
	if filter.Skip > 0 {
		result = result[filter.Skip:]
	}
	if limit := filter.limit(); limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// Update applies in to the stored strategy.
func (m *MemoryStore) Update(ctx context.Context, id int64, in core.StrategyInput) (*core.Strategy, error) {
	if err := in.ValidateUpdate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.strategies[id]
	if !ok {
		return nil, notFound(id)
	}
	in.Apply(&s)
	now := m.now().UTC()
	s.UpdatedAt = &now
	m.strategies[id] = s

	return &s, nil
}

// Delete removes a strategy.
func (m *MemoryStore) Delete(ctx context.Context, id int64) (*core.Strategy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.strategies[id]
	if !ok {
		return nil, notFound(id)
	}
	delete(m.strategies, id)
	return &s, nil
}

func notFound(id int64) error {
	return core.WrapError(core.ErrStrategyNotFound, fmt.Errorf("id %d", id))
}
