package testbatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/risklab/internal/core"
)

// MemoryStore is an in-memory batch store.
type MemoryStore struct {
	batches   map[int64]*core.TestBatch
	caseOwner map[int64]int64
	nextBatch int64
	nextCase  int64
	mu        sync.RWMutex
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:   make(map[int64]*core.TestBatch),
		caseOwner: make(map[int64]int64),
		now:       time.Now,
	}
}

// Create adds a batch and its cases.
func (m *MemoryStore) Create(ctx context.Context, in core.TestBatchInput) (*core.TestBatch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	m.nextBatch++
	b := &core.TestBatch{
		ID:          m.nextBatch,
		Name:        in.Name,
		Description: in.Description,
		StrategyID:  in.StrategyID,
		Status:      core.BatchPending,
		TestCases:   make([]core.TestCase, 0, len(in.TestCases)),
		CreatedAt:   now,
	}
	for _, tc := range in.TestCases {
		m.nextCase++
		b.TestCases = append(b.TestCases, core.TestCase{
			ID:             m.nextCase,
			BatchID:        b.ID,
			InputData:      tc.InputData,
			ExpectedOutput: tc.ExpectedOutput,
			Status:         core.CasePending,
			CreatedAt:      now,
		})
		m.caseOwner[m.nextCase] = b.ID
	}
	m.batches[b.ID] = b

	return cloneBatch(b), nil
}

// Get retrieves a batch by ID.
func (m *MemoryStore) Get(ctx context.Context, id int64) (*core.TestBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.batches[id]
	if !ok {
		return nil, notFound(id)
	}
	return cloneBatch(b), nil
}

// SetStatus updates a batch status.
func (m *MemoryStore) SetStatus(ctx context.Context, id int64, status core.BatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.batches[id]
	if !ok {
		return notFound(id)
	}
	now := m.now().UTC()
	b.Status = status
	b.UpdatedAt = &now
	return nil
}

// UpdateCase replaces the outcome fields of a stored case.
func (m *MemoryStore) UpdateCase(ctx context.Context, tc core.TestCase) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batchID, ok := m.caseOwner[tc.ID]
	if !ok {
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("unknown test case %d", tc.ID))
	}
	b := m.batches[batchID]
	for i := range b.TestCases {
		stored := &b.TestCases[i]
		if stored.ID != tc.ID {
			continue
		}
		now := m.now().UTC()
		stored.Status = tc.Status
		stored.ActualOutput = tc.ActualOutput
		stored.ErrorMessage = tc.ErrorMessage
		stored.ExecutionTime = tc.ExecutionTime
		stored.UpdatedAt = &now
		break
	}
	return nil
}

func cloneBatch(b *core.TestBatch) *core.TestBatch {
	c := *b
	c.TestCases = append([]core.TestCase(nil), b.TestCases...)
	return &c
}

func notFound(id int64) error {
	return core.WrapError(core.ErrBatchNotFound, fmt.Errorf("id %d", id))
}
