package testbatch

import (
	"context"
	"errors"
	"testing"

	"github.com/newthinker/risklab/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInput() core.TestBatchInput {
	return core.TestBatchInput{
		Name:       "nightly",
		StrategyID: 7,
		TestCases: []core.TestCaseInput{
			{InputData: map[string]any{"credit_score": 700}},
			{InputData: map[string]any{"credit_score": 300}, ExpectedOutput: map[string]any{"risk_level": "high"}},
		},
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	created, err := store.Create(ctx, sampleInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, core.BatchPending, created.Status)
	require.Len(t, created.TestCases, 2)
	for _, tc := range created.TestCases {
		assert.Equal(t, created.ID, tc.BatchID)
		assert.Equal(t, core.CasePending, tc.Status)
	}

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "nightly", got.Name)
	assert.Equal(t, "high", got.TestCases[1].ExpectedOutput["risk_level"])
}

func TestMemoryStore_CreateValidates(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Create(context.Background(), core.TestBatchInput{Name: "x"})
	assert.True(t, errors.Is(err, core.ErrMissingField))
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), 5)
	assert.True(t, errors.Is(err, core.ErrBatchNotFound))
}

func TestMemoryStore_SetStatus(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	created, _ := store.Create(ctx, sampleInput())

	require.NoError(t, store.SetStatus(ctx, created.ID, core.BatchRunning))
	got, _ := store.Get(ctx, created.ID)
	assert.Equal(t, core.BatchRunning, got.Status)
	assert.NotNil(t, got.UpdatedAt)

	assert.True(t, errors.Is(store.SetStatus(ctx, 99, core.BatchFailed), core.ErrBatchNotFound))
}

func TestMemoryStore_UpdateCase(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	created, _ := store.Create(ctx, sampleInput())

	ms := int64(12)
	tc := created.TestCases[0]
	tc.Status = core.CasePassed
	tc.ActualOutput = map[string]any{"risk_level": "low"}
	tc.ExecutionTime = &ms
	require.NoError(t, store.UpdateCase(ctx, tc))

	got, _ := store.Get(ctx, created.ID)
	assert.Equal(t, core.CasePassed, got.TestCases[0].Status)
	assert.Equal(t, "low", got.TestCases[0].ActualOutput["risk_level"])
	assert.Equal(t, int64(12), *got.TestCases[0].ExecutionTime)
	assert.Equal(t, core.CasePending, got.TestCases[1].Status)

	err := store.UpdateCase(ctx, core.TestCase{ID: 1000})
	assert.True(t, errors.Is(err, core.ErrInvalidRequest))
}

func TestMemoryStore_GetReturnsSnapshot(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	created, _ := store.Create(ctx, sampleInput())

	created.TestCases[0].Status = core.CaseError
	got, _ := store.Get(ctx, created.ID)
	assert.Equal(t, core.CasePending, got.TestCases[0].Status)
}

func TestPostgresStore_NilPool(t *testing.T) {
	store := NewPostgresStore(nil)
	ctx := context.Background()

	_, err := store.Get(ctx, 1)
	assert.True(t, errors.Is(err, core.ErrStorageFailed))
	assert.True(t, errors.Is(store.SetStatus(ctx, 1, core.BatchRunning), core.ErrStorageFailed))
	assert.True(t, errors.Is(store.UpdateCase(ctx, core.TestCase{ID: 1}), core.ErrStorageFailed))
}

func TestJSONColumns(t *testing.T) {
	data, err := encodeJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = encodeJSON(map[string]any{"a": 1.5})
	require.NoError(t, err)
	decoded, err := decodeJSON(data)
	require.NoError(t, err)
	assert.Equal(t, 1.5, decoded["a"])

	decoded, err = decodeJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}

var _ Store = (*MemoryStore)(nil)
var _ Store = (*PostgresStore)(nil)
