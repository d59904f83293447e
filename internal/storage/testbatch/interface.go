// Package testbatch persists test batches and their cases.
package testbatch

import (
	"context"

	"github.com/newthinker/risklab/internal/core"
)

// Store defines the interface for test batch persistence.
type Store interface {
	// Create persists a pending batch with its pending cases.
	Create(ctx context.Context, in core.TestBatchInput) (*core.TestBatch, error)

	// Get retrieves a batch with its cases ordered by ID.
	Get(ctx context.Context, id int64) (*core.TestBatch, error)

	// SetStatus moves a batch to status.
	SetStatus(ctx context.Context, id int64, status core.BatchStatus) error

	// UpdateCase stores the execution outcome of a case.
	UpdateCase(ctx context.Context, tc core.TestCase) error
}
