// Package strategy persists credit-risk strategies.
package strategy

import (
	"context"

	"github.com/newthinker/risklab/internal/core"
)

// DefaultLimit is the page size used when ListFilter.Limit is nil.
const DefaultLimit = 100

// Store defines the interface for strategy persistence.
type Store interface {
	// Create persists a new strategy and assigns its ID.
	Create(ctx context.Context, in core.StrategyInput) (*core.Strategy, error)

	// Get retrieves a strategy by ID.
	Get(ctx context.Context, id int64) (*core.Strategy, error)

	// List returns strategies ordered by ID.
	List(ctx context.Context, filter ListFilter) ([]core.Strategy, error)

	// Update applies the set fields of in to an existing strategy.
	Update(ctx context.Context, id int64, in core.StrategyInput) (*core.Strategy, error)

	// Delete removes a strategy and returns it as it was.
	Delete(ctx context.Context, id int64) (*core.Strategy, error)
}

// ListFilter pages through strategies. A nil Limit means DefaultLimit; an
// explicit zero returns no rows.
type ListFilter struct {
	Skip  int
	Limit *int
}

func (f ListFilter) limit() int {
	if f.Limit == nil {
		return DefaultLimit
	}
	return max(*f.Limit, 0)
}
