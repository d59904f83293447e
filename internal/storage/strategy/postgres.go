package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/newthinker/risklab/internal/core"
)

const strategyColumns = `id, name, description, sql_code, python_code, javascript_code, status, created_at, updated_at`

// PostgresStore persists strategies in the strategies table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore backed by the provided pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ensurePool() (*pgxpool.Pool, error) {
	if s.pool == nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("strategy store: nil pool"))
	}
	return s.pool, nil
}

// Create inserts a strategy.
func (s *PostgresStore) Create(ctx context.Context, in core.StrategyInput) (*core.Strategy, error) {
	if err := in.ValidateCreate(); err != nil {
		return nil, err
	}
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}

	draft := core.Strategy{Status: core.StrategyInactive}
	in.Apply(&draft)

	row := pool.QueryRow(ctx,
		`INSERT INTO strategies (name, description, sql_code, python_code, javascript_code, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+strategyColumns,
		draft.Name, draft.Description, draft.SQLCode, draft.PythonCode, draft.JavaScriptCode, string(draft.Status))
	created, err := scanStrategy(row)
	if err != nil {
		return nil, storageError("insert", err)
	}
	return created, nil
}

// Get selects a strategy by ID.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*core.Strategy, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}
	row := pool.QueryRow(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id = $1`, id)
	st, err := scanStrategy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageError("select", err)
	}
	return st, nil
}

// List selects a page of strategies ordered by ID.
func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]core.Strategy, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}
	rows, err := pool.Query(ctx,
		`SELECT `+strategyColumns+` FROM strategies ORDER BY id OFFSET $1 LIMIT $2`,
		max(filter.Skip, 0), filter.limit())
	if err != nil {
		return nil, storageError("list", err)
	}
	defer rows.Close()

	result := []core.Strategy{}
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, storageError("scan", err)
		}
		result = append(result, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list", err)
	}
	return result, nil
}

// Update applies in to the stored row inside a transaction.
func (s *PostgresStore) Update(ctx context.Context, id int64, in core.StrategyInput) (*core.Strategy, error) {
	if err := in.ValidateUpdate(); err != nil {
		return nil, err
	}
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}

	var updated *core.Strategy
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+strategyColumns+` FROM strategies WHERE id = $1 FOR UPDATE`, id)
		current, err := scanStrategy(row)
		if err != nil {
			return err
		}
		in.Apply(current)
		row = tx.QueryRow(ctx,
			`UPDATE strategies
			 SET name = $2, description = $3, sql_code = $4, python_code = $5,
			     javascript_code = $6, status = $7, updated_at = now()
			 WHERE id = $1
			 RETURNING `+strategyColumns,
			id, current.Name, current.Description, current.SQLCode, current.PythonCode,
			current.JavaScriptCode, string(current.Status))
		updated, err = scanStrategy(row)
		return err
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageError("update", err)
	}
	return updated, nil
}

// Delete removes a strategy, returning the deleted row.
func (s *PostgresStore) Delete(ctx context.Context, id int64) (*core.Strategy, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}
	row := pool.QueryRow(ctx, `DELETE FROM strategies WHERE id = $1 RETURNING `+strategyColumns, id)
	st, err := scanStrategy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageError("delete", err)
	}
	return st, nil
}

func scanStrategy(row pgx.Row) (*core.Strategy, error) {
	var (
		st     core.Strategy
		status string
	)
	if err := row.Scan(&st.ID, &st.Name, &st.Description, &st.SQLCode, &st.PythonCode,
		&st.JavaScriptCode, &status, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.Status = core.StrategyStatus(status)
	return &st, nil
}

func storageError(op string, err error) error {
	return core.WrapError(core.ErrStorageFailed, fmt.Errorf("strategy store: %s: %w", op, err))
}
