package testbatch

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/newthinker/risklab/internal/core"
)

const (
	batchColumns = `id, name, description, strategy_id, status, created_at, updated_at`
	caseColumns  = `id, batch_id, input_data, expected_output, actual_output, status, error_message, execution_time, created_at, updated_at`
)

// PostgresStore persists batches in test_batches and test_cases.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a PostgresStore backed by the provided pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ensurePool() (*pgxpool.Pool, error) {
	if s.pool == nil {
		return nil, core.WrapError(core.ErrStorageFailed, fmt.Errorf("batch store: nil pool"))
	}
	return s.pool, nil
}

// Create inserts the batch and its cases in one transaction.
func (s *PostgresStore) Create(ctx context.Context, in core.TestBatchInput) (*core.TestBatch, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}

	var batch *core.TestBatch
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			`INSERT INTO test_batches (name, description, strategy_id, status)
			 VALUES ($1, $2, $3, $4)
			 RETURNING `+batchColumns,
			in.Name, in.Description, in.StrategyID, string(core.BatchPending))
		b, err := scanBatch(row)
		if err != nil {
			return err
		}
		b.TestCases = make([]core.TestCase, 0, len(in.TestCases))

		for _, tc := range in.TestCases {
			input, err := encodeJSON(tc.InputData)
			if err != nil {
				return err
			}
			expected, err := encodeJSON(tc.ExpectedOutput)
			if err != nil {
				return err
			}
			row := tx.QueryRow(ctx,
				`INSERT INTO test_cases (batch_id, input_data, expected_output, status)
				 VALUES ($1, $2, $3, $4)
				 RETURNING `+caseColumns,
				b.ID, input, expected, string(core.CasePending))
			c, err := scanCase(row)
			if err != nil {
				return err
			}
			b.TestCases = append(b.TestCases, *c)
		}
		batch = b
		return nil
	})
	if err != nil {
		return nil, storageError("create", err)
	}
	return batch, nil
}

// Get selects a batch and its cases.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*core.TestBatch, error) {
	pool, err := s.ensurePool()
	if err != nil {
		return nil, err
	}

	row := pool.QueryRow(ctx, `SELECT `+batchColumns+` FROM test_batches WHERE id = $1`, id)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, storageError("select batch", err)
	}

	rows, err := pool.Query(ctx, `SELECT `+caseColumns+` FROM test_cases WHERE batch_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, storageError("select cases", err)
	}
	defer rows.Close()

	b.TestCases = []core.TestCase{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, storageError("scan case", err)
		}
		b.TestCases = append(b.TestCases, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("select cases", err)
	}
	return b, nil
}

// SetStatus updates the batch status column.
func (s *PostgresStore) SetStatus(ctx context.Context, id int64, status core.BatchStatus) error {
	pool, err := s.ensurePool()
	if err != nil {
		return err
	}
	tag, err := pool.Exec(ctx,
		`UPDATE test_batches SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return storageError("set status", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(id)
	}
	return nil
}

// UpdateCase stores the outcome columns of a case.
func (s *PostgresStore) UpdateCase(ctx context.Context, tc core.TestCase) error {
	pool, err := s.ensurePool()
	if err != nil {
		return err
	}
	actual, err := encodeJSON(tc.ActualOutput)
	if err != nil {
		return storageError("encode output", err)
	}
	tag, err := pool.Exec(ctx,
		`UPDATE test_cases
		 SET status = $2, actual_output = $3, error_message = $4, execution_time = $5, updated_at = now()
		 WHERE id = $1`,
		tc.ID, string(tc.Status), actual, tc.ErrorMessage, tc.ExecutionTime)
	if err != nil {
		return storageError("update case", err)
	}
	if tag.RowsAffected() == 0 {
		return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("unknown test case %d", tc.ID))
	}
	return nil
}

func scanBatch(row pgx.Row) (*core.TestBatch, error) {
	var (
		b      core.TestBatch
		status string
	)
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.StrategyID, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	b.Status = core.BatchStatus(status)
	return &b, nil
}

func scanCase(row pgx.Row) (*core.TestCase, error) {
	var (
		c                       core.TestCase
		status                  string
		input, expected, actual []byte
	)
	if err := row.Scan(&c.ID, &c.BatchID, &input, &expected, &actual, &status,
		&c.ErrorMessage, &c.ExecutionTime, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = core.CaseStatus(status)

	var err error
	if c.InputData, err = decodeJSON(input); err != nil {
		return nil, err
	}
	if c.ExpectedOutput, err = decodeJSON(expected); err != nil {
		return nil, err
	}
	if c.ActualOutput, err = decodeJSON(actual); err != nil {
		return nil, err
	}
	return &c, nil
}

// encodeJSON maps a nil map to SQL NULL.
func encodeJSON(v map[string]any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return data, nil
}

func decodeJSON(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v map[string]any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode json column: %w", err)
	}
	return v, nil
}

func storageError(op string, err error) error {
	return core.WrapError(core.ErrStorageFailed, fmt.Errorf("batch store: %s: %w", op, err))
}
