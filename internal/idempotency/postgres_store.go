package idempotency

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists records in a PostgreSQL table. The claim uses a
// conditional insert so it stays atomic across processes, unlike a
// separate get-then-set.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS idempotency_records (
    key TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    result BYTEA,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// NewPostgresStore connects using the DSN and ensures the table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStoreWithPool reuses an existing pool.
func NewPostgresStoreWithPool(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("nil pool")
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Begin(ctx context.Context, key string) (BeginResult, error) {
	tag, err := p.pool.Exec(ctx, `
INSERT INTO idempotency_records (key, status) VALUES ($1, $2)
ON CONFLICT (key) DO NOTHING
`, key, string(StatusProcessing))
	if err != nil {
		return BeginResult{}, fmt.Errorf("claim key: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return BeginResult{Outcome: OutcomeFresh}, nil
	}

	var (
		status string
		result []byte
	)
	err = p.pool.QueryRow(ctx, `
SELECT status, result FROM idempotency_records WHERE key = $1
`, key).Scan(&status, &result)
	if errors.Is(err, pgx.ErrNoRows) {
		// Row vanished between claim and read; report in progress and
		// let the caller retry.
		return BeginResult{Outcome: OutcomeInProgress}, nil
	}
	if err != nil {
		return BeginResult{}, fmt.Errorf("read record: %w", err)
	}

	switch Status(status) {
	case StatusCompleted:
		return BeginResult{Outcome: OutcomeCached, Cached: result}, nil
	case StatusFailed:
		// Re-claim only if still failed, so a concurrent retry cannot
		// double-claim.
		tag, err := p.pool.Exec(ctx, `
UPDATE idempotency_records SET status = $2, result = NULL, created_at = now()
WHERE key = $1 AND status = $3
`, key, string(StatusProcessing), string(StatusFailed))
		if err != nil {
			return BeginResult{}, fmt.Errorf("reclaim key: %w", err)
		}
		if tag.RowsAffected() == 1 {
			return BeginResult{Outcome: OutcomeFresh}, nil
		}
		return BeginResult{Outcome: OutcomeInProgress}, nil
	default:
		return BeginResult{Outcome: OutcomeInProgress}, nil
	}
}

func (p *PostgresStore) Complete(ctx context.Context, key string, result []byte) error {
	return p.finalize(ctx, key, StatusCompleted, result)
}

func (p *PostgresStore) Fail(ctx context.Context, key string, result []byte) error {
	return p.finalize(ctx, key, StatusFailed, result)
}

func (p *PostgresStore) finalize(ctx context.Context, key string, status Status, result []byte) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO idempotency_records (key, status, result)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE
SET status = EXCLUDED.status,
    result = EXCLUDED.result
`, key, string(status), result)
	return err
}

var _ Store = (*PostgresStore)(nil)
