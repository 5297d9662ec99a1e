package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"bridgemint/internal/hold"
)

const createHoldsSQL = `
CREATE TABLE IF NOT EXISTS holds (
    hold_id TEXT PRIMARY KEY,
    daes_ref TEXT NOT NULL,
    amount TEXT NOT NULL,
    beneficiary TEXT NOT NULL,
    status TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    tx_hash TEXT NOT NULL DEFAULT '',
    eth_usd_price TEXT NOT NULL DEFAULT '0',
    price_ts BIGINT NOT NULL DEFAULT 0
);
`

const createTransfersSQL = `
CREATE TABLE IF NOT EXISTS transfers (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    amount TEXT NOT NULL,
    to_address TEXT NOT NULL,
    from_wallet TEXT NOT NULL DEFAULT '',
    memo TEXT NOT NULL DEFAULT '',
    tx_hash TEXT NOT NULL,
    explorer_url TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    ts TIMESTAMPTZ NOT NULL,
    block_number BIGINT NOT NULL DEFAULT 0,
    gas_used TEXT NOT NULL DEFAULT ''
);
`

// PostgresHoldStore persists holds in a PostgreSQL table. Amounts are
// stored as decimal strings to avoid float precision loss.
type PostgresHoldStore struct {
	pool *pgxpool.Pool
}

func NewPostgresHoldStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresHoldStore, error) {
	if pool == nil {
		return nil, errors.New("nil pool")
	}
	if _, err := pool.Exec(ctx, createHoldsSQL); err != nil {
		return nil, fmt.Errorf("create holds table: %w", err)
	}
	return &PostgresHoldStore{pool: pool}, nil
}

func (p *PostgresHoldStore) Put(ctx context.Context, h hold.Hold) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO holds (hold_id, daes_ref, amount, beneficiary, status, created_at, tx_hash, eth_usd_price, price_ts)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (hold_id) DO UPDATE
SET status = EXCLUDED.status,
    tx_hash = EXCLUDED.tx_hash,
    eth_usd_price = EXCLUDED.eth_usd_price,
    price_ts = EXCLUDED.price_ts
`, h.HoldID, h.DaesRef, h.Amount.String(), h.Beneficiary, string(h.Status), h.CreatedAt, h.TxHash, h.EthUsdPrice.String(), h.PriceTs)
	return err
}

func (p *PostgresHoldStore) Get(ctx context.Context, holdID string) (*hold.Hold, error) {
	row := p.pool.QueryRow(ctx, `
SELECT hold_id, daes_ref, amount, beneficiary, status, created_at, tx_hash, eth_usd_price, price_ts
FROM holds WHERE hold_id = $1
`, holdID)
	h, err := scanHold(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (p *PostgresHoldStore) List(ctx context.Context) ([]hold.Hold, error) {
	rows, err := p.pool.Query(ctx, `
SELECT hold_id, daes_ref, amount, beneficiary, status, created_at, tx_hash, eth_usd_price, price_ts
FROM holds ORDER BY created_at DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []hold.Hold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHold(row rowScanner) (*hold.Hold, error) {
	var (
		h             hold.Hold
		amount, price string
		status        string
	)
	if err := row.Scan(&h.HoldID, &h.DaesRef, &amount, &h.Beneficiary, &status, &h.CreatedAt, &h.TxHash, &price, &h.PriceTs); err != nil {
		return nil, err
	}
	var err error
	if h.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse hold amount: %w", err)
	}
	if h.EthUsdPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse hold price: %w", err)
	}
	h.Status = hold.Status(status)
	return &h, nil
}

// PostgresTransferStore persists transfers in a PostgreSQL table.
type PostgresTransferStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTransferStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresTransferStore, error) {
	if pool == nil {
		return nil, errors.New("nil pool")
	}
	if _, err := pool.Exec(ctx, createTransfersSQL); err != nil {
		return nil, fmt.Errorf("create transfers table: %w", err)
	}
	return &PostgresTransferStore{pool: pool}, nil
}

func (p *PostgresTransferStore) Put(ctx context.Context, tr Transfer) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO transfers (id, type, amount, to_address, from_wallet, memo, tx_hash, explorer_url, status, ts, block_number, gas_used)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status,
    tx_hash = EXCLUDED.tx_hash,
    block_number = EXCLUDED.block_number,
    gas_used = EXCLUDED.gas_used
`, tr.ID, tr.Type, tr.Amount.String(), tr.ToAddress, tr.FromWallet, tr.Memo, tr.TxHash, tr.ExplorerURL, string(tr.Status), tr.Timestamp, tr.BlockNumber, tr.GasUsed)
	return err
}

func (p *PostgresTransferStore) Get(ctx context.Context, id string) (*Transfer, error) {
	row := p.pool.QueryRow(ctx, `
SELECT id, type, amount, to_address, from_wallet, memo, tx_hash, explorer_url, status, ts, block_number, gas_used
FROM transfers WHERE id = $1
`, id)
	tr, err := scanTransfer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tr, nil
}

func (p *PostgresTransferStore) List(ctx context.Context) ([]Transfer, error) {
	rows, err := p.pool.Query(ctx, `
SELECT id, type, amount, to_address, from_wallet, memo, tx_hash, explorer_url, status, ts, block_number, gas_used
FROM transfers ORDER BY ts DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transfer
	for rows.Next() {
		tr, err := scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *tr)
	}
	return out, rows.Err()
}

func scanTransfer(row rowScanner) (*Transfer, error) {
	var (
		tr     Transfer
		amount string
		status string
	)
	if err := row.Scan(&tr.ID, &tr.Type, &amount, &tr.ToAddress, &tr.FromWallet, &tr.Memo, &tr.TxHash, &tr.ExplorerURL, &status, &tr.Timestamp, &tr.BlockNumber, &tr.GasUsed); err != nil {
		return nil, err
	}
	var err error
	if tr.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse transfer amount: %w", err)
	}
	tr.Status = TransferStatus(status)
	return &tr, nil
}
