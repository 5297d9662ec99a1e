// Package store persists hold and transfer records behind small
// interfaces so the in-memory backend can be swapped for Postgres
// without touching the mint service.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bridgemint/internal/hold"
)

// TransferStatus is the lifecycle state of a token send.
type TransferStatus string

const (
	TransferPending   TransferStatus = "PENDING"
	TransferCompleted TransferStatus = "COMPLETED"
	TransferFailed    TransferStatus = "FAILED"
)

// Transfer records one outbound token send. Its lifecycle is independent
// of holds; it is written by the send path and read for statistics.
type Transfer struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	ToAddress   string          `json:"toAddress"`
	FromWallet  string          `json:"fromWallet,omitempty"`
	Memo        string          `json:"memo,omitempty"`
	TxHash      string          `json:"txHash"`
	ExplorerURL string          `json:"explorerUrl,omitempty"`
	Status      TransferStatus  `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
	GasUsed     string          `json:"gasUsed,omitempty"`
}

// HoldStore persists hold records keyed by holdId.
type HoldStore interface {
	Put(ctx context.Context, h hold.Hold) error
	Get(ctx context.Context, holdID string) (*hold.Hold, error)
	List(ctx context.Context) ([]hold.Hold, error)
}

// TransferStore persists transfer records keyed by id.
type TransferStore interface {
	Put(ctx context.Context, tr Transfer) error
	Get(ctx context.Context, id string) (*Transfer, error)
	List(ctx context.Context) ([]Transfer, error)
}
