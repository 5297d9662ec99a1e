// Package hold defines the mint-hold record and the derivation of its
// on-chain identifier.
package hold

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a hold.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusMinted  Status = "MINTED"
	StatusFailed  Status = "FAILED"
)

// Hold is one in-flight or completed mint attempt. It is created PENDING
// when processing starts and moved to MINTED or FAILED exactly once.
type Hold struct {
	HoldID      string          `json:"holdId"`
	DaesRef     string          `json:"daesRef"`
	Amount      decimal.Decimal `json:"amount"`
	Beneficiary string          `json:"beneficiary"`
	Status      Status          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	TxHash      string          `json:"txHash,omitempty"`
	EthUsdPrice decimal.Decimal `json:"ethUsdPrice,omitempty"`
	PriceTs     int64           `json:"priceTs,omitempty"`
}

// NewReference returns a globally unique human-readable hold reference.
// The uuid fragment keeps two references created in the same millisecond
// distinct.
func NewReference() string {
	return fmt.Sprintf("DAES-ETH-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// IDFromReference derives the 32-byte on-chain hold identifier as the
// keccak256 digest of the reference string.
func IDFromReference(ref string) common.Hash {
	return crypto.Keccak256Hash([]byte(ref))
}
