// Package minter talks to the BridgeMinter V2 contract: preflight reads,
// authorized-mint submission, confirmation waits, and event decoding. It
// also carries the ERC-20 transfer used by the send path.
package minter

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"bridgemint/internal/authz"
)

// Minted mirrors the contract's Minted event.
type Minted struct {
	HoldId       [32]byte
	Amount       *big.Int
	Beneficiary  common.Address
	Iso20022Hash [32]byte
	Iso4217      [3]byte
	Signer       common.Address
	Timestamp    *big.Int
}

// PriceSnapshot mirrors the contract's PriceSnapshot event.
type PriceSnapshot struct {
	PairId   [32]byte
	Price    *big.Int
	Decimals uint8
	Ts       uint64
	HoldId   [32]byte
}

// Events are the decoded logs of a confirmed mint. Nil fields mean the
// event was not observed.
type Events struct {
	Minted        *Minted
	PriceSnapshot *PriceSnapshot
}

// Confirmation describes a mined and sufficiently confirmed transaction.
type Confirmation struct {
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Events      Events
}

// Client abstracts the on-chain minting interaction.
type Client interface {
	// IsHoldUsed reports whether the contract has already consumed the
	// hold. Callers treat errors as "unknown" and proceed: the check is
	// best-effort, not a hard dependency.
	IsHoldUsed(ctx context.Context, holdID common.Hash) (bool, error)

	// MintWithAuthorization submits the signed authorization and returns
	// the transaction hash without waiting for inclusion.
	MintWithAuthorization(ctx context.Context, auth authz.MintAuthorization, signature []byte) (common.Hash, error)

	// WaitForConfirmation blocks until the transaction has the configured
	// confirmation depth, then returns the decoded receipt.
	WaitForConfirmation(ctx context.Context, txHash common.Hash) (*Confirmation, error)

	// TransferUSD sends token units from the operator wallet and waits
	// for confirmation.
	TransferUSD(ctx context.Context, to common.Address, units *big.Int) (*Confirmation, error)
}

// HealthChecker is implemented by clients that can probe their node.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
