package minter

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"bridgemint/internal/authz"
)

// FakeClient emulates the chain deterministically for tests: tx hashes
// are derived from the hold id, and every submitted mint emits both
// events unless told otherwise.
type FakeClient struct {
	mu sync.Mutex

	// UsedHolds marks holds the preflight reports as consumed.
	UsedHolds map[common.Hash]bool
	// PreflightErr makes IsHoldUsed fail (the caller should proceed).
	PreflightErr error
	// SubmitErr makes submission fail.
	SubmitErr error
	// ConfirmErr makes confirmation fail.
	ConfirmErr error
	// OmitPriceSnapshot suppresses the PriceSnapshot event.
	OmitPriceSnapshot bool
	// BlockNumber reported in confirmations.
	BlockNumber uint64

	submitted map[common.Hash]authz.MintAuthorization
	// MintCalls counts on-chain submissions.
	MintCalls int
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		UsedHolds:   make(map[common.Hash]bool),
		BlockNumber: 1_000_000,
		submitted:   make(map[common.Hash]authz.MintAuthorization),
	}
}

func (f *FakeClient) IsHoldUsed(_ context.Context, holdID common.Hash) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PreflightErr != nil {
		return false, f.PreflightErr
	}
	return f.UsedHolds[holdID], nil
}

func (f *FakeClient) MintWithAuthorization(_ context.Context, auth authz.MintAuthorization, _ []byte) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return common.Hash{}, f.SubmitErr
	}
	f.MintCalls++
	txHash := fakeTxHash(auth.HoldID)
	f.submitted[txHash] = auth
	return txHash, nil
}

func (f *FakeClient) WaitForConfirmation(_ context.Context, txHash common.Hash) (*Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ConfirmErr != nil {
		return nil, f.ConfirmErr
	}

	conf := &Confirmation{
		TxHash:      txHash,
		BlockNumber: f.BlockNumber,
		GasUsed:     65_000,
	}

	auth, ok := f.submitted[txHash]
	if !ok {
		// Plain transfer confirmation: no mint events.
		return conf, nil
	}

	conf.Events.Minted = &Minted{
		HoldId:       auth.HoldID,
		Amount:       auth.Amount,
		Beneficiary:  auth.Beneficiary,
		Iso20022Hash: auth.ISO20022Hash,
		Iso4217:      auth.ISO4217,
		Timestamp:    new(big.Int).SetUint64(auth.PriceTs),
	}
	if !f.OmitPriceSnapshot {
		conf.Events.PriceSnapshot = &PriceSnapshot{
			PairId:   crypto.Keccak256Hash([]byte("ETH/USD")),
			Price:    auth.EthUsdPrice,
			Decimals: auth.PriceDecimals,
			Ts:       auth.PriceTs,
			HoldId:   auth.HoldID,
		}
	}
	return conf, nil
}

func (f *FakeClient) TransferUSD(_ context.Context, to common.Address, units *big.Int) (*Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}
	return &Confirmation{
		TxHash:      fakeTxHash(crypto.Keccak256Hash(to.Bytes(), units.Bytes())),
		BlockNumber: f.BlockNumber,
		GasUsed:     21_000,
	}, nil
}

func (f *FakeClient) Ping(context.Context) error { return nil }

func fakeTxHash(seed common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte("tx:"), seed.Bytes())
}

var (
	_ Client        = (*FakeClient)(nil)
	_ HealthChecker = (*FakeClient)(nil)
)
