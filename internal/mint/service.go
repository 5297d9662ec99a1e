// Package mint orchestrates the full authorization pipeline: hold
// creation, receipt hashing, price snapshot, EIP-712 signing, on-chain
// submission, confirmation, and idempotent request handling.
package mint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bridgemint/internal/authz"
	"bridgemint/internal/fixedpoint"
	"bridgemint/internal/hold"
	"bridgemint/internal/idempotency"
	"bridgemint/internal/minter"
	"bridgemint/internal/oracle"
	"bridgemint/internal/receipt"
	"bridgemint/internal/store"
)

// Error codes surfaced in MintResult.Error.
const (
	ErrCodeInvalidBeneficiary = "INVALID_BENEFICIARY"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
	ErrCodeRequestInProgress  = "REQUEST_IN_PROGRESS"
	ErrCodeHoldAlreadyUsed    = "HOLD_ALREADY_USED"
)

var errHoldAlreadyUsed = errors.New(ErrCodeHoldAlreadyUsed)

// MintRequest is one fiat-denominated mint order.
type MintRequest struct {
	AmountUSD      decimal.Decimal `json:"amountUsd"`
	Beneficiary    string          `json:"beneficiary"`
	DebtorName     string          `json:"debtorName,omitempty"`
	DebtorID       string          `json:"debtorId,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
}

// PriceInfo reports the snapshot embedded in the authorization and
// whether the contract echoed it back as an event.
type PriceInfo struct {
	Source         string          `json:"source"`
	EthUsdPrice    decimal.Decimal `json:"ethUsdPrice"`
	PriceDecimals  uint8           `json:"priceDecimals"`
	PriceTs        int64           `json:"priceTs"`
	EmittedOnChain bool            `json:"emittedOnChain"`
}

// MintResult is the typed response; no error ever crosses this boundary
// as a Go error.
type MintResult struct {
	Success       bool             `json:"success"`
	HoldID        string           `json:"holdId,omitempty"`
	TxHash        string           `json:"txHash,omitempty"`
	ExplorerURL   string           `json:"explorerUrl,omitempty"`
	IsoReceipt    *receipt.Receipt `json:"isoReceipt,omitempty"`
	PriceSnapshot *PriceInfo       `json:"priceSnapshot,omitempty"`
	Error         string           `json:"error,omitempty"`
	Idempotent    bool             `json:"idempotent,omitempty"`
	EthUsdPrice   *decimal.Decimal `json:"ethUsdPrice,omitempty"`
	PriceDecimals uint8            `json:"priceDecimals,omitempty"`
	PriceTs       int64            `json:"priceTs,omitempty"`
}

// Options wires the service's collaborators.
type Options struct {
	Holds         store.HoldStore
	Transfers     store.TransferStore
	Idempotency   idempotency.Store
	Oracle        *oracle.Adapter
	Signer        *authz.Signer
	ReceiptSigner *receipt.Signer
	Client        minter.Client
	Nonces        *authz.NonceSource

	ChainID         int64
	Currency        string
	DeadlineWindow  time.Duration
	ExplorerBaseURL string
	MinterVersion   string
	DebtorName      string

	Log zerolog.Logger
}

// Service executes mint requests against the BridgeMinter contract.
type Service struct {
	opts Options
	now  func() time.Time
}

func NewService(opts Options) (*Service, error) {
	if opts.Holds == nil || opts.Transfers == nil || opts.Idempotency == nil {
		return nil, errors.New("all stores are required")
	}
	if opts.Oracle == nil || opts.Signer == nil || opts.ReceiptSigner == nil || opts.Client == nil {
		return nil, errors.New("oracle, signers, and chain client are required")
	}
	if opts.Nonces == nil {
		opts.Nonces = authz.NewNonceSource()
	}
	if opts.Currency == "" {
		opts.Currency = "USD"
	}
	if opts.DeadlineWindow <= 0 {
		opts.DeadlineWindow = 10 * time.Minute
	}
	if opts.ExplorerBaseURL == "" {
		opts.ExplorerBaseURL = "https://etherscan.io"
	}
	if opts.DebtorName == "" {
		opts.DebtorName = "DAES Treasury"
	}
	return &Service{opts: opts, now: time.Now}, nil
}

// ExecuteMint runs the pipeline and always returns a typed result.
func (s *Service) ExecuteMint(ctx context.Context, req MintRequest) MintResult {
	// Validation precedes every side effect: rejected requests leave no
	// idempotency record and no hold.
	if !common.IsHexAddress(req.Beneficiary) {
		return MintResult{Success: false, Error: ErrCodeInvalidBeneficiary}
	}
	if req.AmountUSD.Sign() <= 0 {
		return MintResult{Success: false, Error: ErrCodeInvalidAmount}
	}

	key := req.IdempotencyKey
	if key != "" {
		begin, err := s.opts.Idempotency.Begin(ctx, key)
		if err != nil {
			s.opts.Log.Error().Err(err).Str("key", key).Msg("idempotency claim failed")
			return MintResult{Success: false, Error: err.Error()}
		}
		switch begin.Outcome {
		case idempotency.OutcomeInProgress:
			return MintResult{Success: false, Error: ErrCodeRequestInProgress}
		case idempotency.OutcomeCached:
			var cached MintResult
			if err := json.Unmarshal(begin.Cached, &cached); err != nil {
				s.opts.Log.Error().Err(err).Str("key", key).Msg("cached result unreadable")
				return MintResult{Success: false, Error: "CACHED_RESULT_UNREADABLE"}
			}
			cached.Idempotent = true
			return cached
		}
	}

	result, err := s.process(ctx, req)
	if err != nil {
		result = MintResult{Success: false, Error: err.Error()}
	}

	if key != "" {
		payload, merr := json.Marshal(result)
		if merr != nil {
			s.opts.Log.Error().Err(merr).Msg("marshal result for idempotency store")
		} else if err != nil {
			if serr := s.opts.Idempotency.Fail(ctx, key, payload); serr != nil {
				s.opts.Log.Error().Err(serr).Str("key", key).Msg("record failed result")
			}
		} else {
			if serr := s.opts.Idempotency.Complete(ctx, key, payload); serr != nil {
				s.opts.Log.Error().Err(serr).Str("key", key).Msg("record completed result")
			}
		}
	}

	return result
}

func (s *Service) process(ctx context.Context, req MintRequest) (MintResult, error) {
	daesRef := hold.NewReference()
	holdID := hold.IDFromReference(daesRef)

	log := s.opts.Log.With().
		Str("daes_ref", daesRef).
		Str("hold_id", holdID.Hex()).
		Str("beneficiary", req.Beneficiary).
		Logger()
	log.Info().Str("amount_usd", req.AmountUSD.String()).Msg("mint request accepted")

	h := hold.Hold{
		HoldID:      holdID.Hex(),
		DaesRef:     daesRef,
		Amount:      req.AmountUSD,
		Beneficiary: req.Beneficiary,
		Status:      hold.StatusPending,
		CreatedAt:   s.now(),
		EthUsdPrice: decimal.Zero,
	}
	if err := s.opts.Holds.Put(ctx, h); err != nil {
		return MintResult{}, fmt.Errorf("persist hold: %w", err)
	}

	result, err := s.mint(ctx, req, daesRef, holdID, log)
	if err != nil {
		h.Status = hold.StatusFailed
		if perr := s.opts.Holds.Put(ctx, h); perr != nil {
			log.Error().Err(perr).Msg("mark hold failed")
		}
		return MintResult{}, err
	}
	return result, nil
}

func (s *Service) mint(ctx context.Context, req MintRequest, daesRef string, holdID common.Hash, log zerolog.Logger) (MintResult, error) {
	debtorID := req.DebtorID
	if debtorID == "" {
		debtorID = s.opts.Signer.Address().Hex()
	}
	debtorName := req.DebtorName
	if debtorName == "" {
		debtorName = s.opts.DebtorName
	}

	isoReceipt := receipt.Build(receipt.BuildParams{
		DaesRef:      daesRef,
		HoldID:       holdID.Hex(),
		Amount:       req.AmountUSD,
		Currency:     s.opts.Currency,
		DebtorName:   debtorName,
		DebtorID:     debtorID,
		CreditorName: "Beneficiary",
		CreditorID:   req.Beneficiary,
		ChainID:      s.opts.ChainID,
	})

	isoHash, err := receipt.ISO20022Hash(isoReceipt)
	if err != nil {
		return MintResult{}, fmt.Errorf("hash receipt: %w", err)
	}

	snapshot := s.opts.Oracle.GetPrice(ctx)
	log.Info().
		Str("source", snapshot.Source).
		Str("price", snapshot.HumanPrice.String()).
		Uint8("decimals", snapshot.Decimals).
		Int64("price_ts", snapshot.UpdatedAt).
		Msg("price snapshot acquired")

	iso4217, err := authz.CurrencyBytes3(s.opts.Currency)
	if err != nil {
		return MintResult{}, err
	}

	auth := authz.MintAuthorization{
		HoldID:        holdID,
		Amount:        fixedpoint.AmountUnits(req.AmountUSD),
		Beneficiary:   common.HexToAddress(req.Beneficiary),
		ISO20022Hash:  isoHash,
		ISO4217:       iso4217,
		Deadline:      uint64(s.now().Add(s.opts.DeadlineWindow).Unix()),
		Nonce:         s.opts.Nonces.Next(),
		EthUsdPrice:   snapshot.Price,
		PriceDecimals: snapshot.Decimals,
		PriceTs:       uint64(snapshot.UpdatedAt),
	}

	signature, err := s.opts.Signer.Sign(auth)
	if err != nil {
		return MintResult{}, fmt.Errorf("sign authorization: %w", err)
	}
	log.Info().Str("signer", s.opts.Signer.Address().Hex()).Msg("authorization signed")

	// Best-effort preflight: a positive answer short-circuits a doomed
	// submission, but a failing check is not a hard dependency.
	used, err := s.opts.Client.IsHoldUsed(ctx, holdID)
	if err != nil {
		log.Warn().Err(err).Msg("hold preflight unavailable, proceeding")
	} else if used {
		return MintResult{}, errHoldAlreadyUsed
	}

	txHash, err := s.opts.Client.MintWithAuthorization(ctx, auth, signature)
	if err != nil {
		return MintResult{}, err
	}

	conf, err := s.opts.Client.WaitForConfirmation(ctx, txHash)
	if err != nil {
		return MintResult{}, err
	}
	log.Info().
		Str("tx", conf.TxHash.Hex()).
		Uint64("block", conf.BlockNumber).
		Uint64("gas_used", conf.GasUsed).
		Msg("mint confirmed")

	if conf.Events.Minted == nil {
		log.Warn().Msg("Minted event not observed in receipt logs")
	}
	snapshotEmitted := conf.Events.PriceSnapshot != nil
	if !snapshotEmitted {
		// Informational only: absence does not fail the mint.
		log.Warn().Msg("PriceSnapshot event not observed in receipt logs")
	}

	settled := isoReceipt.Settle(conf.TxHash.Hex(), conf.BlockNumber)
	signedReceipt, err := s.opts.ReceiptSigner.Sign(settled)
	if err != nil {
		return MintResult{}, fmt.Errorf("sign settled receipt: %w", err)
	}

	minted := hold.Hold{
		HoldID:      holdID.Hex(),
		DaesRef:     daesRef,
		Amount:      req.AmountUSD,
		Beneficiary: req.Beneficiary,
		Status:      hold.StatusMinted,
		CreatedAt:   s.now(),
		TxHash:      conf.TxHash.Hex(),
		EthUsdPrice: snapshot.HumanPrice,
		PriceTs:     snapshot.UpdatedAt,
	}
	if err := s.opts.Holds.Put(ctx, minted); err != nil {
		return MintResult{}, fmt.Errorf("persist minted hold: %w", err)
	}

	humanPrice := snapshot.HumanPrice
	return MintResult{
		Success:     true,
		HoldID:      holdID.Hex(),
		TxHash:      conf.TxHash.Hex(),
		ExplorerURL: s.explorerURL(conf.TxHash.Hex()),
		IsoReceipt:  &signedReceipt,
		PriceSnapshot: &PriceInfo{
			Source:         snapshot.Source,
			EthUsdPrice:    snapshot.HumanPrice,
			PriceDecimals:  snapshot.Decimals,
			PriceTs:        snapshot.UpdatedAt,
			EmittedOnChain: snapshotEmitted,
		},
		EthUsdPrice:   &humanPrice,
		PriceDecimals: snapshot.Decimals,
		PriceTs:       snapshot.UpdatedAt,
	}, nil
}

func (s *Service) explorerURL(txHash string) string {
	return fmt.Sprintf("%s/tx/%s", s.opts.ExplorerBaseURL, txHash)
}

// GetHold returns a hold by id, nil when absent.
func (s *Service) GetHold(ctx context.Context, holdID string) (*hold.Hold, error) {
	return s.opts.Holds.Get(ctx, holdID)
}

// ListHolds returns all holds, newest first.
func (s *Service) ListHolds(ctx context.Context) ([]hold.Hold, error) {
	return s.opts.Holds.List(ctx)
}

// SendRequest is one outbound token transfer order.
type SendRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	ToAddress string          `json:"toAddress"`
	Memo      string          `json:"memo,omitempty"`
}

// SendResult is the typed response to a send.
type SendResult struct {
	Success     bool            `json:"success"`
	TxHash      string          `json:"txHash,omitempty"`
	ExplorerURL string          `json:"explorerUrl,omitempty"`
	BlockNumber uint64          `json:"blockNumber,omitempty"`
	Transfer    *store.Transfer `json:"transfer,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Send executes a real token transfer from the operator wallet and
// records it for statistics.
func (s *Service) Send(ctx context.Context, req SendRequest) SendResult {
	if !common.IsHexAddress(req.ToAddress) {
		return SendResult{Success: false, Error: "INVALID_TO_ADDRESS"}
	}
	if req.Amount.Sign() <= 0 {
		return SendResult{Success: false, Error: ErrCodeInvalidAmount}
	}

	conf, err := s.opts.Client.TransferUSD(ctx, common.HexToAddress(req.ToAddress), fixedpoint.AmountUnits(req.Amount))
	if err != nil {
		s.opts.Log.Error().Err(err).Str("to", req.ToAddress).Msg("token transfer failed")
		return SendResult{Success: false, Error: err.Error()}
	}

	tr := store.Transfer{
		ID:          fmt.Sprintf("send_%d_%s", s.now().UnixMilli(), uuid.NewString()[:8]),
		Type:        "send",
		Amount:      req.Amount,
		ToAddress:   req.ToAddress,
		Memo:        req.Memo,
		TxHash:      conf.TxHash.Hex(),
		ExplorerURL: s.explorerURL(conf.TxHash.Hex()),
		Status:      store.TransferCompleted,
		Timestamp:   s.now(),
		BlockNumber: conf.BlockNumber,
		GasUsed:     fmt.Sprintf("%d", conf.GasUsed),
	}
	if err := s.opts.Transfers.Put(ctx, tr); err != nil {
		s.opts.Log.Error().Err(err).Str("transfer", tr.ID).Msg("persist transfer")
	}

	return SendResult{
		Success:     true,
		TxHash:      tr.TxHash,
		ExplorerURL: tr.ExplorerURL,
		BlockNumber: tr.BlockNumber,
		Transfer:    &tr,
	}
}

// ListTransfers returns all transfers, newest first.
func (s *Service) ListTransfers(ctx context.Context) ([]store.Transfer, error) {
	return s.opts.Transfers.List(ctx)
}

// GetTransfer returns a transfer by id, nil when absent.
func (s *Service) GetTransfer(ctx context.Context, id string) (*store.Transfer, error) {
	return s.opts.Transfers.Get(ctx, id)
}

// Stats aggregates hold and transfer activity.
type Stats struct {
	Total               int             `json:"total"`
	Minted              int             `json:"minted"`
	Pending             int             `json:"pending"`
	Failed              int             `json:"failed"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	TotalTransfers      int             `json:"totalTransfers"`
	TotalTransferAmount decimal.Decimal `json:"totalTransferAmount"`
	MinterVersion       string          `json:"minterVersion"`
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	holds, err := s.opts.Holds.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list holds: %w", err)
	}
	transfers, err := s.opts.Transfers.List(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("list transfers: %w", err)
	}

	stats := Stats{
		Total:               len(holds) + len(transfers),
		TotalAmount:         decimal.Zero,
		TotalTransfers:      len(transfers),
		TotalTransferAmount: decimal.Zero,
		MinterVersion:       s.opts.MinterVersion,
	}
	for _, h := range holds {
		switch h.Status {
		case hold.StatusMinted:
			stats.Minted++
			stats.TotalAmount = stats.TotalAmount.Add(h.Amount)
		case hold.StatusPending:
			stats.Pending++
		case hold.StatusFailed:
			stats.Failed++
		}
	}
	for _, tr := range transfers {
		if tr.Status == store.TransferCompleted {
			stats.TotalTransferAmount = stats.TotalTransferAmount.Add(tr.Amount)
		}
	}
	return stats, nil
}
