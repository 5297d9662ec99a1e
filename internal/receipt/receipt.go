// Package receipt builds ISO 20022 settlement receipts, hashes them for
// on-chain reference, and signs them with the custody authority key.
package receipt

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusPending = "PENDING"
	StatusSettled = "SETTLED"
)

// Party identifies a debtor or creditor. Wallet identifiers are hex
// addresses, anything else is treated as an account reference.
type Party struct {
	Name           string `json:"name"`
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifierType"`
}

// Amount is the instructed settlement amount.
type Amount struct {
	Value    decimal.Decimal `json:"value"`
	Currency string          `json:"currency"`
	Decimals int32           `json:"decimals"`
}

// Receipt is an ISO 20022 style settlement record. Receipts are
// append-only: settling one retains every pre-settlement field.
type Receipt struct {
	MessageID         string `json:"messageId"`
	CreationDateTime  string `json:"creationDateTime"`
	TransactionID     string `json:"transactionId"`
	InstructionID     string `json:"instructionId"`
	EndToEndID        string `json:"endToEndId"`
	Debtor            Party  `json:"debtor"`
	Creditor          Party  `json:"creditor"`
	InstructedAmount  Amount `json:"instructedAmount"`
	SettlementMethod  string `json:"settlementMethod"`
	SettlementChain   string `json:"settlementChain"`
	SettlementChainID int64  `json:"settlementChainId"`
	HoldID            string `json:"holdId"`
	TxHash            string `json:"txHash,omitempty"`
	BlockNumber       uint64 `json:"blockNumber,omitempty"`
	Status            string `json:"status"`
	Signature         string `json:"signature,omitempty"`
	SignedBy          string `json:"signedBy,omitempty"`
	SignedAt          string `json:"signedAt,omitempty"`
}

// BuildParams are the inputs for a fresh receipt.
type BuildParams struct {
	DaesRef      string
	HoldID       string
	Amount       decimal.Decimal
	Currency     string
	DebtorName   string
	DebtorID     string
	CreditorName string
	CreditorID   string
	ChainID      int64
}

// Build produces a pending receipt. Deterministic given its inputs except
// for the embedded message id and creation timestamp.
func Build(p BuildParams) Receipt {
	currency := p.Currency
	if currency == "" {
		currency = "USD"
	}

	instructionID := p.HoldID
	if len(instructionID) > 35 {
		instructionID = instructionID[:35]
	}

	return Receipt{
		MessageID:         fmt.Sprintf("DAES-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		CreationDateTime:  time.Now().UTC().Format(time.RFC3339),
		TransactionID:     p.DaesRef,
		InstructionID:     instructionID,
		EndToEndID:        p.HoldID,
		Debtor:            party(p.DebtorName, p.DebtorID),
		Creditor:          party(p.CreditorName, p.CreditorID),
		InstructedAmount:  Amount{Value: p.Amount, Currency: currency, Decimals: 6},
		SettlementMethod:  "BLOCKCHAIN",
		SettlementChain:   "ETHEREUM",
		SettlementChainID: p.ChainID,
		HoldID:            p.HoldID,
		Status:            StatusPending,
	}
}

func party(name, id string) Party {
	idType := "ACCOUNT"
	if common.IsHexAddress(id) {
		idType = "WALLET"
	}
	return Party{Name: name, Identifier: id, IdentifierType: idType}
}

// Settle returns a copy of r carrying the settlement transaction fields.
func (r Receipt) Settle(txHash string, blockNumber uint64) Receipt {
	r.TxHash = txHash
	r.BlockNumber = blockNumber
	r.Status = StatusSettled
	return r
}

// Canonical is the deterministic serialization of a receipt and its
// digests.
type Canonical struct {
	Raw    string
	SHA256 common.Hash
	Keccak common.Hash
}

// Canonicalize serializes r with sorted keys so the same receipt always
// hashes to the same digest. The signature fields are excluded: the
// signature covers the content, not itself.
func Canonicalize(r Receipt) (Canonical, error) {
	unsigned := r
	unsigned.Signature = ""
	unsigned.SignedBy = ""
	unsigned.SignedAt = ""

	blob, err := json.Marshal(unsigned)
	if err != nil {
		return Canonical{}, fmt.Errorf("marshal receipt: %w", err)
	}

	// Round-trip through a generic map: encoding/json writes map keys in
	// sorted order, which gives us canonical output.
	var generic map[string]interface{}
	if err := json.Unmarshal(blob, &generic); err != nil {
		return Canonical{}, fmt.Errorf("canonicalize receipt: %w", err)
	}
	raw, err := json.Marshal(generic)
	if err != nil {
		return Canonical{}, fmt.Errorf("canonicalize receipt: %w", err)
	}

	return Canonical{
		Raw:    string(raw),
		SHA256: sha256.Sum256(raw),
		Keccak: crypto.Keccak256Hash(raw),
	}, nil
}

// ISO20022Hash is the 32-byte digest referenced inside the on-chain
// authorization.
func ISO20022Hash(r Receipt) (common.Hash, error) {
	canonical, err := Canonicalize(r)
	if err != nil {
		return common.Hash{}, err
	}
	return canonical.SHA256, nil
}

// Signer attaches custody-authority signatures to receipts.
type Signer struct {
	key *ecdsa.PrivateKey
	now func() time.Time
}

func NewSigner(key *ecdsa.PrivateKey) (*Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("receipt signer key is required")
	}
	return &Signer{key: key, now: time.Now}, nil
}

func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// Sign returns a copy of r with a signature over the canonical SHA-256
// digest, using the Ethereum personal-message scheme.
func (s *Signer) Sign(r Receipt) (Receipt, error) {
	canonical, err := Canonicalize(r)
	if err != nil {
		return Receipt{}, err
	}

	sig, err := crypto.Sign(accounts.TextHash(canonical.SHA256.Bytes()), s.key)
	if err != nil {
		return Receipt{}, fmt.Errorf("sign receipt: %w", err)
	}
	sig[64] += 27

	r.Signature = hexutil.Encode(sig)
	r.SignedBy = s.Address().Hex()
	r.SignedAt = s.now().UTC().Format(time.RFC3339)
	return r, nil
}

// Verify recovers the signer of a signed receipt and checks it against
// the signedBy field.
func Verify(r Receipt) (bool, error) {
	if r.Signature == "" {
		return false, fmt.Errorf("receipt is not signed")
	}

	sig, err := hexutil.Decode(r.Signature)
	if err != nil || len(sig) != 65 {
		return false, fmt.Errorf("malformed receipt signature")
	}

	canonical, err := Canonicalize(r)
	if err != nil {
		return false, err
	}

	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash(canonical.SHA256.Bytes()), normalized)
	if err != nil {
		return false, fmt.Errorf("recover receipt signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub).Hex() == r.SignedBy, nil
}
