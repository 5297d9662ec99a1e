// Package authz builds and signs EIP-712 mint authorizations for the
// BridgeMinter V2 contract. The typed-data schema must match the
// contract's struct encoding exactly.
package authz

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

const (
	domainName    = "DAES USD BridgeMinter"
	domainVersion = "2"
)

// MintAuthorization is the signed statement permitting the contract to
// mint. Immutable once signed.
type MintAuthorization struct {
	HoldID        common.Hash
	Amount        *big.Int // token units, 6 decimals
	Beneficiary   common.Address
	ISO20022Hash  common.Hash
	ISO4217       [3]byte
	Deadline      uint64 // unix seconds
	Nonce         uint64
	EthUsdPrice   *big.Int // signed fixed point
	PriceDecimals uint8
	PriceTs       uint64 // unix seconds
}

// Domain identifies the verifying contract and chain, preventing
// cross-contract and cross-chain replay.
type Domain struct {
	ChainID  int64
	Contract common.Address
}

// CurrencyBytes3 encodes a 3-letter ISO 4217 code for the bytes3 field.
func CurrencyBytes3(code string) ([3]byte, error) {
	var out [3]byte
	if len(code) != 3 {
		return out, fmt.Errorf("iso4217 code must be 3 characters: %q", code)
	}
	copy(out[:], code)
	return out, nil
}

func typedData(auth MintAuthorization, d Domain) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"MintAuthorization": {
				{Name: "holdId", Type: "bytes32"},
				{Name: "amount", Type: "uint256"},
				{Name: "beneficiary", Type: "address"},
				{Name: "iso20022Hash", Type: "bytes32"},
				{Name: "iso4217", Type: "bytes3"},
				{Name: "deadline", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "ethUsdPrice", Type: "int256"},
				{Name: "priceDecimals", Type: "uint8"},
				{Name: "priceTs", Type: "uint64"},
			},
		},
		PrimaryType: "MintAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           math.NewHexOrDecimal256(d.ChainID),
			VerifyingContract: d.Contract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"holdId":        hexutil.Encode(auth.HoldID[:]),
			"amount":        (*math.HexOrDecimal256)(auth.Amount),
			"beneficiary":   auth.Beneficiary.Hex(),
			"iso20022Hash":  hexutil.Encode(auth.ISO20022Hash[:]),
			"iso4217":       hexutil.Encode(auth.ISO4217[:]),
			"deadline":      math.NewHexOrDecimal256(int64(auth.Deadline)),
			"nonce":         math.NewHexOrDecimal256(int64(auth.Nonce)),
			"ethUsdPrice":   (*math.HexOrDecimal256)(auth.EthUsdPrice),
			"priceDecimals": math.NewHexOrDecimal256(int64(auth.PriceDecimals)),
			"priceTs":       math.NewHexOrDecimal256(int64(auth.PriceTs)),
		},
	}
}

// Digest returns the EIP-712 hash the signature commits to.
func Digest(auth MintAuthorization, d Domain) ([]byte, error) {
	hash, _, err := apitypes.TypedDataAndHash(typedData(auth, d))
	if err != nil {
		return nil, fmt.Errorf("hash typed data: %w", err)
	}
	return hash, nil
}

// Signer signs mint authorizations with the custody authority key.
type Signer struct {
	key    *ecdsa.PrivateKey
	domain Domain
	now    func() time.Time
}

func NewSigner(key *ecdsa.PrivateKey, domain Domain) (*Signer, error) {
	if key == nil {
		return nil, fmt.Errorf("signer key is required")
	}
	if (domain.Contract == common.Address{}) {
		return nil, fmt.Errorf("verifying contract address is required")
	}
	return &Signer{key: key, domain: domain, now: time.Now}, nil
}

// Address is the signer's on-chain identity.
func (s *Signer) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// Sign produces a 65-byte signature with the Ethereum v convention.
// The deadline must still be in the future at signing time.
func (s *Signer) Sign(auth MintAuthorization) ([]byte, error) {
	if auth.Amount == nil || auth.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("authorization amount must be positive")
	}
	if int64(auth.Deadline) <= s.now().Unix() {
		return nil, fmt.Errorf("authorization deadline already expired")
	}

	digest, err := Digest(auth, s.domain)
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return nil, fmt.Errorf("sign authorization: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// RecoverSigner returns the address that produced sig over auth.
func RecoverSigner(auth MintAuthorization, d Domain, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}

	digest, err := Digest(auth, d)
	if err != nil {
		return common.Address{}, err
	}

	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	pub, err := crypto.SigToPub(digest, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
