package authz

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func testAuth(deadline uint64) MintAuthorization {
	iso4217, _ := CurrencyBytes3("USD")
	return MintAuthorization{
		HoldID:        crypto.Keccak256Hash([]byte("DAES-ETH-1-abc")),
		Amount:        big.NewInt(100_000_000),
		Beneficiary:   common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb9"),
		ISO20022Hash:  crypto.Keccak256Hash([]byte("receipt")),
		ISO4217:       iso4217,
		Deadline:      deadline,
		Nonce:         1_700_000_000_000,
		EthUsdPrice:   big.NewInt(250_000_000_000),
		PriceDecimals: 8,
		PriceTs:       1_700_000_000,
	}
}

func testDomain() Domain {
	return Domain{
		ChainID:  1,
		Contract: common.HexToAddress("0x1111111111111111111111111111111111111111"),
	}
}

func TestSignAndRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	signer, err := NewSigner(key, testDomain())
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}

	auth := testAuth(uint64(time.Now().Unix() + 600))
	sig, err := signer.Sign(auth)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != 65 {
		t.Fatalf("expected 65-byte signature, got %d", len(sig))
	}

	recovered, err := RecoverSigner(auth, testDomain(), sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != signer.Address() {
		t.Fatalf("recovered %s, want %s", recovered.Hex(), signer.Address().Hex())
	}
}

func TestSignatureBindsFields(t *testing.T) {
	key, _ := crypto.GenerateKey()
	signer, _ := NewSigner(key, testDomain())

	auth := testAuth(uint64(time.Now().Unix() + 600))
	sig, err := signer.Sign(auth)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Tampering with the amount must change the recovered address.
	tampered := auth
	tampered.Amount = big.NewInt(200_000_000)
	recovered, err := RecoverSigner(tampered, testDomain(), sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered == signer.Address() {
		t.Fatalf("signature verified against tampered authorization")
	}

	// A different verifying contract must also break verification.
	otherDomain := Domain{ChainID: 1, Contract: common.HexToAddress("0x2222222222222222222222222222222222222222")}
	recovered, err = RecoverSigner(auth, otherDomain, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered == signer.Address() {
		t.Fatalf("signature verified under a different domain")
	}
}

func TestSignRejectsExpiredDeadline(t *testing.T) {
	key, _ := crypto.GenerateKey()
	signer, _ := NewSigner(key, testDomain())

	auth := testAuth(uint64(time.Now().Unix() - 1))
	if _, err := signer.Sign(auth); err == nil {
		t.Fatalf("expected error for expired deadline")
	}
}

func TestCurrencyBytes3(t *testing.T) {
	b, err := CurrencyBytes3("USD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b != [3]byte{'U', 'S', 'D'} {
		t.Fatalf("unexpected encoding: %v", b)
	}
	if _, err := CurrencyBytes3("US"); err == nil {
		t.Fatalf("expected error for short code")
	}
}

func TestNonceSourceMonotonic(t *testing.T) {
	src := NewNonceSource()

	var mu sync.Mutex
	seen := make(map[uint64]bool)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := src.Next()
			mu.Lock()
			defer mu.Unlock()
			if seen[n] {
				t.Errorf("duplicate nonce %d", n)
			}
			seen[n] = true
		}()
	}
	wg.Wait()

	if len(seen) != 50 {
		t.Fatalf("expected 50 distinct nonces, got %d", len(seen))
	}
}
