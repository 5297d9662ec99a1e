package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bridgemint/internal/hold"
)

func TestMemoryHoldStoreLifecycle(t *testing.T) {
	s := NewMemoryHoldStore()
	ctx := context.Background()

	if h, _ := s.Get(ctx, "missing"); h != nil {
		t.Fatalf("expected nil for missing hold")
	}

	h := hold.Hold{
		HoldID:      "0xabc",
		DaesRef:     "DAES-ETH-1-xyz",
		Amount:      decimal.RequireFromString("100"),
		Beneficiary: "0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb9",
		Status:      hold.StatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.Put(ctx, h); err != nil {
		t.Fatalf("put: %v", err)
	}

	h.Status = hold.StatusMinted
	h.TxHash = "0xdeadbeef"
	if err := s.Put(ctx, h); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := s.Get(ctx, "0xabc")
	if got == nil || got.Status != hold.StatusMinted || got.TxHash != "0xdeadbeef" {
		t.Fatalf("unexpected hold: %+v", got)
	}

	list, _ := s.List(ctx)
	if len(list) != 1 {
		t.Fatalf("expected 1 hold, got %d", len(list))
	}
}

func TestMemoryTransferStoreOrdering(t *testing.T) {
	s := NewMemoryTransferStore()
	ctx := context.Background()

	older := Transfer{ID: "a", Type: "send", Amount: decimal.NewFromInt(1), TxHash: "0x1", Status: TransferCompleted, Timestamp: time.Now().Add(-time.Hour)}
	newer := Transfer{ID: "b", Type: "send", Amount: decimal.NewFromInt(2), TxHash: "0x2", Status: TransferCompleted, Timestamp: time.Now()}

	_ = s.Put(ctx, older)
	_ = s.Put(ctx, newer)

	list, _ := s.List(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(list))
	}
	if list[0].ID != "b" {
		t.Fatalf("expected newest first, got %s", list[0].ID)
	}
}
