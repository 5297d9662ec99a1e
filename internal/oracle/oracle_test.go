package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type stubFeed struct {
	snap Snapshot
	err  error
}

func (s stubFeed) Read(context.Context) (Snapshot, error) {
	return s.snap, s.err
}

func TestGetPriceUsesFeed(t *testing.T) {
	live := Snapshot{
		Price:      big.NewInt(312_500_000_000),
		Decimals:   8,
		UpdatedAt:  1_700_000_000,
		HumanPrice: decimal.RequireFromString("3125"),
		Source:     SourceChainlink,
	}
	a, err := NewAdapter(stubFeed{snap: live}, decimal.RequireFromString("2500"), zerolog.Nop())
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}

	got := a.GetPrice(context.Background())
	if got.Source != SourceChainlink {
		t.Fatalf("expected chainlink source, got %s", got.Source)
	}
	if got.Price.Cmp(live.Price) != 0 {
		t.Fatalf("unexpected price: %s", got.Price)
	}
}

func TestGetPriceFallsBack(t *testing.T) {
	a, err := NewAdapter(stubFeed{err: errors.New("connection refused")}, decimal.RequireFromString("2500"), zerolog.Nop())
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}

	got := a.GetPrice(context.Background())
	if got.Source != SourceFallback {
		t.Fatalf("expected fallback source, got %s", got.Source)
	}
	if !got.HumanPrice.Equal(decimal.RequireFromString("2500")) {
		t.Fatalf("expected fallback human price 2500, got %s", got.HumanPrice)
	}
	if got.Price.Cmp(big.NewInt(250_000_000_000)) != 0 {
		t.Fatalf("expected scaled fallback price, got %s", got.Price)
	}
	if got.Decimals != FallbackDecimals {
		t.Fatalf("expected %d decimals, got %d", FallbackDecimals, got.Decimals)
	}
}

func TestGetPriceNilFeed(t *testing.T) {
	a, err := NewAdapter(nil, decimal.RequireFromString("1800.50"), zerolog.Nop())
	if err != nil {
		t.Fatalf("adapter: %v", err)
	}
	got := a.GetPrice(context.Background())
	if got.Source != SourceFallback {
		t.Fatalf("expected fallback source, got %s", got.Source)
	}
}

func TestNewAdapterRejectsBadFallback(t *testing.T) {
	if _, err := NewAdapter(nil, decimal.Zero, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for zero fallback price")
	}
}
