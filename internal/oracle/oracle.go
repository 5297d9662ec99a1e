// Package oracle reads the ETH/USD price for authorization snapshots.
// The adapter degrades to a configured fallback price when the feed is
// unreachable; the Source field records which path produced the value.
package oracle

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bridgemint/internal/fixedpoint"
)

const (
	SourceChainlink = "Chainlink ETH/USD"
	SourceFallback  = "DAES_FALLBACK"

	// FallbackDecimals matches the Chainlink ETH/USD feed scale.
	FallbackDecimals = 8
)

// Snapshot is one observed price, pre-scaled to an integer with an
// explicit decimal count.
type Snapshot struct {
	Price       *big.Int        `json:"price"`
	Decimals    uint8           `json:"decimals"`
	UpdatedAt   int64           `json:"updatedAt"`
	HumanPrice  decimal.Decimal `json:"humanPrice"`
	Source      string          `json:"source"`
	FeedAddress string          `json:"feedAddress,omitempty"`
}

// Feed is a live price source, typically a Chainlink aggregator.
type Feed interface {
	Read(ctx context.Context) (Snapshot, error)
}

// Adapter wraps a feed with a deterministic fallback price.
type Adapter struct {
	feed     Feed
	fallback decimal.Decimal
	log      zerolog.Logger
	now      func() time.Time
}

// NewAdapter builds an adapter. feed may be nil, in which case every read
// uses the fallback.
func NewAdapter(feed Feed, fallbackPrice decimal.Decimal, log zerolog.Logger) (*Adapter, error) {
	if fallbackPrice.Sign() <= 0 {
		return nil, errors.New("fallback price must be positive")
	}
	return &Adapter{
		feed:     feed,
		fallback: fallbackPrice,
		log:      log,
		now:      time.Now,
	}, nil
}

// GetPrice reads the live feed, falling back to the configured default on
// any feed failure. Feed unavailability is never surfaced as an error.
func (a *Adapter) GetPrice(ctx context.Context) Snapshot {
	if a.feed != nil {
		snap, err := a.feed.Read(ctx)
		if err == nil {
			return snap
		}
		a.log.Warn().Err(err).
			Str("fallback", a.fallback.String()).
			Msg("price feed unavailable, using fallback")
	}

	return Snapshot{
		Price:      fixedpoint.FromDecimal(a.fallback, FallbackDecimals).Raw,
		Decimals:   FallbackDecimals,
		UpdatedAt:  a.now().Unix(),
		HumanPrice: a.fallback,
		Source:     SourceFallback,
	}
}
