package oracle

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"bridgemint/internal/fixedpoint"
)

// Minimal Aggregator V3 surface.
const aggregatorV3ABI = `[
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"latestRoundData","stateMutability":"view","inputs":[],"outputs":[
    {"name":"roundId","type":"uint80"},
    {"name":"answer","type":"int256"},
    {"name":"startedAt","type":"uint256"},
    {"name":"updatedAt","type":"uint256"},
    {"name":"answeredInRound","type":"uint80"}
  ]}
]`

// maxFeedAge beyond which a warning is logged. Chainlink updates on
// deviation, so age alone is not treated as fatal.
const maxFeedAge = time.Hour

// ChainlinkFeed reads the ETH/USD Aggregator V3 contract.
type ChainlinkFeed struct {
	contract *bind.BoundContract
	address  common.Address
	log      zerolog.Logger
	now      func() time.Time
}

func NewChainlinkFeed(backend bind.ContractCaller, feedAddress string, log zerolog.Logger) (*ChainlinkFeed, error) {
	if feedAddress == "" {
		return nil, fmt.Errorf("chainlink feed address is required")
	}
	if !common.IsHexAddress(feedAddress) {
		return nil, fmt.Errorf("invalid chainlink feed address: %s", feedAddress)
	}

	parsed, err := abi.JSON(strings.NewReader(aggregatorV3ABI))
	if err != nil {
		return nil, fmt.Errorf("parse aggregator abi: %w", err)
	}

	address := common.HexToAddress(feedAddress)
	return &ChainlinkFeed{
		contract: bind.NewBoundContract(address, parsed, backend, nil, nil),
		address:  address,
		log:      log,
		now:      time.Now,
	}, nil
}

func (f *ChainlinkFeed) Read(ctx context.Context) (Snapshot, error) {
	opts := &bind.CallOpts{Context: ctx}

	var decOut []interface{}
	if err := f.contract.Call(opts, &decOut, "decimals"); err != nil {
		return Snapshot{}, fmt.Errorf("read feed decimals: %w", err)
	}
	feedDecimals := decOut[0].(uint8)

	var out []interface{}
	if err := f.contract.Call(opts, &out, "latestRoundData"); err != nil {
		return Snapshot{}, fmt.Errorf("read latest round: %w", err)
	}

	roundID := out[0].(*big.Int)
	answer := out[1].(*big.Int)
	updatedAt := out[3].(*big.Int)
	answeredInRound := out[4].(*big.Int)

	if answer.Sign() <= 0 {
		return Snapshot{}, fmt.Errorf("chainlink bad answer: price is zero or negative")
	}
	if updatedAt.Sign() == 0 {
		return Snapshot{}, fmt.Errorf("chainlink stale: price has never been updated")
	}
	if answeredInRound.Cmp(roundID) < 0 {
		return Snapshot{}, fmt.Errorf("chainlink incomplete round")
	}

	updated := updatedAt.Int64()
	if age := f.now().Unix() - updated; age > int64(maxFeedAge.Seconds()) {
		f.log.Warn().Int64("age_seconds", age).Msg("chainlink price is older than max age")
	}

	human := fixedpoint.Value{Raw: answer, Decimals: int32(feedDecimals)}.ToDecimal()

	return Snapshot{
		Price:       new(big.Int).Set(answer),
		Decimals:    feedDecimals,
		UpdatedAt:   updated,
		HumanPrice:  human,
		Source:      SourceChainlink,
		FeedAddress: f.address.Hex(),
	}, nil
}

var _ Feed = (*ChainlinkFeed)(nil)

// human price helper for callers that only hold a raw snapshot
func HumanPrice(price *big.Int, decimals uint8) decimal.Decimal {
	return fixedpoint.Value{Raw: price, Decimals: int32(decimals)}.ToDecimal()
}
