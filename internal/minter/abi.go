package minter

import (
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"bridgemint/internal/authz"
)

// BridgeMinter V2 surface used by this service.
const bridgeMinterABI = `[
  {"type":"function","name":"mintWithAuthorization","stateMutability":"nonpayable","inputs":[
    {"name":"auth","type":"tuple","components":[
      {"name":"holdId","type":"bytes32"},
      {"name":"amount","type":"uint256"},
      {"name":"beneficiary","type":"address"},
      {"name":"iso20022Hash","type":"bytes32"},
      {"name":"iso4217","type":"bytes3"},
      {"name":"deadline","type":"uint256"},
      {"name":"nonce","type":"uint256"},
      {"name":"ethUsdPrice","type":"int256"},
      {"name":"priceDecimals","type":"uint8"},
      {"name":"priceTs","type":"uint64"}
    ]},
    {"name":"signature","type":"bytes"}
  ],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"isHoldUsed","stateMutability":"view","inputs":[{"name":"holdId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"getNonce","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"Minted","inputs":[
    {"name":"holdId","type":"bytes32","indexed":true},
    {"name":"amount","type":"uint256","indexed":false},
    {"name":"beneficiary","type":"address","indexed":true},
    {"name":"iso20022Hash","type":"bytes32","indexed":false},
    {"name":"iso4217","type":"bytes3","indexed":false},
    {"name":"signer","type":"address","indexed":true},
    {"name":"timestamp","type":"uint256","indexed":false}
  ]},
  {"type":"event","name":"PriceSnapshot","inputs":[
    {"name":"pairId","type":"bytes32","indexed":true},
    {"name":"price","type":"int256","indexed":false},
    {"name":"decimals","type":"uint8","indexed":false},
    {"name":"ts","type":"uint64","indexed":false},
    {"name":"holdId","type":"bytes32","indexed":true}
  ]}
]`

// Minimal ERC-20 surface for the send path.
const erc20ABI = `[
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var (
	parseOnce        sync.Once
	parsedMinterABI  abi.ABI
	parsedERC20ABI   abi.ABI
	parseABIErr      error
)

func contractABIs() (abi.ABI, abi.ABI, error) {
	parseOnce.Do(func() {
		parsedMinterABI, parseABIErr = abi.JSON(strings.NewReader(bridgeMinterABI))
		if parseABIErr != nil {
			return
		}
		parsedERC20ABI, parseABIErr = abi.JSON(strings.NewReader(erc20ABI))
	})
	return parsedMinterABI, parsedERC20ABI, parseABIErr
}

// mintAuthorizationTuple matches the ABI tuple component names for
// argument packing.
type mintAuthorizationTuple struct {
	HoldId        [32]byte
	Amount        *big.Int
	Beneficiary   common.Address
	Iso20022Hash  [32]byte
	Iso4217       [3]byte
	Deadline      *big.Int
	Nonce         *big.Int
	EthUsdPrice   *big.Int
	PriceDecimals uint8
	PriceTs       uint64
}

func toTuple(auth authz.MintAuthorization) mintAuthorizationTuple {
	return mintAuthorizationTuple{
		HoldId:        auth.HoldID,
		Amount:        auth.Amount,
		Beneficiary:   auth.Beneficiary,
		Iso20022Hash:  auth.ISO20022Hash,
		Iso4217:       auth.ISO4217,
		Deadline:      new(big.Int).SetUint64(auth.Deadline),
		Nonce:         new(big.Int).SetUint64(auth.Nonce),
		EthUsdPrice:   auth.EthUsdPrice,
		PriceDecimals: auth.PriceDecimals,
		PriceTs:       auth.PriceTs,
	}
}
