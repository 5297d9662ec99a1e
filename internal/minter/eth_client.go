package minter

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	"bridgemint/internal/authz"
)

// EthClient submits transactions to BridgeMinter V2 over a JSON-RPC node.
type EthClient struct {
	client        *ethclient.Client
	minter        *bind.BoundContract
	minterABI     abi.ABI
	usdToken      *bind.BoundContract
	minterAddress common.Address
	operator      common.Address
	chainID       *big.Int
	transacts     *bind.TransactOpts
	confirmations uint64
	pollInterval  time.Duration
	log           zerolog.Logger
}

type EthClientConfig struct {
	RPCURL          string
	OperatorKeyHex  string
	BridgeMinter    string
	USDToken        string
	Confirmations   uint64
	PollInterval    time.Duration
}

func NewEthClient(ctx context.Context, cfg EthClientConfig, log zerolog.Logger) (*EthClient, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	if cfg.BridgeMinter == "" {
		return nil, fmt.Errorf("bridge minter address is required")
	}
	if cfg.OperatorKeyHex == "" {
		return nil, fmt.Errorf("operator key is required for submitting mints")
	}

	cli, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	minterABI, erc20, err := contractABIs()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	key, err := parsePrivateKey(cfg.OperatorKeyHex)
	if err != nil {
		return nil, err
	}

	chainID, err := cli.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}

	txOpts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		return nil, fmt.Errorf("transactor: %w", err)
	}
	txOpts.GasLimit = 0 // let the node estimate
	txOpts.GasPrice = nil
	txOpts.Nonce = nil

	minterAddress := common.HexToAddress(cfg.BridgeMinter)

	c := &EthClient{
		client:        cli,
		minter:        bind.NewBoundContract(minterAddress, minterABI, cli, cli, cli),
		minterABI:     minterABI,
		minterAddress: minterAddress,
		operator:      crypto.PubkeyToAddress(key.PublicKey),
		chainID:       chainID,
		transacts:     txOpts,
		confirmations: cfg.Confirmations,
		pollInterval:  cfg.PollInterval,
		log:           log,
	}
	if c.confirmations == 0 {
		c.confirmations = 1
	}
	if c.pollInterval <= 0 {
		c.pollInterval = 2 * time.Second
	}
	if cfg.USDToken != "" {
		tokenAddress := common.HexToAddress(cfg.USDToken)
		c.usdToken = bind.NewBoundContract(tokenAddress, erc20, cli, cli, cli)
	}
	return c, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(hexKey, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return key, nil
}

// Operator is the transaction sender address.
// Backend exposes the underlying RPC client, e.g. for price feed reads.
func (c *EthClient) Backend() *ethclient.Client {
	return c.client
}

func (c *EthClient) Operator() common.Address {
	return c.operator
}

func (c *EthClient) IsHoldUsed(ctx context.Context, holdID common.Hash) (bool, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.minter.Call(opts, &out, "isHoldUsed", [32]byte(holdID)); err != nil {
		return false, fmt.Errorf("isHoldUsed call: %w", err)
	}
	used, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("isHoldUsed returned unexpected type")
	}
	return used, nil
}

func (c *EthClient) GetNonce(ctx context.Context, account common.Address) (*big.Int, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := c.minter.Call(opts, &out, "getNonce", account); err != nil {
		return nil, fmt.Errorf("getNonce call: %w", err)
	}
	return out[0].(*big.Int), nil
}

func (c *EthClient) MintWithAuthorization(ctx context.Context, auth authz.MintAuthorization, signature []byte) (common.Hash, error) {
	opts := *c.transacts
	opts.Context = ctx

	tx, err := c.minter.Transact(&opts, "mintWithAuthorization", toTuple(auth), signature)
	if err != nil {
		return common.Hash{}, fmt.Errorf("mintWithAuthorization tx: %w", err)
	}

	c.log.Info().
		Str("tx", tx.Hash().Hex()).
		Str("hold_id", auth.HoldID.Hex()).
		Msg("mint transaction sent")
	return tx.Hash(), nil
}

func (c *EthClient) WaitForConfirmation(ctx context.Context, txHash common.Hash) (*Confirmation, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		if receipt != nil {
			if receipt.Status == 0 {
				return nil, fmt.Errorf("transaction reverted: %s", txHash.Hex())
			}

			if err := c.waitForDepth(ctx, receipt.BlockNumber.Uint64(), ticker); err != nil {
				return nil, err
			}

			events, err := DecodeEvents(c.minterABI, receipt.Logs)
			if err != nil {
				return nil, err
			}
			return &Confirmation{
				TxHash:      receipt.TxHash,
				BlockNumber: receipt.BlockNumber.Uint64(),
				GasUsed:     receipt.GasUsed,
				Events:      events,
			}, nil
		}
		if err != nil && !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("fetch receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitForDepth blocks until the chain head is at least confirmations-1
// blocks past the inclusion block.
func (c *EthClient) waitForDepth(ctx context.Context, included uint64, ticker *time.Ticker) error {
	for {
		head, err := c.client.BlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("fetch head: %w", err)
		}
		if head+1 >= included+c.confirmations {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *EthClient) TransferUSD(ctx context.Context, to common.Address, units *big.Int) (*Confirmation, error) {
	if c.usdToken == nil {
		return nil, fmt.Errorf("usd token address not configured")
	}

	var balOut []interface{}
	if err := c.usdToken.Call(&bind.CallOpts{Context: ctx}, &balOut, "balanceOf", c.operator); err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}
	if balance := balOut[0].(*big.Int); balance.Cmp(units) < 0 {
		return nil, fmt.Errorf("INSUFFICIENT_TOKEN_BALANCE: have %s, need %s", balance, units)
	}

	opts := *c.transacts
	opts.Context = ctx

	tx, err := c.usdToken.Transact(&opts, "transfer", to, units)
	if err != nil {
		return nil, fmt.Errorf("transfer tx: %w", err)
	}

	c.log.Info().Str("tx", tx.Hash().Hex()).Str("to", to.Hex()).Msg("token transfer sent")
	return c.WaitForConfirmation(ctx, tx.Hash())
}

func (c *EthClient) Ping(ctx context.Context) error {
	_, err := c.client.BlockNumber(ctx)
	return err
}

var (
	_ Client        = (*EthClient)(nil)
	_ HealthChecker = (*EthClient)(nil)
)
