package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// DeploymentConfig represents deployments.json, written by the contract
// deployment scripts.
type DeploymentConfig struct {
	ChainID   int64  `json:"chainId"`
	Network   string `json:"network"`
	Deployer  string `json:"deployer"`
	Contracts struct {
		BridgeMinter    string `json:"BridgeMinter"`
		USDToken        string `json:"USDToken"`
		EthUsdPriceFeed string `json:"EthUsdPriceFeed"`
	} `json:"contracts"`
	ExplorerBaseURL string `json:"explorerBaseUrl"`
}

// AppConfig ties together deployment info, chain access, and service
// settings.
type AppConfig struct {
	Deployment DeploymentConfig
	Chain      ChainConfig
	Service    ServiceConfig
}

type ChainConfig struct {
	RPCURL string
	// OperatorKey pays gas and holds the minted float.
	OperatorKey string
	// SignerKey is the custody authority producing EIP-712 signatures.
	// Defaults to the operator key when unset.
	SignerKey     string
	Confirmations uint64
}

type ServiceConfig struct {
	HTTPPort       int
	HMACSecret     string
	HMACClockSkew  time.Duration
	PostgresDSN    string
	DeadlineWindow time.Duration
	FallbackPrice  decimal.Decimal
	MinterVersion  string
}

const (
	defaultDeploymentsPath = "deployments.json"
	defaultFallbackPrice   = "2500"
	defaultMinterVersion   = "bridgeminter-v2"
)

// Load aggregates configuration from deployments.json and environment.
func Load() (*AppConfig, error) {
	deployCfg, err := loadDeployments(envOr("DEPLOYMENTS_PATH", defaultDeploymentsPath))
	if err != nil {
		return nil, fmt.Errorf("load deployments: %w", err)
	}

	fallback, err := decimal.NewFromString(envOr("FALLBACK_ETH_USD_PRICE", defaultFallbackPrice))
	if err != nil {
		return nil, fmt.Errorf("parse FALLBACK_ETH_USD_PRICE: %w", err)
	}

	operatorKey := envOr("OPERATOR_PRIVATE_KEY", "")
	chainCfg := ChainConfig{
		RPCURL:        envOr("CHAIN_RPC_URL", ""),
		OperatorKey:   operatorKey,
		SignerKey:     envOr("SIGNER_PRIVATE_KEY", operatorKey),
		Confirmations: uint64(envOrInt("CHAIN_CONFIRMATIONS", 1)),
	}

	serviceCfg := ServiceConfig{
		HTTPPort:       envOrInt("API_HTTP_PORT", 3000),
		HMACSecret:     envOr("HMAC_SECRET", ""),
		HMACClockSkew:  time.Duration(envOrInt("HMAC_CLOCK_SKEW_SECONDS", 60)) * time.Second,
		PostgresDSN:    envOr("DATABASE_URL", ""),
		DeadlineWindow: time.Duration(envOrInt("AUTH_DEADLINE_SECONDS", 600)) * time.Second,
		FallbackPrice:  fallback,
		MinterVersion:  envOr("MINTER_VERSION", defaultMinterVersion),
	}

	return &AppConfig{
		Deployment: *deployCfg,
		Chain:      chainCfg,
		Service:    serviceCfg,
	}, nil
}

func loadDeployments(path string) (*DeploymentConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg DeploymentConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}
	if cfg.Contracts.BridgeMinter == "" {
		return nil, fmt.Errorf("deployments %s: BridgeMinter address missing", path)
	}
	return &cfg, nil
}

func envOr(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return fallback
}
