package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleDeployments = `{
  "chainId": 11155111,
  "network": "sepolia",
  "deployer": "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266",
  "contracts": {
    "BridgeMinter": "0x5FbDB2315678afecb367f032d93F642f64180aa3",
    "USDToken": "0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512",
    "EthUsdPriceFeed": "0x694AA1769357215DE4FAC081bf1f309aDC325306"
  },
  "explorerBaseUrl": "https://sepolia.etherscan.io"
}`

func writeDeployments(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deployments.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write deployments: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DEPLOYMENTS_PATH", writeDeployments(t, sampleDeployments))
	t.Setenv("OPERATOR_PRIVATE_KEY", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Deployment.ChainID != 11155111 {
		t.Fatalf("unexpected chain id %d", cfg.Deployment.ChainID)
	}
	if cfg.Deployment.Contracts.BridgeMinter != "0x5FbDB2315678afecb367f032d93F642f64180aa3" {
		t.Fatalf("unexpected minter address %s", cfg.Deployment.Contracts.BridgeMinter)
	}
	if cfg.Service.HTTPPort != 3000 {
		t.Fatalf("unexpected port %d", cfg.Service.HTTPPort)
	}
	if cfg.Service.DeadlineWindow != 10*time.Minute {
		t.Fatalf("unexpected deadline window %s", cfg.Service.DeadlineWindow)
	}
	if cfg.Service.FallbackPrice.String() != "2500" {
		t.Fatalf("unexpected fallback price %s", cfg.Service.FallbackPrice)
	}
	// Signer key defaults to the operator key.
	if cfg.Chain.SignerKey != cfg.Chain.OperatorKey {
		t.Fatalf("signer key should default to operator key")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DEPLOYMENTS_PATH", writeDeployments(t, sampleDeployments))
	t.Setenv("API_HTTP_PORT", "8080")
	t.Setenv("AUTH_DEADLINE_SECONDS", "120")
	t.Setenv("FALLBACK_ETH_USD_PRICE", "1850.25")
	t.Setenv("SIGNER_PRIVATE_KEY", "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d")
	t.Setenv("CHAIN_CONFIRMATIONS", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Service.HTTPPort != 8080 {
		t.Fatalf("unexpected port %d", cfg.Service.HTTPPort)
	}
	if cfg.Service.DeadlineWindow != 2*time.Minute {
		t.Fatalf("unexpected deadline window %s", cfg.Service.DeadlineWindow)
	}
	if cfg.Service.FallbackPrice.String() != "1850.25" {
		t.Fatalf("unexpected fallback price %s", cfg.Service.FallbackPrice)
	}
	if cfg.Chain.Confirmations != 3 {
		t.Fatalf("unexpected confirmations %d", cfg.Chain.Confirmations)
	}
	if cfg.Chain.SignerKey == cfg.Chain.OperatorKey {
		t.Fatalf("signer key override ignored")
	}
}

func TestLoadMissingMinterAddress(t *testing.T) {
	t.Setenv("DEPLOYMENTS_PATH", writeDeployments(t, `{"chainId":1,"contracts":{}}`))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing BridgeMinter address")
	}
}
