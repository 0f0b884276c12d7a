package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleYAML = `
wallet:
  address: "0x1111111111111111111111111111111111111111"
  private_key: "aa"
exchange:
  base_url: "https://api.example.exchange"
market: "UBTC/USDC"
log:
  level: debug
engine:
  spread: 0.0004
  sizeMin: 0.0003
  sizeMax: 0.0005
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := LoadFromFile(writeTempConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromFile error: %v", err)
	}

	if cfg.Market != "UBTC/USDC" {
		t.Fatalf("market got=%q", cfg.Market)
	}
	// rpc_url 缺省时从 base_url 推导
	if cfg.Exchange.RPCURL != "https://api.example.exchange/rpc" {
		t.Fatalf("rpc url got=%q", cfg.Exchange.RPCURL)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level got=%q", cfg.Log.Level)
	}
	// 引擎配置默认值已填充
	if cfg.Engine.MinUSDOrderSize != 20 || cfg.Engine.MaxUSDOrderSize != 50 {
		t.Fatalf("engine notional bounds got=%v/%v", cfg.Engine.MinUSDOrderSize, cfg.Engine.MaxUSDOrderSize)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("WALLET_PRIVATE_KEY", "bb")
	t.Setenv("RPC_URL", "https://rpc.other.exchange/rpc")
	t.Setenv("MARKET", "UETH/USDC")

	cfg, err := LoadFromFile(writeTempConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromFile error: %v", err)
	}

	if cfg.Wallet.PrivateKey != "bb" {
		t.Fatalf("private key not overridden: %q", cfg.Wallet.PrivateKey)
	}
	if cfg.Exchange.RPCURL != "https://rpc.other.exchange/rpc" {
		t.Fatalf("rpc url not overridden: %q", cfg.Exchange.RPCURL)
	}
	if cfg.Market != "UETH/USDC" {
		t.Fatalf("market not overridden: %q", cfg.Market)
	}
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	yml := `
exchange:
  rpc_url: "https://api.example.exchange/rpc"
market: "UBTC/USDC"
engine:
  spread: 0.0004
  usdOrderSize: 30
`
	t.Setenv("WALLET_ADDRESS", "")
	t.Setenv("WALLET_PRIVATE_KEY", "")

	if _, err := LoadFromFile(writeTempConfig(t, yml)); err == nil {
		t.Fatalf("expected error for missing wallet credentials")
	}
}
