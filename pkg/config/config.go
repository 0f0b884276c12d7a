package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/liqbot/gomm/internal/engine"
)

// WalletConfig 钱包配置
type WalletConfig struct {
	Address      string `yaml:"address" json:"address"`
	PrivateKey   string `yaml:"private_key" json:"private_key"`
	KeystorePath string `yaml:"keystore_path" json:"keystore_path"` // 可选：本地加密 keystore 目录，配置后优先于 private_key
}

// ExchangeConfig 交易所接入配置
type ExchangeConfig struct {
	BaseURL   string `yaml:"base_url" json:"base_url"`
	RPCURL    string `yaml:"rpc_url" json:"rpc_url"`
	WSURL     string `yaml:"ws_url" json:"ws_url"` // 为空时不订阅行情推送，只用 REST 轮询
	RateLimit int    `yaml:"rate_limit" json:"rate_limit"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Config 应用配置
type Config struct {
	Wallet   WalletConfig   `yaml:"wallet" json:"wallet"`
	Exchange ExchangeConfig `yaml:"exchange" json:"exchange"`
	Log      LogConfig      `yaml:"log" json:"log"`

	// Market 交易市场，例如 "UBTC/USDC"
	Market string `yaml:"market" json:"market"`

	// Engine 做市引擎配置
	Engine engine.Config `yaml:"engine" json:"engine"`
}

// LoadFromFile 从配置文件加载（支持 YAML 和 JSON），再应用环境变量覆盖。
// 钱包凭据优先从环境变量读取，避免写进配置文件。
func LoadFromFile(filePath string) (*Config, error) {
	var cfg Config

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败 %s: %w", filePath, err)
		}

		ext := strings.ToLower(filepath.Ext(filePath))
		switch ext {
		case ".yaml", ".yml":
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
			}
		case ".json":
			if err := json.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
			}
		default:
			return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}
	return &cfg, nil
}

// applyEnv 应用环境变量覆盖（环境变量 > 配置文件）
func (c *Config) applyEnv() {
	c.Wallet.PrivateKey = getEnv("WALLET_PRIVATE_KEY", c.Wallet.PrivateKey)
	c.Wallet.Address = getEnv("WALLET_ADDRESS", c.Wallet.Address)
	c.Exchange.BaseURL = getEnv("BASE_URL", c.Exchange.BaseURL)
	c.Exchange.RPCURL = getEnv("RPC_URL", c.Exchange.RPCURL)
	c.Exchange.WSURL = getEnv("WS_URL", c.Exchange.WSURL)
	c.Exchange.RateLimit = parseIntEnv("RPC_RATE_LIMIT", c.Exchange.RateLimit)
	c.Market = getEnv("MARKET", c.Market)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("LOG_FILE", c.Log.File)
}

// Validate 验证配置并填充默认值
func (c *Config) Validate() error {
	if c.Wallet.Address == "" {
		return fmt.Errorf("WALLET_ADDRESS 未配置")
	}
	if c.Wallet.PrivateKey == "" && c.Wallet.KeystorePath == "" {
		return fmt.Errorf("WALLET_PRIVATE_KEY 与 keystore_path 至少配置一个")
	}
	if c.Exchange.RPCURL == "" {
		if c.Exchange.BaseURL == "" {
			return fmt.Errorf("RPC_URL 未配置")
		}
		c.Exchange.RPCURL = strings.TrimRight(c.Exchange.BaseURL, "/") + "/rpc"
	}
	if c.Market == "" {
		return fmt.Errorf("MARKET 未配置")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.File == "" {
		c.Log.File = "logs/bot.log"
	}

	return c.Engine.Validate()
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
