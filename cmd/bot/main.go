package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/liqbot/gomm/internal/engine"
	"github.com/liqbot/gomm/internal/exchange"
	"github.com/liqbot/gomm/internal/feed"
	"github.com/liqbot/gomm/pkg/config"
	"github.com/liqbot/gomm/pkg/logger"
	"github.com/liqbot/gomm/pkg/secretstore"
	"github.com/liqbot/gomm/pkg/shutdown"
)

const shutdownTimeout = 15 * time.Second

// resolvePrivateKey 解析签名私钥：优先本地加密 keystore，其次配置/环境变量
func resolvePrivateKey(cfg *config.Config) (string, error) {
	if cfg.Wallet.KeystorePath == "" {
		return cfg.Wallet.PrivateKey, nil
	}

	encKey, err := secretstore.ParseKey(os.Getenv("SECRETSTORE_KEY"))
	if err != nil {
		return "", fmt.Errorf("解析 SECRETSTORE_KEY 失败: %w", err)
	}
	store, err := secretstore.Open(secretstore.OpenOptions{
		Path:          cfg.Wallet.KeystorePath,
		EncryptionKey: encKey,
		ReadOnly:      true,
	})
	if err != nil {
		return "", fmt.Errorf("打开 keystore 失败: %w", err)
	}
	defer store.Close()

	key, found, err := store.GetString(secretstore.KeyWalletPrivateKey)
	if err != nil {
		return "", fmt.Errorf("读取 keystore 失败: %w", err)
	}
	if !found {
		return "", fmt.Errorf("keystore 中没有私钥（先运行 keystore-init）")
	}
	return key, nil
}

func main() {
	configPath := flag.String("config", "yml/config.yml", "配置文件路径（支持 .yaml, .yml, .json）")
	envFile := flag.String("env", "", ".env 文件路径（可选）")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "加载 .env 失败: %v\n", err)
			os.Exit(1)
		}
	} else {
		_ = godotenv.Load()
	}

	path := *configPath
	if _, err := os.Stat(path); err != nil {
		// 配置文件不存在时纯靠环境变量运行
		path = ""
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	privateKey, err := resolvePrivateKey(cfg)
	if err != nil {
		logger.Errorf("解析私钥失败: %v", err)
		os.Exit(1)
	}

	client, err := exchange.NewClient(exchange.Options{
		RPCURL:     cfg.Exchange.RPCURL,
		Address:    cfg.Wallet.Address,
		PrivateKey: privateKey,
		RateLimit:  cfg.Exchange.RateLimit,
	})
	if err != nil {
		logger.Errorf("创建交易所客户端失败: %v", err)
		os.Exit(1)
	}

	marketFeed := feed.New(cfg.Market, client, cfg.Exchange.WSURL)

	eng, err := engine.New(cfg.Engine, cfg.Market, client, marketFeed)
	if err != nil {
		logger.Errorf("创建引擎失败: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// BBO 推送驱动带外重定价（dynamicRepriceOnBbo 未开启时引擎内部忽略）
	marketFeed.OnBBO(eng.OnBBO)
	if err := marketFeed.Start(ctx); err != nil {
		logger.Warnf("行情推送启动失败，回退 REST 轮询: %v", err)
	}

	mgr := shutdown.NewManager()
	mgr.OnShutdown(func(sctx context.Context, _ *sync.WaitGroup) {
		// 退出前撤掉本地追踪的所有挂单
		if err := eng.Book().GracefulCancel(sctx, func(cctx context.Context, orderID string) error {
			return client.CancelOrder(cctx, orderID, cfg.Market)
		}); err != nil {
			logger.Warnf("退出撤单未完全成功: %v", err)
		}
	})
	mgr.OnShutdown(func(context.Context, *sync.WaitGroup) {
		_ = marketFeed.Close()
	})

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigC
		logger.Infof("收到信号 %v，开始退出", sig)
		cancel()
	}()

	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Errorf("引擎退出: %v", err)
	}

	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	mgr.Shutdown(sctx)
	logger.Info("已退出")
}
