// cancel-orders 一次性撤掉账户下的全部挂单（跨市场），
// 然后列出仍然存在的订单。用于人工清场或部署前重置。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/liqbot/gomm/internal/exchange"
	"github.com/liqbot/gomm/pkg/config"
	"github.com/liqbot/gomm/pkg/logger"
)

func main() {
	configPath := flag.String("config", "yml/config.yml", "配置文件路径")
	settleWait := flag.Duration("wait", 500*time.Millisecond, "撤单后等待结算的时间")
	flag.Parse()

	_ = godotenv.Load()

	path := *configPath
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitDefault(); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}

	client, err := exchange.NewClient(exchange.Options{
		RPCURL:     cfg.Exchange.RPCURL,
		Address:    cfg.Wallet.Address,
		PrivateKey: cfg.Wallet.PrivateKey,
		RateLimit:  cfg.Exchange.RateLimit,
	})
	if err != nil {
		logger.Errorf("创建交易所客户端失败: %v", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.CancelAllOrders(ctx); err != nil {
		logger.Errorf("bulk-cancel 失败: %v", err)
		os.Exit(1)
	}
	logger.Info("bulk-cancel 已发出")

	time.Sleep(*settleWait)

	open, err := client.OpenOrders(ctx)
	if err != nil {
		logger.Errorf("查询挂单失败: %v", err)
		os.Exit(1)
	}
	if len(open) == 0 {
		logger.Info("账户已无挂单")
		return
	}
	logger.Warnf("仍有 %d 笔挂单未撤销:", len(open))
	for _, o := range open {
		logger.Warnf("  id=%s market=%s side=%s price=%v size=%v", o.OrderID, o.Market, o.Side, o.Price, o.Size)
	}
}
