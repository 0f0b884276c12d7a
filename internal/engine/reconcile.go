package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/liqbot/gomm/internal/domain"
	"github.com/liqbot/gomm/pkg/logger"
)

// Reconcile 启动对账：
//
//	(a) 发出一次账户级 bulk-cancel（跨市场），保证崩溃/重启不会留下占用资金的残单；
//	(b) 等撤单结算后查询当前挂单；
//	(c) 本市场上仍然存在的订单（撤单与查询之间的竞态）收编进本地订单簿，
//	    下单时间重建为 now，使过期计时在重启后依然有效。
//
// 重复执行是幂等的：交易所状态不变时，第二次对账不会改变本地订单数量。
func (e *Engine) Reconcile(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	logger.Infof("启动对账: market=%s", e.market)

	if err := e.gateway.CancelAllOrders(ctx); err != nil {
		// bulk-cancel 失败不致命：后面的收编会把残单全部纳入管理
		logger.Warnf("bulk-cancel 失败，继续对账: %v", err)
	}

	// 等撤单结算
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(e.cfg.SettleWait()):
	}

	open, err := e.gateway.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("查询挂单失败: %w", err)
	}

	adopted := 0
	now := time.Now()
	for _, o := range open {
		if o.Market != "" && o.Market != e.market {
			continue
		}
		if e.book.Exists(o.OrderID) {
			continue
		}
		// 下单时刻的 mid 已不可知，保守地用订单限价作为 placement price，
		// 下单时间重建为 now
		adoptedOrder := &domain.Order{
			OrderID:        o.OrderID,
			Market:         e.market,
			Side:           o.Side,
			Price:          o.Price,
			Size:           o.Size,
			PlacementPrice: o.Price,
			PlacedAt:       now,
			Status:         domain.OrderStatusResting,
		}
		if err := e.book.Track(adoptedOrder); err != nil {
			logger.Warnf("收编订单 %s 失败: %v", o.OrderID, err)
			continue
		}
		adopted++
	}

	logger.Infof("启动对账完成: 收编 %d 笔残留订单，本地订单数=%d", adopted, e.book.NumOfOrders())
	return nil
}
