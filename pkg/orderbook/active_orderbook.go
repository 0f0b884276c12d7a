package orderbook

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liqbot/gomm/internal/domain"
	"github.com/liqbot/gomm/pkg/logger"
	"github.com/liqbot/gomm/pkg/sigchan"
)

const (
	DefaultCancelOrderWaitTime = 50 * time.Millisecond
	DefaultOrderCancelTimeout  = 15 * time.Second
)

// ActiveOrderBook 管理本进程认为正在挂单的本地订单簿
//
// 它是 Order 的唯一内存持有者：只有重定价引擎和启动对账器会修改它。
// 同一个交易所订单 ID 不允许出现两次。
type ActiveOrderBook struct {
	Market string

	orders map[string]*domain.Order // 订单 ID -> 订单
	mu     sync.RWMutex

	// 回调
	newCallbacks      []func(order *domain.Order)
	filledCallbacks   []func(order *domain.Order)
	canceledCallbacks []func(order *domain.Order)

	// 信号 channel
	C *sigchan.Chan

	// 取消订单配置
	cancelOrderWaitTime time.Duration
	cancelOrderTimeout  time.Duration
}

// NewActiveOrderBook 创建新的活跃订单簿
func NewActiveOrderBook(market string) *ActiveOrderBook {
	return &ActiveOrderBook{
		Market:              market,
		orders:              make(map[string]*domain.Order),
		C:                   sigchan.New(1),
		cancelOrderWaitTime: DefaultCancelOrderWaitTime,
		cancelOrderTimeout:  DefaultOrderCancelTimeout,
	}
}

// Track 添加订单到本地订单簿
// 重复的订单 ID 会被拒绝（保持 "一个交易所订单 ID 只出现一次" 的不变量）
func (b *ActiveOrderBook) Track(order *domain.Order) error {
	if order == nil || order.OrderID == "" {
		return fmt.Errorf("无效订单：缺少订单 ID")
	}
	if !order.Valid() {
		return fmt.Errorf("无效订单 %s：size=%v price=%v", order.OrderID, order.Size, order.Price)
	}

	b.mu.Lock()
	if _, exists := b.orders[order.OrderID]; exists {
		b.mu.Unlock()
		return fmt.Errorf("订单 %s 已存在", order.OrderID)
	}
	b.orders[order.OrderID] = order
	b.mu.Unlock()

	// 触发回调（在锁外执行，避免死锁）
	for _, cb := range b.newCallbacks {
		cb(order)
	}
	b.C.Emit()
	return nil
}

// Untrack 移除订单（确认撤销后调用）
func (b *ActiveOrderBook) Untrack(orderID string) bool {
	b.mu.Lock()
	order, exists := b.orders[orderID]
	if exists {
		delete(b.orders, orderID)
	}
	b.mu.Unlock()

	if exists {
		order.Status = domain.OrderStatusCancelled
		for _, cb := range b.canceledCallbacks {
			cb(order)
		}
		b.C.Emit()
	}
	return exists
}

// MarkFilled 标记订单已成交并移除
func (b *ActiveOrderBook) MarkFilled(orderID string) (*domain.Order, bool) {
	b.mu.Lock()
	order, exists := b.orders[orderID]
	if exists {
		delete(b.orders, orderID)
	}
	b.mu.Unlock()

	if !exists {
		return nil, false
	}
	order.Status = domain.OrderStatusFilled
	for _, cb := range b.filledCallbacks {
		cb(order)
	}
	b.C.Emit()
	return order, true
}

// Get 获取订单
func (b *ActiveOrderBook) Get(orderID string) (*domain.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	order, ok := b.orders[orderID]
	return order, ok
}

// Exists 检查订单是否存在
func (b *ActiveOrderBook) Exists(orderID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, exists := b.orders[orderID]
	return exists
}

// NumOfOrders 获取订单数量
func (b *ActiveOrderBook) NumOfOrders() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// Orders 获取所有订单
func (b *ActiveOrderBook) Orders() []*domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	orders := make([]*domain.Order, 0, len(b.orders))
	for _, order := range b.orders {
		orders = append(orders, order)
	}
	return orders
}

// FindBySide 按方向获取订单
func (b *ActiveOrderBook) FindBySide(side domain.Side) []*domain.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var orders []*domain.Order
	for _, order := range b.orders {
		if order.Side == side {
			orders = append(orders, order)
		}
	}
	return orders
}

// OnNew 注册新订单回调
func (b *ActiveOrderBook) OnNew(cb func(order *domain.Order)) {
	b.newCallbacks = append(b.newCallbacks, cb)
}

// OnFilled 注册订单成交回调
func (b *ActiveOrderBook) OnFilled(cb func(order *domain.Order)) {
	b.filledCallbacks = append(b.filledCallbacks, cb)
}

// OnCanceled 注册订单取消回调
func (b *ActiveOrderBook) OnCanceled(cb func(order *domain.Order)) {
	b.canceledCallbacks = append(b.canceledCallbacks, cb)
}

// GracefulCancel 优雅取消所有订单（关闭流程使用）
func (b *ActiveOrderBook) GracefulCancel(ctx context.Context, cancelFunc func(ctx context.Context, orderID string) error) error {
	orders := b.Orders()

	for _, order := range orders {
		if err := cancelFunc(ctx, order.OrderID); err != nil {
			logger.Warnf("取消订单 %s 失败: %v", order.OrderID, err)
			continue
		}
		b.Untrack(order.OrderID)
	}

	return b.waitOrderClear(ctx)
}

// waitOrderClear 等待订单清除
func (b *ActiveOrderBook) waitOrderClear(ctx context.Context) error {
	ticker := time.NewTicker(b.cancelOrderWaitTime)
	defer ticker.Stop()

	timeout := time.NewTimer(b.cancelOrderTimeout)
	defer timeout.Stop()

	for {
		if b.NumOfOrders() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout.C:
			return fmt.Errorf("order cancel timeout")
		case <-ticker.C:
		case <-b.C.C():
		}
	}
}
