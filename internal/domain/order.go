package domain

import (
	"time"
)

// Side 订单方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite 返回相反方向
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"          // 已提交，等待交易所确认
	OrderStatusResting         OrderStatus = "resting"          // 已挂单（交易所确认接受）
	OrderStatusCancelRequested OrderStatus = "cancel_requested" // 已发出撤单请求
	OrderStatusCancelled       OrderStatus = "cancelled"        // 已撤销
	OrderStatusFilled          OrderStatus = "filled"           // 已成交
)

// Order 订单领域模型
//
// PlacementPrice 记录下单时刻观察到的中间价（mid），与订单限价 Price 不同，
// 用于后续的漂移（drift）比较。订单创建后 PlacementPrice 永不修改；
// 重新定价总是创建新订单，而不是修改旧订单的价格。
type Order struct {
	OrderID        string      // 交易所订单 ID
	Market         string      // 市场（例如 UBTC/USDC）
	Side           Side        // 订单方向
	Price          float64     // 订单限价
	Size           float64     // 基础资产数量
	PlacementPrice float64     // 下单时刻的 mid 价
	PlacedAt       time.Time   // 下单时间
	Status         OrderStatus // 订单状态
	Level          int         // 报价层级：0 = 主报价，1..N = 额外卖单层级
}

// Notional 返回订单的名义金额（USD）
func (o *Order) Notional() float64 {
	return o.Price * o.Size
}

// IsResting 检查订单是否处于挂单状态
func (o *Order) IsResting() bool {
	return o.Status == OrderStatusResting
}

// Valid 检查挂单不变量：size > 0 且 price > 0
func (o *Order) Valid() bool {
	return o != nil && o.Size > 0 && o.Price > 0
}

// Age 返回订单自下单以来经过的时间
func (o *Order) Age(now time.Time) time.Duration {
	return now.Sub(o.PlacedAt)
}
