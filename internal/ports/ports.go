package ports

import (
	"context"

	"github.com/liqbot/gomm/internal/domain"
)

// Shared, small interfaces for the engine to depend on (avoid per-component duplication).

// OrderPlacer 下单
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, market string, side domain.Side, price, size float64) (orderID string, err error)
}

// OrderCanceler 撤单
type OrderCanceler interface {
	CancelOrder(ctx context.Context, orderID string, market string) error
}

// BulkCanceler 撤销账户下全部订单（跨市场）
type BulkCanceler interface {
	CancelAllOrders(ctx context.Context) error
}

// OpenOrdersLister 查询账户当前挂单
type OpenOrdersLister interface {
	OpenOrders(ctx context.Context) ([]*domain.Order, error)
}

// Gateway 交易所网关（引擎消费的完整接口）
type Gateway interface {
	OrderPlacer
	OrderCanceler
	BulkCanceler
	OpenOrdersLister
}

// SnapshotSource 市场数据源：按市场获取 top-of-book 快照
type SnapshotSource interface {
	GetSnapshot(ctx context.Context, market string) (*domain.Snapshot, error)
}
