package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/liqbot/gomm/internal/domain"
)

func seedResidual(id, market string, side domain.Side, price, size float64) *domain.Order {
	return &domain.Order{
		OrderID: id,
		Market:  market,
		Side:    side,
		Price:   price,
		Size:    size,
		Status:  domain.OrderStatusResting,
	}
}

func TestReconcileAdoptsResidualOrders(t *testing.T) {
	e, mock, _ := newEngineWithMock(t, baseConfig())

	// 模拟撤单/查询竞态：bulk-cancel 后订单仍在挂单列表里
	mock.KeepOpenOnBulkCancel = true
	mock.SeedOpen(
		seedResidual("r1", "UBTC/USDC", domain.SideBuy, 89964, 0.0003),
		seedResidual("r2", "UBTC/USDC", domain.SideSell, 90036, 0.0003),
		seedResidual("r3", "UETH/USDC", domain.SideBuy, 3100, 0.01), // 其他市场，不收编
	)

	before := time.Now()
	if err := e.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}

	if got := mock.Calls["CancelAllOrders"]; got != 1 {
		t.Fatalf("CancelAllOrders calls got=%d want=1", got)
	}
	if n := e.book.NumOfOrders(); n != 2 {
		t.Fatalf("adopted count got=%d want=2 (other-market order must be skipped)", n)
	}

	o, ok := e.book.Get("r1")
	if !ok {
		t.Fatalf("r1 not adopted")
	}
	// 下单时刻的 mid 不可知：placement price 用限价，计时重建为 now
	if o.PlacementPrice != 89964 {
		t.Fatalf("adopted placementPrice got=%v want=89964", o.PlacementPrice)
	}
	if o.PlacedAt.Before(before) {
		t.Fatalf("adopted PlacedAt must be rebuilt to now, got %v", o.PlacedAt)
	}
	if !o.IsResting() {
		t.Fatalf("adopted order status got=%s want resting", o.Status)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	e, mock, _ := newEngineWithMock(t, baseConfig())

	mock.KeepOpenOnBulkCancel = true
	mock.SeedOpen(
		seedResidual("r1", "UBTC/USDC", domain.SideBuy, 89964, 0.0003),
	)

	ctx := context.Background()
	if err := e.Reconcile(ctx); err != nil {
		t.Fatalf("first Reconcile error: %v", err)
	}
	n1 := e.book.NumOfOrders()

	// 交易所状态不变时重复对账不得产生净变化
	if err := e.Reconcile(ctx); err != nil {
		t.Fatalf("second Reconcile error: %v", err)
	}
	if n2 := e.book.NumOfOrders(); n2 != n1 {
		t.Fatalf("reconcile not idempotent: first=%d second=%d", n1, n2)
	}
}

func TestReconcileBulkCancelFailureNonFatal(t *testing.T) {
	e, mock, _ := newEngineWithMock(t, baseConfig())

	mock.KeepOpenOnBulkCancel = true
	mock.ErrorOnNext["CancelAllOrders"] = errors.New("exchange unavailable")
	mock.SeedOpen(seedResidual("r1", "UBTC/USDC", domain.SideBuy, 89964, 0.0003))

	if err := e.Reconcile(context.Background()); err != nil {
		t.Fatalf("bulk-cancel failure must not abort reconciliation: %v", err)
	}
	if !e.book.Exists("r1") {
		t.Fatalf("residual order not adopted after bulk-cancel failure")
	}
}

func TestReconcileListFailureFatal(t *testing.T) {
	e, mock, _ := newEngineWithMock(t, baseConfig())

	mock.ErrorOnNext["OpenOrders"] = errors.New("exchange unavailable")

	if err := e.Reconcile(context.Background()); err == nil {
		t.Fatalf("open-orders query failure must abort reconciliation")
	}
}

func TestReconcileEmptyAccount(t *testing.T) {
	e, mock, _ := newEngineWithMock(t, baseConfig())

	if err := e.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile error: %v", err)
	}
	if n := e.book.NumOfOrders(); n != 0 {
		t.Fatalf("empty account adopted %d orders", n)
	}
	if got := mock.Calls["OpenOrders"]; got != 1 {
		t.Fatalf("OpenOrders calls got=%d want=1", got)
	}
}
