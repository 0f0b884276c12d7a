package orderbook

import (
	"testing"
	"time"

	"github.com/liqbot/gomm/internal/domain"
)

func newTestOrder(id string, side domain.Side) *domain.Order {
	return &domain.Order{
		OrderID:        id,
		Market:         "UBTC/USDC",
		Side:           side,
		Price:          90000,
		Size:           0.0003,
		PlacementPrice: 90000,
		PlacedAt:       time.Now(),
		Status:         domain.OrderStatusResting,
	}
}

func TestTrackRejectsDuplicateID(t *testing.T) {
	b := NewActiveOrderBook("UBTC/USDC")

	if err := b.Track(newTestOrder("o1", domain.SideBuy)); err != nil {
		t.Fatalf("first track failed: %v", err)
	}
	// 相同订单 ID 不允许出现两次
	if err := b.Track(newTestOrder("o1", domain.SideSell)); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
	if b.NumOfOrders() != 1 {
		t.Fatalf("expected 1 order, got %d", b.NumOfOrders())
	}
}

func TestTrackRejectsInvalidOrder(t *testing.T) {
	b := NewActiveOrderBook("UBTC/USDC")

	o := newTestOrder("o1", domain.SideBuy)
	o.Size = 0
	if err := b.Track(o); err == nil {
		t.Fatalf("expected invalid order (size=0) to be rejected")
	}
}

func TestFindBySide(t *testing.T) {
	b := NewActiveOrderBook("UBTC/USDC")
	_ = b.Track(newTestOrder("b1", domain.SideBuy))
	_ = b.Track(newTestOrder("s1", domain.SideSell))
	_ = b.Track(newTestOrder("s2", domain.SideSell))

	if got := len(b.FindBySide(domain.SideBuy)); got != 1 {
		t.Fatalf("buy side got=%d want=1", got)
	}
	if got := len(b.FindBySide(domain.SideSell)); got != 2 {
		t.Fatalf("sell side got=%d want=2", got)
	}
}

func TestUntrackFiresCanceledCallback(t *testing.T) {
	b := NewActiveOrderBook("UBTC/USDC")

	var canceled []*domain.Order
	b.OnCanceled(func(o *domain.Order) { canceled = append(canceled, o) })

	_ = b.Track(newTestOrder("o1", domain.SideBuy))
	if ok := b.Untrack("o1"); !ok {
		t.Fatalf("expected untrack ok")
	}
	if ok := b.Untrack("o1"); ok {
		t.Fatalf("expected second untrack to be a no-op")
	}
	if len(canceled) != 1 || canceled[0].Status != domain.OrderStatusCancelled {
		t.Fatalf("canceled callback not fired correctly: %+v", canceled)
	}
}

func TestMarkFilled(t *testing.T) {
	b := NewActiveOrderBook("UBTC/USDC")

	var filled []*domain.Order
	b.OnFilled(func(o *domain.Order) { filled = append(filled, o) })

	_ = b.Track(newTestOrder("o1", domain.SideSell))
	order, ok := b.MarkFilled("o1")
	if !ok || order.Status != domain.OrderStatusFilled {
		t.Fatalf("expected filled order, got ok=%v order=%+v", ok, order)
	}
	if b.NumOfOrders() != 0 {
		t.Fatalf("filled order should be removed, got %d", b.NumOfOrders())
	}
	if len(filled) != 1 {
		t.Fatalf("filled callback not fired")
	}
}
