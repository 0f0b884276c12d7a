package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/liqbot/gomm/internal/domain"
)

// MockGateway is a mock exchange gateway for testing.
// It keeps an in-memory open-order set and supports call tracking and error injection.
type MockGateway struct {
	mu sync.Mutex

	// Open orders by id, as the "exchange" sees them.
	Open map[string]*domain.Order

	// Call tracking
	Calls map[string]int

	// Error injection: next call with this name fails once.
	ErrorOnNext map[string]error

	// KeepOpenOnBulkCancel simulates the cancel/query race: bulk cancel
	// succeeds but orders remain visible to the following query.
	KeepOpenOnBulkCancel bool

	nextID int
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Open:        make(map[string]*domain.Order),
		Calls:       make(map[string]int),
		ErrorOnNext: make(map[string]error),
	}
}

func (m *MockGateway) trackCall(name string) error {
	m.Calls[name]++
	if err, ok := m.ErrorOnNext[name]; ok {
		delete(m.ErrorOnNext, name)
		return err
	}
	return nil
}

// PlaceOrder records the order and returns a generated id.
func (m *MockGateway) PlaceOrder(ctx context.Context, market string, side domain.Side, price, size float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.trackCall("PlaceOrder"); err != nil {
		return "", err
	}
	m.nextID++
	id := fmt.Sprintf("mock-%d", m.nextID)
	m.Open[id] = &domain.Order{
		OrderID: id,
		Market:  market,
		Side:    side,
		Price:   price,
		Size:    size,
		Status:  domain.OrderStatusResting,
	}
	return id, nil
}

// CancelOrder removes the order from the open set.
func (m *MockGateway) CancelOrder(ctx context.Context, orderID string, market string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.trackCall("CancelOrder"); err != nil {
		return err
	}
	delete(m.Open, orderID)
	return nil
}

// CancelAllOrders clears the open set unless KeepOpenOnBulkCancel is set.
func (m *MockGateway) CancelAllOrders(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.trackCall("CancelAllOrders"); err != nil {
		return err
	}
	if !m.KeepOpenOnBulkCancel {
		m.Open = make(map[string]*domain.Order)
	}
	return nil
}

// OpenOrders returns the current open set.
func (m *MockGateway) OpenOrders(ctx context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.trackCall("OpenOrders"); err != nil {
		return nil, err
	}
	orders := make([]*domain.Order, 0, len(m.Open))
	for _, o := range m.Open {
		copied := *o
		orders = append(orders, &copied)
	}
	return orders, nil
}

// RemoveOpen drops an order exchange-side without a cancel (simulates a fill).
func (m *MockGateway) RemoveOpen(orderID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Open, orderID)
}

// SeedOpen injects pre-existing open orders (for reconciliation tests).
func (m *MockGateway) SeedOpen(orders ...*domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		m.Open[o.OrderID] = o
	}
}

// NumOpen returns how many orders the mock exchange holds.
func (m *MockGateway) NumOpen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Open)
}
