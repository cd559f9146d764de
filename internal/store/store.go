// Package store defines the durable persistence boundary the exchange
// core consumes. It never appears on the hot path of a match: the
// in-memory Ledger and Book are the source of truth for reads during a
// run (§5); Store is where that state is made durable and rehydrated
// from at boot.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
)

// InventoryRow is one row of the inventory table.
type InventoryRow struct {
	OutletID  string
	ProductID string
	Quantity  int64
}

// Store is the narrow persistence interface the engine depends on
// (§6). All datetime fields it round-trips are serialised as ISO-8601
// local (no timezone suffix) by implementations that go to text-based
// storage.
type Store interface {
	// Inventory.
	LoadAllInventory(ctx context.Context) ([]InventoryRow, error)
	SetInventory(ctx context.Context, outletID, productID string, qty int64) error

	// Outlets.
	InsertOutlet(ctx context.Context, o *domain.Outlet) error
	FindOutlet(ctx context.Context, outletID string) (*domain.Outlet, error)
	FindAllOutlets(ctx context.Context) ([]*domain.Outlet, error)
	UpdateBalance(ctx context.Context, outletID string, balance decimal.Decimal) error
	UpdateMargin(ctx context.Context, outletID string, marginPercent decimal.Decimal) error
	SetOpen(ctx context.Context, outletID string, isOpen bool) error
	SetAllOpen(ctx context.Context, isOpen bool) error

	// Orders.
	InsertOrder(ctx context.Context, o *domain.Order) error
	FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error
	UpdateOrderQuantity(ctx context.Context, orderID string, remaining, filled int64) error
	OrderBook(ctx context.Context, productID string, includeTerminal bool) ([]*domain.Order, error)

	// Transactions (fills).
	InsertTransaction(ctx context.Context, t *domain.Trade) error
	FindTransactionsByProduct(ctx context.Context, productID string, limit int) ([]*domain.Trade, error)
	FindRecentTransactions(ctx context.Context, limit int) ([]*domain.Trade, error)

	// Customer sales.
	InsertCustomerSale(ctx context.Context, s *domain.CustomerSale) error
	AggregateCustomerSalesByOutlet(ctx context.Context) (map[string]*domain.SalesStats, error)
}
