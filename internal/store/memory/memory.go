// Package memory is the default Store implementation: thread-safe
// in-memory maps guarded by mutexes, grounded on the teacher's
// internal/store/*.go. It is used standalone (no durability across
// restarts) and as the backing store in every test.
package memory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/store"
)

type inventoryKey struct {
	outletID  string
	productID string
}

// Store is an in-memory implementation of store.Store.
type Store struct {
	mu sync.RWMutex

	outlets   map[string]*domain.Outlet
	inventory map[inventoryKey]int64

	orders      map[string]*domain.Order
	productOrders map[string][]*domain.Order // productID → orders, insertion order

	transactions      []*domain.Trade
	productTransactions map[string][]*domain.Trade

	customerSales []*domain.CustomerSale
}

// New creates an empty in-memory Store.
func New() *Store {
	return &Store{
		outlets:             make(map[string]*domain.Outlet),
		inventory:           make(map[inventoryKey]int64),
		orders:              make(map[string]*domain.Order),
		productOrders:       make(map[string][]*domain.Order),
		productTransactions: make(map[string][]*domain.Trade),
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) LoadAllInventory(ctx context.Context) ([]store.InventoryRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]store.InventoryRow, 0, len(s.inventory))
	for k, qty := range s.inventory {
		rows = append(rows, store.InventoryRow{OutletID: k.outletID, ProductID: k.productID, Quantity: qty})
	}
	return rows, nil
}

func (s *Store) SetInventory(ctx context.Context, outletID, productID string, qty int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inventory[inventoryKey{outletID, productID}] = qty
	return nil
}

func (s *Store) InsertOutlet(ctx context.Context, o *domain.Outlet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.outlets[o.OutletID]; exists {
		return domain.ErrOutletAlreadyExists
	}
	s.outlets[o.OutletID] = o
	return nil
}

func (s *Store) FindOutlet(ctx context.Context, outletID string) (*domain.Outlet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outlets[outletID]
	if !ok {
		return nil, domain.ErrOutletNotFound
	}
	return o, nil
}

func (s *Store) FindAllOutlets(ctx context.Context) ([]*domain.Outlet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Outlet, 0, len(s.outlets))
	for _, o := range s.outlets {
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) UpdateBalance(ctx context.Context, outletID string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outlets[outletID]
	if !ok {
		return domain.ErrOutletNotFound
	}
	o.Balance = balance
	return nil
}

func (s *Store) UpdateMargin(ctx context.Context, outletID string, marginPercent decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outlets[outletID]
	if !ok {
		return domain.ErrOutletNotFound
	}
	o.MarginPercent = marginPercent
	return nil
}

func (s *Store) SetOpen(ctx context.Context, outletID string, isOpen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outlets[outletID]
	if !ok {
		return domain.ErrOutletNotFound
	}
	o.IsOpen = isOpen
	return nil
}

func (s *Store) SetAllOpen(ctx context.Context, isOpen bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.outlets {
		o.IsOpen = isOpen
	}
	return nil
}

func (s *Store) InsertOrder(ctx context.Context, o *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.OrderID] = o
	s.productOrders[o.ProductID] = append(s.productOrders[o.ProductID], o)
	return nil
}

func (s *Store) FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	return nil
}

func (s *Store) UpdateOrderQuantity(ctx context.Context, orderID string, remaining, filled int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.RemainingQuantity = remaining
	o.FilledQuantity = filled
	return nil
}

func (s *Store) OrderBook(ctx context.Context, productID string, includeTerminal bool) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.productOrders[productID]
	out := make([]*domain.Order, 0, len(all))
	for _, o := range all {
		if !includeTerminal && o.Status.IsTerminal() {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) InsertTransaction(ctx context.Context, t *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, t)
	s.productTransactions[t.ProductID] = append(s.productTransactions[t.ProductID], t)
	return nil
}

func (s *Store) FindTransactionsByProduct(ctx context.Context, productID string, limit int) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.productTransactions[productID]
	return lastN(all, limit), nil
}

func (s *Store) FindRecentTransactions(ctx context.Context, limit int) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastN(s.transactions, limit), nil
}

func lastN(all []*domain.Trade, limit int) []*domain.Trade {
	if limit <= 0 || limit >= len(all) {
		out := make([]*domain.Trade, len(all))
		copy(out, all)
		return out
	}
	start := len(all) - limit
	out := make([]*domain.Trade, limit)
	copy(out, all[start:])
	return out
}

func (s *Store) InsertCustomerSale(ctx context.Context, sale *domain.CustomerSale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customerSales = append(s.customerSales, sale)
	return nil
}

func (s *Store) AggregateCustomerSalesByOutlet(ctx context.Context) (map[string]*domain.SalesStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*domain.SalesStats)
	for _, sale := range s.customerSales {
		stats, ok := out[sale.OutletID]
		if !ok {
			stats = &domain.SalesStats{OutletID: sale.OutletID}
			out[sale.OutletID] = stats
		}
		stats.CustomerSalesRevenue = stats.CustomerSalesRevenue.Add(sale.Revenue)
		stats.CustomerSalesCount++
	}
	return out, nil
}
