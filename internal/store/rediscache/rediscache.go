// Package rediscache wraps a primary store.Store with a Redis
// read-through cache over the two read paths that matter for a live
// dashboard: a product's resting order book and the outlet roster
// backing the leaderboard. Every write goes to the primary store.
// Outlet writes invalidate the roster entry and order inserts
// invalidate the product's book entry; order status and quantity
// updates invalidate nothing, so the cached book can lag them until
// its TTL expires. Grounded on
// AMOORCHING-ATMX's internal/store/redis.go CachedStore.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/store"
)

// Store wraps a primary store.Store with Redis-cached reads for the
// order book and outlet roster.
type Store struct {
	primary store.Store
	rdb     *redis.Client
	ttl     time.Duration
}

// New creates a cached wrapper around primary.
func New(primary store.Store, rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{primary: primary, rdb: rdb, ttl: ttl}
}

var _ store.Store = (*Store)(nil)

func orderBookKey(productID string) string { return fmt.Sprintf("orderbook:%s", productID) }
func outletsKey() string                   { return "outlets:all" }

// --- Passthrough, no cacheable shape ---

func (s *Store) LoadAllInventory(ctx context.Context) ([]store.InventoryRow, error) {
	return s.primary.LoadAllInventory(ctx)
}

func (s *Store) FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.primary.FindOrderByID(ctx, orderID)
}

func (s *Store) FindTransactionsByProduct(ctx context.Context, productID string, limit int) ([]*domain.Trade, error) {
	return s.primary.FindTransactionsByProduct(ctx, productID, limit)
}

func (s *Store) FindRecentTransactions(ctx context.Context, limit int) ([]*domain.Trade, error) {
	return s.primary.FindRecentTransactions(ctx, limit)
}

func (s *Store) InsertTransaction(ctx context.Context, t *domain.Trade) error {
	return s.primary.InsertTransaction(ctx, t)
}

func (s *Store) InsertCustomerSale(ctx context.Context, sale *domain.CustomerSale) error {
	return s.primary.InsertCustomerSale(ctx, sale)
}

func (s *Store) AggregateCustomerSalesByOutlet(ctx context.Context) (map[string]*domain.SalesStats, error) {
	return s.primary.AggregateCustomerSalesByOutlet(ctx)
}

// --- Write-through with invalidation ---

func (s *Store) SetInventory(ctx context.Context, outletID, productID string, qty int64) error {
	return s.primary.SetInventory(ctx, outletID, productID, qty)
}

func (s *Store) InsertOutlet(ctx context.Context, o *domain.Outlet) error {
	if err := s.primary.InsertOutlet(ctx, o); err != nil {
		return err
	}
	s.rdb.Del(ctx, outletsKey())
	return nil
}

func (s *Store) UpdateBalance(ctx context.Context, outletID string, balance decimal.Decimal) error {
	if err := s.primary.UpdateBalance(ctx, outletID, balance); err != nil {
		return err
	}
	s.rdb.Del(ctx, outletsKey())
	return nil
}

func (s *Store) UpdateMargin(ctx context.Context, outletID string, marginPercent decimal.Decimal) error {
	if err := s.primary.UpdateMargin(ctx, outletID, marginPercent); err != nil {
		return err
	}
	s.rdb.Del(ctx, outletsKey())
	return nil
}

func (s *Store) SetOpen(ctx context.Context, outletID string, isOpen bool) error {
	if err := s.primary.SetOpen(ctx, outletID, isOpen); err != nil {
		return err
	}
	s.rdb.Del(ctx, outletsKey())
	return nil
}

func (s *Store) SetAllOpen(ctx context.Context, isOpen bool) error {
	if err := s.primary.SetAllOpen(ctx, isOpen); err != nil {
		return err
	}
	s.rdb.Del(ctx, outletsKey())
	return nil
}

func (s *Store) InsertOrder(ctx context.Context, o *domain.Order) error {
	if err := s.primary.InsertOrder(ctx, o); err != nil {
		return err
	}
	s.rdb.Del(ctx, orderBookKey(o.ProductID))
	return nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	return s.primary.UpdateOrderStatus(ctx, orderID, status)
}

func (s *Store) UpdateOrderQuantity(ctx context.Context, orderID string, remaining, filled int64) error {
	// Order-level updates don't carry the product id needed to target a
	// single cache key cheaply; the order book cache is short-TTL, so
	// it is left to expire rather than tracked here.
	return s.primary.UpdateOrderQuantity(ctx, orderID, remaining, filled)
}

// --- Read-through ---

func (s *Store) FindOutlet(ctx context.Context, outletID string) (*domain.Outlet, error) {
	all, err := s.FindAllOutlets(ctx)
	if err != nil {
		return nil, err
	}
	for _, o := range all {
		if o.OutletID == outletID {
			return o, nil
		}
	}
	return nil, domain.ErrOutletNotFound
}

func (s *Store) FindAllOutlets(ctx context.Context) ([]*domain.Outlet, error) {
	if data, err := s.rdb.Get(ctx, outletsKey()).Bytes(); err == nil {
		var outlets []*domain.Outlet
		if json.Unmarshal(data, &outlets) == nil {
			return outlets, nil
		}
	}

	outlets, err := s.primary.FindAllOutlets(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(outlets); err == nil {
		s.rdb.Set(ctx, outletsKey(), data, s.ttl)
	}
	return outlets, nil
}

func (s *Store) OrderBook(ctx context.Context, productID string, includeTerminal bool) ([]*domain.Order, error) {
	// Only the common includeTerminal=false view (the live book) is
	// cached; historical queries always go to the primary.
	if !includeTerminal {
		if data, err := s.rdb.Get(ctx, orderBookKey(productID)).Bytes(); err == nil {
			var orders []*domain.Order
			if json.Unmarshal(data, &orders) == nil {
				return orders, nil
			}
		}
	}

	orders, err := s.primary.OrderBook(ctx, productID, includeTerminal)
	if err != nil {
		return nil, err
	}
	if !includeTerminal {
		if data, err := json.Marshal(orders); err == nil {
			s.rdb.Set(ctx, orderBookKey(productID), data, s.ttl)
		}
	}
	return orders, nil
}
