package engine

import (
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/metrics"
)

// OrderBookEntry represents a single order resting on the book.
type OrderBookEntry struct {
	Price     decimal.Decimal
	CreatedAt time.Time
	Sequence  uint64
	OrderID   string
	Order     *domain.Order
}

// PriceLevel represents an aggregated price level in the order book.
type PriceLevel struct {
	Price         decimal.Decimal
	TotalQuantity int64
	OrderCount    int
}

// bidLess defines ordering for the bid side: price descending, then
// created_at ascending, then sequence ascending, then order_id
// ascending. Min() returns the best bid (highest price, earliest,
// lowest sequence). The sequence number is the tiebreak authority
// per §9's design note; created_at is kept only for display and as a
// secondary check under coarse clock resolution.
func bidLess(a, b OrderBookEntry) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.GreaterThan(b.Price)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.OrderID < b.OrderID
}

// askLess defines ordering for the ask side: price ascending, then
// created_at ascending, then sequence ascending, then order_id
// ascending. Min() returns the best ask (lowest price, earliest,
// lowest sequence).
func askLess(a, b OrderBookEntry) bool {
	if !a.Price.Equal(b.Price) {
		return a.Price.LessThan(b.Price)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.OrderID < b.OrderID
}

// OrderBook maintains the bid and ask sides for a single product using
// B-trees with a secondary index for O(log n) removal by order ID.
// Only orders with status ACTIVE or PARTIALLY_FILLED are resident; on a
// transition to FILLED/CANCELLED the order is removed (§4.1).
type OrderBook struct {
	productID string
	mu        sync.Mutex
	bids      *btree.BTreeG[OrderBookEntry]
	asks      *btree.BTreeG[OrderBookEntry]
	index     map[string]OrderBookEntry // order_id → entry
}

// NewOrderBook creates an order book for the given product.
func NewOrderBook(productID string) *OrderBook {
	const degree = 32
	return &OrderBook{
		productID: productID,
		bids:      btree.NewG[OrderBookEntry](degree, bidLess),
		asks:      btree.NewG[OrderBookEntry](degree, askLess),
		index:     make(map[string]OrderBookEntry),
	}
}

// Lock acquires the book's write lock. The Matcher holds this for the
// entire matching pass against this product, realising the single
// logical critical section from §5.
func (ob *OrderBook) Lock() { ob.mu.Lock() }

// Unlock releases the book's write lock.
func (ob *OrderBook) Unlock() { ob.mu.Unlock() }

func entryFor(order *domain.Order) OrderBookEntry {
	return OrderBookEntry{
		Price:     order.PricePerUnit,
		CreatedAt: order.CreatedAt,
		Sequence:  order.Sequence,
		OrderID:   order.OrderID,
		Order:     order,
	}
}

// Insert adds a resting order to the appropriate side of the book.
func (ob *OrderBook) Insert(order *domain.Order) {
	entry := entryFor(order)
	if order.Side == domain.OrderSideBuy {
		ob.bids.ReplaceOrInsert(entry)
		metrics.OrdersResting.WithLabelValues(ob.productID, "BUY").Set(float64(ob.bids.Len()))
	} else {
		ob.asks.ReplaceOrInsert(entry)
		metrics.OrdersResting.WithLabelValues(ob.productID, "SELL").Set(float64(ob.asks.Len()))
	}
	ob.index[entry.OrderID] = entry
}

// Pop removes an order from the book by order ID using the secondary
// index. It tries both sides since the caller may not know which side
// the order is on. A no-op if the order isn't resident.
func (ob *OrderBook) Pop(orderID string) {
	entry, ok := ob.index[orderID]
	if !ok {
		return
	}
	delete(ob.index, orderID)
	ob.bids.Delete(entry)
	ob.asks.Delete(entry)
	metrics.OrdersResting.WithLabelValues(ob.productID, "BUY").Set(float64(ob.bids.Len()))
	metrics.OrdersResting.WithLabelValues(ob.productID, "SELL").Set(float64(ob.asks.Len()))
}

// BestBid returns the highest-priority bid (highest price, earliest,
// lowest sequence).
func (ob *OrderBook) BestBid() (OrderBookEntry, bool) {
	return ob.bids.Min()
}

// BestAsk returns the highest-priority ask (lowest price, earliest,
// lowest sequence).
func (ob *OrderBook) BestAsk() (OrderBookEntry, bool) {
	return ob.asks.Min()
}

// PeekBest returns the best resting order for the given side.
func (ob *OrderBook) PeekBest(side domain.OrderSide) (OrderBookEntry, bool) {
	if side == domain.OrderSideBuy {
		return ob.BestBid()
	}
	return ob.BestAsk()
}

// WalkAsks iterates asks in priority order (lowest price first). The
// callback returns true to continue, false to stop.
func (ob *OrderBook) WalkAsks(fn func(OrderBookEntry) bool) {
	ob.asks.Ascend(fn)
}

// WalkBids iterates bids in priority order (highest price first). The
// callback returns true to continue, false to stop.
func (ob *OrderBook) WalkBids(fn func(OrderBookEntry) bool) {
	ob.bids.Ascend(fn)
}

// WalkOpposite iterates the side opposite to the given incoming side,
// in priority order.
func (ob *OrderBook) WalkOpposite(incomingSide domain.OrderSide, fn func(OrderBookEntry) bool) {
	if incomingSide == domain.OrderSideBuy {
		ob.WalkAsks(fn)
	} else {
		ob.WalkBids(fn)
	}
}

// BidCount returns the number of individual bid orders on the book.
func (ob *OrderBook) BidCount() int { return ob.bids.Len() }

// AskCount returns the number of individual ask orders on the book.
func (ob *OrderBook) AskCount() int { return ob.asks.Len() }

// TopBids returns up to n aggregated price levels from the bid side,
// ordered by price descending.
func (ob *OrderBook) TopBids(n int) []PriceLevel {
	return topLevels(ob.bids, n)
}

// TopAsks returns up to n aggregated price levels from the ask side,
// ordered by price ascending.
func (ob *OrderBook) TopAsks(n int) []PriceLevel {
	return topLevels(ob.asks, n)
}

func topLevels(tree *btree.BTreeG[OrderBookEntry], n int) []PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]PriceLevel, 0, n)
	tree.Ascend(func(entry OrderBookEntry) bool {
		if len(levels) > 0 && levels[len(levels)-1].Price.Equal(entry.Price) {
			levels[len(levels)-1].TotalQuantity += entry.Order.RemainingQuantity
			levels[len(levels)-1].OrderCount++
			return true
		}
		if len(levels) >= n {
			return false
		}
		levels = append(levels, PriceLevel{
			Price:         entry.Price,
			TotalQuantity: entry.Order.RemainingQuantity,
			OrderCount:    1,
		})
		return true
	})
	return levels
}

// OrderBookSnapshot holds both sides of a book at a point in time.
type OrderBookSnapshot struct {
	ProductID string
	Bids      []*domain.Order
	Asks      []*domain.Order
}

// Snapshot returns every resident order on both sides. Since only
// non-terminal orders are ever resident on the in-memory book,
// includeTerminal only matters to callers that merge this snapshot
// with persisted history (the Store's orderBook query, §6); the
// in-memory book itself never holds a terminal order.
func (ob *OrderBook) Snapshot() OrderBookSnapshot {
	snap := OrderBookSnapshot{ProductID: ob.productID}
	ob.bids.Ascend(func(e OrderBookEntry) bool {
		snap.Bids = append(snap.Bids, e.Order)
		return true
	})
	ob.asks.Ascend(func(e OrderBookEntry) bool {
		snap.Asks = append(snap.Asks, e.Order)
		return true
	})
	return snap
}

// BookManager is a thread-safe map of productID → OrderBook.
type BookManager struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
}

// NewBookManager creates a new BookManager.
func NewBookManager() *BookManager {
	return &BookManager{books: make(map[string]*OrderBook)}
}

// GetOrCreate returns the order book for the given product, creating
// one if it doesn't already exist.
func (bm *BookManager) GetOrCreate(productID string) *OrderBook {
	bm.mu.RLock()
	book, ok := bm.books[productID]
	bm.mu.RUnlock()
	if ok {
		return book
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	if book, ok = bm.books[productID]; ok {
		return book
	}
	book = NewOrderBook(productID)
	bm.books[productID] = book
	return book
}

// ProductIDs returns every product currently tracked by the manager.
func (bm *BookManager) ProductIDs() []string {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	ids := make([]string, 0, len(bm.books))
	for id := range bm.books {
		ids = append(ids, id)
	}
	return ids
}
