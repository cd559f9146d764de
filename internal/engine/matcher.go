package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/metrics"
)

// LedgerSettler is the narrow surface the Matcher needs from the
// Ledger: a single atomic operation that moves cash and credits
// buyer inventory for one fill (§4.2/§4.3). Accepting this interface
// instead of a concrete Ledger keeps the matching core decoupled from
// how balances are stored.
type LedgerSettler interface {
	SettleFill(buyOrder, sellOrder *domain.Order, qty int64, price decimal.Decimal) (*domain.Trade, error)
}

// EventPublisher is the narrow surface the Matcher needs from the
// Broadcaster.
type EventPublisher interface {
	Publish(evt domain.Event)
}

// Matcher implements the price-time priority continuous double-auction
// matching core (§4.2). One Matcher invocation runs per submitted
// order.
type Matcher struct {
	books  *BookManager
	ledger LedgerSettler
	events EventPublisher
}

// NewMatcher creates a new Matcher with the given dependencies.
func NewMatcher(books *BookManager, ledger LedgerSettler, events EventPublisher) *Matcher {
	return &Matcher{books: books, ledger: ledger, events: events}
}

// Match runs the incoming order through the matching loop against its
// product's Book. The caller must provide a fully populated order
// (OrderID, Side, ProductID, OutletID, Quantity, PricePerUnit,
// RemainingQuantity, Status=ACTIVE, CreatedAt, Sequence already set —
// order construction and validation happen one layer up, in the
// service). The per-product write lock is held for the entire pass,
// realising the single logical critical section from §5.
func (m *Matcher) Match(incoming *domain.Order) {
	book := m.books.GetOrCreate(incoming.ProductID)

	book.Lock()
	defer book.Unlock()

	for incoming.RemainingQuantity > 0 {
		counterpart, found := findCounterpart(book, incoming)
		if !found {
			break
		}
		resting := counterpart.Order

		fillQty := incoming.RemainingQuantity
		if resting.RemainingQuantity < fillQty {
			fillQty = resting.RemainingQuantity
		}
		// Execution price is always the resting order's price (§4.2).
		fillPrice := resting.PricePerUnit

		var buyOrder, sellOrder *domain.Order
		if incoming.Side == domain.OrderSideBuy {
			buyOrder, sellOrder = incoming, resting
		} else {
			buyOrder, sellOrder = resting, incoming
		}

		trade, err := m.ledger.SettleFill(buyOrder, sellOrder, fillQty, fillPrice)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientBalance) {
				m.abortOverdraw(book, buyOrder, incoming)
				m.events.Publish(domain.NewErrorEvent(
					"settlement aborted: buyer would overdraw", "matcher",
				))
				if buyOrder == incoming {
					// The taker itself can't afford the fill; nothing
					// more can be done for this submission.
					break
				}
				// The resting counterparty was the overdrawing buyer
				// and has been pulled from the book; keep looking for
				// another counterparty for the incoming order.
				continue
			}
			// Any other settlement error is unexpected at this layer;
			// surface it as a matcher error and stop this submission.
			m.events.Publish(domain.NewErrorEvent(err.Error(), "matcher"))
			break
		}

		now := time.Now()
		incoming.RemainingQuantity -= fillQty
		incoming.FilledQuantity += fillQty
		incoming.UpdatedAt = now
		applyFillStatus(incoming)

		resting.RemainingQuantity -= fillQty
		resting.FilledQuantity += fillQty
		resting.UpdatedAt = now
		applyFillStatus(resting)

		if resting.RemainingQuantity == 0 {
			book.Pop(resting.OrderID)
		}

		metrics.TradesTotal.WithLabelValues(incoming.ProductID).Inc()
		metrics.TradeVolume.WithLabelValues(incoming.ProductID).Add(float64(fillQty))

		m.events.Publish(domain.NewTradeExecutedEvent(trade))
		m.events.Publish(domain.NewBookUpdatedEvent(incoming.ProductID))
	}

	// Rest or complete: if quantity remains and the order wasn't
	// cancelled by an overdraw abort above, it stays ACTIVE or
	// PARTIALLY_FILLED, resting on the book (§4.2 Terminal status).
	// This is the only case that needs its own BookUpdated: every
	// TradeExecuted above was already paired with one.
	if incoming.RemainingQuantity > 0 && !incoming.Status.IsTerminal() {
		book.Insert(incoming)
		m.events.Publish(domain.NewBookUpdatedEvent(incoming.ProductID))
	}
}

// abortOverdraw cancels the overdrawing buy order without emitting a
// TradeExecuted for the aborted slice (§4.2, §7 kind 3). buyOrder may
// be either the incoming order or a resting counterparty; only a
// resting order is removed from the book, since the incoming order was
// never inserted.
func (m *Matcher) abortOverdraw(book *OrderBook, buyOrder, incoming *domain.Order) {
	buyOrder.Status = domain.OrderStatusCancelled
	buyOrder.RemainingQuantity = 0
	buyOrder.UpdatedAt = time.Now()
	if buyOrder != incoming {
		book.Pop(buyOrder.OrderID)
	}
}

// applyFillStatus sets the order's status from its RemainingQuantity
// after a fill has been applied.
func applyFillStatus(o *domain.Order) {
	if o.RemainingQuantity == 0 {
		o.Status = domain.OrderStatusFilled
	} else {
		o.Status = domain.OrderStatusPartiallyFilled
	}
}

// findCounterpart walks the book side opposite incoming.Side in
// priority order, skipping self-trades (§4.2 self-trade policy), and
// returns the first entry that crosses. Priority order is monotonic in
// price once self-trades are skipped, so the first non-self entry that
// fails to cross means no entry after it can cross either.
func findCounterpart(book *OrderBook, incoming *domain.Order) (OrderBookEntry, bool) {
	var result OrderBookEntry
	var found bool
	book.WalkOpposite(incoming.Side, func(e OrderBookEntry) bool {
		if e.Order.OutletID == incoming.OutletID {
			return true // self-trade: skip, keep walking
		}
		if !incoming.Crosses(e.Order) {
			return false // no cross possible from here on; stop
		}
		result = e
		found = true
		return false
	})
	return result, found
}
