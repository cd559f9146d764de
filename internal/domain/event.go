package domain

// EventKind enumerates the four domain events the Broadcaster fans
// out (§4.4).
type EventKind string

const (
	EventTradeExecuted    EventKind = "TRADE_EXECUTED"
	EventBookUpdated      EventKind = "BOOK_UPDATED"
	EventCustomerPurchased EventKind = "CUSTOMER_PURCHASED"
	EventError            EventKind = "ERROR"
)

// Event is the single envelope type delivered to every EventSink. Only
// the field matching Kind is populated.
type Event struct {
	Kind EventKind

	Trade        *Trade
	BookProductID string
	Sale         *CustomerSale

	ErrorMessage string
	ErrorSource  string
}

// NewTradeExecutedEvent wraps a completed fill.
func NewTradeExecutedEvent(t *Trade) Event {
	return Event{Kind: EventTradeExecuted, Trade: t}
}

// NewBookUpdatedEvent announces that a product's book changed shape.
func NewBookUpdatedEvent(productID string) Event {
	return Event{Kind: EventBookUpdated, BookProductID: productID}
}

// NewCustomerPurchasedEvent wraps a completed retail sale.
func NewCustomerPurchasedEvent(s *CustomerSale) Event {
	return Event{Kind: EventCustomerPurchased, Sale: s}
}

// NewErrorEvent describes a non-fatal failure and the component that
// raised it (e.g. "matcher", "store").
func NewErrorEvent(message, source string) Event {
	return Event{Kind: EventError, ErrorMessage: message, ErrorSource: source}
}
