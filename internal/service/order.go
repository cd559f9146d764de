// Package service is the validation-and-construction layer sitting
// between callers (the periodic agents, the HTTP API) and the matching
// core, generalized from the teacher's internal/service/order.go
// validate-then-construct-then-match shape.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/engine"
	"github.com/efreitasn/donutexchange/internal/ledger"
	"github.com/efreitasn/donutexchange/internal/store"
)

// SubmitOrderRequest is the input to SubmitOrder.
type SubmitOrderRequest struct {
	Side         domain.OrderSide
	ProductID    string
	OutletID     string
	Quantity     int64
	PricePerUnit decimal.Decimal
}

// OrderService validates incoming orders, constructs them, persists
// their pre-match state, and runs them through the Matcher (§4.1/§7
// kind 1).
type OrderService struct {
	matcher  *engine.Matcher
	ledger   *ledger.Ledger
	products *domain.ProductRegistry
	store    store.Store
	logger   *slog.Logger
}

// NewOrderService creates an OrderService with the given dependencies.
func NewOrderService(
	matcher *engine.Matcher,
	l *ledger.Ledger,
	products *domain.ProductRegistry,
	st store.Store,
	logger *slog.Logger,
) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{matcher: matcher, ledger: l, products: products, store: st, logger: logger}
}

// SubmitOrder validates req, constructs the Order, runs it through the
// matching engine, and returns only once the order has matched or
// rested and its post-match state has been persisted (§4.1's
// "returns only after ... persisted" guarantee). The returned order
// reflects its final status.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*domain.Order, error) {
	if req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell {
		return nil, &domain.ValidationError{Message: "side must be BUY or SELL"}
	}
	if req.Quantity <= 0 {
		return nil, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	if req.PricePerUnit.LessThanOrEqual(decimal.Zero) {
		return nil, &domain.ValidationError{Message: "pricePerUnit must be greater than 0"}
	}
	if _, ok := s.products.Get(req.ProductID); !ok {
		return nil, domain.ErrProductNotFound
	}
	outlet, err := s.ledger.FindOutlet(req.OutletID)
	if err != nil {
		return nil, err
	}
	outlet.Mu.Lock()
	isOpen := outlet.IsOpen
	outlet.Mu.Unlock()
	if !isOpen {
		return nil, domain.ErrOutletClosed
	}

	now := time.Now()
	order := &domain.Order{
		OrderID:           uuid.NewString(),
		Side:              req.Side,
		ProductID:         req.ProductID,
		OutletID:          req.OutletID,
		Quantity:          req.Quantity,
		PricePerUnit:      req.PricePerUnit,
		RemainingQuantity: req.Quantity,
		FilledQuantity:    0,
		Status:            domain.OrderStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
		Sequence:          domain.NextSequence(),
	}

	if err := s.store.InsertOrder(ctx, order); err != nil {
		s.logger.Warn("insert order failed", slog.String("orderId", order.OrderID), slog.String("error", err.Error()))
	}

	s.matcher.Match(order)

	s.persistPostMatch(ctx, order)

	return order, nil
}

// persistPostMatch writes the order's final status/quantities after a
// match pass. Retried once per §7 kind 4, then logged; the in-memory
// order returned to the caller always reflects the true outcome
// regardless of persistence success.
func (s *OrderService) persistPostMatch(ctx context.Context, order *domain.Order) {
	if err := s.store.UpdateOrderQuantity(ctx, order.OrderID, order.RemainingQuantity, order.FilledQuantity); err != nil {
		time.Sleep(50 * time.Millisecond)
		if err := s.store.UpdateOrderQuantity(ctx, order.OrderID, order.RemainingQuantity, order.FilledQuantity); err != nil {
			s.logger.Warn("persist order quantity failed", slog.String("orderId", order.OrderID), slog.String("error", err.Error()))
		}
	}
	if err := s.store.UpdateOrderStatus(ctx, order.OrderID, order.Status); err != nil {
		time.Sleep(50 * time.Millisecond)
		if err := s.store.UpdateOrderStatus(ctx, order.OrderID, order.Status); err != nil {
			s.logger.Warn("persist order status failed", slog.String("orderId", order.OrderID), slog.String("error", err.Error()))
		}
	}
}

// GetOrder retrieves an order by id.
func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.store.FindOrderByID(ctx, orderID)
}

// OrderBook returns the resting orders for a product.
func (s *OrderService) OrderBook(ctx context.Context, productID string) ([]*domain.Order, error) {
	if _, ok := s.products.Get(productID); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return s.store.OrderBook(ctx, productID, false)
}
