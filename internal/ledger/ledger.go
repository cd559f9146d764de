// Package ledger is the single authority for balance and inventory
// writes (§4.3), generalized from the teacher's internal/store/broker.go
// mutex-guarded map pattern into a component that also owns inventory
// cells, customer sales, and the derived SalesStats/leaderboard view.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/metrics"
	"github.com/efreitasn/donutexchange/internal/store"
)

// EventPublisher is the narrow surface the Ledger needs from the
// Broadcaster.
type EventPublisher interface {
	Publish(evt domain.Event)
}

type inventoryKey struct {
	outletID  string
	productID string
}

// Ledger holds the in-memory write-through view described in §4.3: a
// source of truth for reads during a run, backed by a Store for
// durability. Persistence failures are retried once and then logged
// as Error events per §7 kind 4 — the in-memory value is never rolled
// back.
type Ledger struct {
	store    store.Store
	products *domain.ProductRegistry
	events   EventPublisher
	logger   *slog.Logger

	initialBalance   decimal.Decimal
	supplierOutletID string

	outletsMu sync.RWMutex
	outlets   map[string]*domain.Outlet

	invMu     sync.Mutex
	inventory map[inventoryKey]*domain.InventoryCell

	statsMu sync.Mutex
	stats   map[string]*domain.SalesStats
}

// New creates a Ledger backed by st, using products for cost-basis
// lookups, initialBalance as the netProfit baseline (§4.3, §6
// INITIAL_OUTLET_BALANCE), and supplierOutletID as the configured
// sentinel outlet id (§6 SUPPLIER_OUTLET_ID) excluded from leaderboards
// and retail-outlet listings (§3, §9).
func New(st store.Store, products *domain.ProductRegistry, events EventPublisher, initialBalance decimal.Decimal, supplierOutletID string, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		store:            st,
		products:         products,
		events:           events,
		logger:           logger,
		initialBalance:   initialBalance,
		supplierOutletID: supplierOutletID,
		outlets:          make(map[string]*domain.Outlet),
		inventory:        make(map[inventoryKey]*domain.InventoryCell),
		stats:            make(map[string]*domain.SalesStats),
	}
}

// IsSentinel reports whether outletID is the configured supplier
// sentinel, the single place that filter is decided (§9) so every
// caller — Leaderboard, retail-outlet listings — agrees even when
// SUPPLIER_OUTLET_ID overrides the default.
func (l *Ledger) IsSentinel(outletID string) bool {
	return outletID == l.supplierOutletID
}

// Rehydrate loads outlets, inventory, and customer-sales stats from the
// store at startup. A failure here aborts boot (§7 kind 5).
func (l *Ledger) Rehydrate(ctx context.Context) error {
	outlets, err := l.store.FindAllOutlets(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate outlets: %w", err)
	}
	l.outletsMu.Lock()
	for _, o := range outlets {
		l.outlets[o.OutletID] = o
	}
	l.outletsMu.Unlock()

	rows, err := l.store.LoadAllInventory(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate inventory: %w", err)
	}
	l.invMu.Lock()
	for _, row := range rows {
		l.inventory[inventoryKey{row.OutletID, row.ProductID}] = &domain.InventoryCell{
			OutletID: row.OutletID, ProductID: row.ProductID, Quantity: row.Quantity,
		}
	}
	l.invMu.Unlock()

	customerStats, err := l.store.AggregateCustomerSalesByOutlet(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate customer sales: %w", err)
	}
	l.statsMu.Lock()
	for outletID, s := range customerStats {
		l.stats[outletID] = s
	}
	l.statsMu.Unlock()

	return nil
}

// RegisterOutlet creates a new outlet at bootstrap.
func (l *Ledger) RegisterOutlet(ctx context.Context, o *domain.Outlet) error {
	if err := l.store.InsertOutlet(ctx, o); err != nil {
		return err
	}
	l.outletsMu.Lock()
	l.outlets[o.OutletID] = o
	l.outletsMu.Unlock()
	return nil
}

func (l *Ledger) getOutlet(outletID string) (*domain.Outlet, bool) {
	l.outletsMu.RLock()
	defer l.outletsMu.RUnlock()
	o, ok := l.outlets[outletID]
	return o, ok
}

// FindOutlet returns the outlet, or ErrOutletNotFound.
func (l *Ledger) FindOutlet(outletID string) (*domain.Outlet, error) {
	o, ok := l.getOutlet(outletID)
	if !ok {
		return nil, domain.ErrOutletNotFound
	}
	return o, nil
}

// AllOutlets returns every registered outlet, sentinel included.
func (l *Ledger) AllOutlets() []*domain.Outlet {
	l.outletsMu.RLock()
	defer l.outletsMu.RUnlock()
	out := make([]*domain.Outlet, 0, len(l.outlets))
	for _, o := range l.outlets {
		out = append(out, o)
	}
	return out
}

// SettleFill is the Matcher's LedgerSettler: an atomic pair of balance
// moves and a buyer-inventory credit for one fill (§4.2). Seller
// inventory is never decremented — sell orders are uncovered forward
// commitments (§3, §9 Open Question).
func (l *Ledger) SettleFill(buyOrder, sellOrder *domain.Order, qty int64, price decimal.Decimal) (*domain.Trade, error) {
	buyer, ok := l.getOutlet(buyOrder.OutletID)
	if !ok {
		return nil, domain.ErrOutletNotFound
	}
	seller, ok := l.getOutlet(sellOrder.OutletID)
	if !ok {
		return nil, domain.ErrOutletNotFound
	}

	total := domain.RoundMoney(price.Mul(decimal.NewFromInt(qty)))

	unlock := lockPair(buyer, seller)
	defer unlock()

	if buyer.Balance.LessThan(total) {
		return nil, domain.ErrInsufficientBalance
	}
	buyer.Balance = buyer.Balance.Sub(total)
	seller.Balance = seller.Balance.Add(total)

	l.invMu.Lock()
	buyerQty := l.addInventoryLocked(buyOrder.OutletID, buyOrder.ProductID, qty)
	l.invMu.Unlock()
	l.persistInventoryAsync(buyOrder.OutletID, buyOrder.ProductID, buyerQty)

	l.recordExchangeSale(sellOrder.OutletID, total)

	ctx := context.Background()
	l.persistWithRetry(ctx, "update buyer balance", func(ctx context.Context) error {
		return l.store.UpdateBalance(ctx, buyer.OutletID, buyer.Balance)
	})
	l.persistWithRetry(ctx, "update seller balance", func(ctx context.Context) error {
		return l.store.UpdateBalance(ctx, seller.OutletID, seller.Balance)
	})

	trade := &domain.Trade{
		TransactionID:  uuid.NewString(),
		BuyOrderID:     buyOrder.OrderID,
		SellOrderID:    sellOrder.OrderID,
		BuyerOutletID:  buyOrder.OutletID,
		SellerOutletID: sellOrder.OutletID,
		ProductID:      buyOrder.ProductID,
		Quantity:       qty,
		PricePerUnit:   price,
		TotalAmount:    total,
		ExecutedAt:     time.Now(),
	}
	l.persistWithRetry(ctx, "insert transaction", func(ctx context.Context) error {
		return l.store.InsertTransaction(ctx, trade)
	})

	return trade, nil
}

// lockPair locks two outlets' mutexes in a fixed order (by OutletID) to
// avoid deadlock when two fills settle concurrently on overlapping
// outlets. Returns the unlock function.
func lockPair(a, b *domain.Outlet) func() {
	if a.OutletID == b.OutletID {
		a.Mu.Lock()
		return a.Mu.Unlock
	}
	first, second := a, b
	if b.OutletID < a.OutletID {
		first, second = b, a
	}
	first.Mu.Lock()
	second.Mu.Lock()
	return func() {
		second.Mu.Unlock()
		first.Mu.Unlock()
	}
}

// SellToCustomer implements §4.3's sellToCustomer: debit inventory,
// credit balance at the outlet's margin over the product's base price.
func (l *Ledger) SellToCustomer(outletID, productID string, qty int64) (*domain.CustomerSale, error) {
	outlet, ok := l.getOutlet(outletID)
	if !ok {
		return nil, domain.ErrOutletNotFound
	}
	product, ok := l.products.Get(productID)
	if !ok {
		return nil, domain.ErrProductNotFound
	}

	l.invMu.Lock()
	cell := l.inventory[inventoryKey{outletID, productID}]
	if cell == nil || cell.Quantity < qty {
		l.invMu.Unlock()
		return nil, domain.ErrInsufficientInventory
	}
	cell.Quantity -= qty
	remainingQty := cell.Quantity
	l.invMu.Unlock()

	costBasis := domain.RoundMoney(product.BasePrice.Mul(decimal.NewFromInt(qty)))
	marginFactor := decimal.NewFromInt(1).Add(outlet.MarginPercent.Div(decimal.NewFromInt(100)))
	revenue := domain.RoundMoney(costBasis.Mul(marginFactor))
	profit := revenue.Sub(costBasis)

	outlet.Mu.Lock()
	outlet.Balance = outlet.Balance.Add(revenue)
	outlet.Mu.Unlock()

	sale := &domain.CustomerSale{
		SaleID:     uuid.NewString(),
		OutletID:   outletID,
		ProductID:  productID,
		Quantity:   qty,
		CostBasis:  costBasis,
		Revenue:    revenue,
		Profit:     profit,
		ExecutedAt: time.Now(),
	}

	l.statsMu.Lock()
	s := l.statsFor(outletID)
	s.CustomerSalesRevenue = s.CustomerSalesRevenue.Add(revenue)
	s.CustomerSalesCount++
	l.statsMu.Unlock()

	metrics.CustomerSalesTotal.WithLabelValues(outletID).Inc()

	// Customer-sale persistence is fire-and-forget (§7): the sale is
	// reflected in cash and inventory regardless of persistence outcome.
	go func() {
		ctx := context.Background()
		if err := l.store.InsertCustomerSale(ctx, sale); err != nil {
			l.logger.Warn("customer sale persistence failed", slog.String("saleId", sale.SaleID), slog.String("error", err.Error()))
		}
		if err := l.store.SetInventory(ctx, outletID, productID, remainingQty); err != nil {
			l.logger.Warn("inventory persistence failed", slog.String("outletId", outletID), slog.String("error", err.Error()))
		}
	}()

	if l.events != nil {
		l.events.Publish(domain.NewCustomerPurchasedEvent(sale))
	}

	return sale, nil
}

// statsFor returns (creating if needed) the cached stats entry for an
// outlet. Callers must hold statsMu.
func (l *Ledger) statsFor(outletID string) *domain.SalesStats {
	s, ok := l.stats[outletID]
	if !ok {
		s = &domain.SalesStats{OutletID: outletID}
		l.stats[outletID] = s
	}
	return s
}

func (l *Ledger) recordExchangeSale(sellerOutletID string, total decimal.Decimal) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	s := l.statsFor(sellerOutletID)
	s.ExchangeSalesRevenue = s.ExchangeSalesRevenue.Add(total)
	s.ExchangeSalesCount++
}

// Stats returns the outlet's derived SalesStats, with NetProfit
// computed fresh from the current balance (§4.3).
func (l *Ledger) Stats(outletID string) (*domain.SalesStats, error) {
	outlet, ok := l.getOutlet(outletID)
	if !ok {
		return nil, domain.ErrOutletNotFound
	}

	l.statsMu.Lock()
	cached := l.statsFor(outletID)
	out := *cached
	l.statsMu.Unlock()

	out.NetProfit = outlet.NetProfit(l.initialBalance)
	return &out, nil
}

// Leaderboard returns non-sentinel outlets sorted by netProfit
// descending (§4.3, §9 sentinel filter).
func (l *Ledger) Leaderboard() []*domain.Outlet {
	outlets := l.RetailOutlets()
	sort.Slice(outlets, func(i, j int) bool {
		return outlets[i].NetProfit(l.initialBalance).GreaterThan(outlets[j].NetProfit(l.initialBalance))
	})
	return outlets
}

// RetailOutlets returns every registered outlet except the sentinel,
// the shared filter behind both Leaderboard and outlet listings (§3:
// the sentinel is "excluded from leaderboards and retail-outlet
// listings").
func (l *Ledger) RetailOutlets() []*domain.Outlet {
	l.outletsMu.RLock()
	defer l.outletsMu.RUnlock()
	outlets := make([]*domain.Outlet, 0, len(l.outlets))
	for _, o := range l.outlets {
		if l.IsSentinel(o.OutletID) {
			continue
		}
		outlets = append(outlets, o)
	}
	return outlets
}

// InventoryOf returns the quantity of productID held by outletID.
func (l *Ledger) InventoryOf(outletID, productID string) int64 {
	l.invMu.Lock()
	defer l.invMu.Unlock()
	cell := l.inventory[inventoryKey{outletID, productID}]
	if cell == nil {
		return 0
	}
	return cell.Quantity
}

// AddInventory credits qty units of productID to outletID, creating the
// cell lazily on first credit (§3 Lifecycle).
func (l *Ledger) AddInventory(outletID, productID string, qty int64) {
	l.invMu.Lock()
	newQty := l.addInventoryLocked(outletID, productID, qty)
	l.invMu.Unlock()
	l.persistInventoryAsync(outletID, productID, newQty)
}

// addInventoryLocked assumes invMu is held.
func (l *Ledger) addInventoryLocked(outletID, productID string, qty int64) int64 {
	key := inventoryKey{outletID, productID}
	cell := l.inventory[key]
	if cell == nil {
		cell = &domain.InventoryCell{OutletID: outletID, ProductID: productID}
		l.inventory[key] = cell
	}
	cell.Quantity += qty
	return cell.Quantity
}

// RemoveInventory debits qty units, returning ErrInsufficientInventory
// if the cell doesn't hold enough (§3 invariant: never negative).
func (l *Ledger) RemoveInventory(outletID, productID string, qty int64) error {
	l.invMu.Lock()
	key := inventoryKey{outletID, productID}
	cell := l.inventory[key]
	if cell == nil || cell.Quantity < qty {
		l.invMu.Unlock()
		return domain.ErrInsufficientInventory
	}
	cell.Quantity -= qty
	newQty := cell.Quantity
	l.invMu.Unlock()
	l.persistInventoryAsync(outletID, productID, newQty)
	return nil
}

// SetInventory overwrites the cell's quantity directly (bootstrap use).
func (l *Ledger) SetInventory(outletID, productID string, qty int64) {
	l.invMu.Lock()
	key := inventoryKey{outletID, productID}
	cell := l.inventory[key]
	if cell == nil {
		cell = &domain.InventoryCell{OutletID: outletID, ProductID: productID}
		l.inventory[key] = cell
	}
	cell.Quantity = qty
	l.invMu.Unlock()
	l.persistInventoryAsync(outletID, productID, qty)
}

func (l *Ledger) persistInventoryAsync(outletID, productID string, qty int64) {
	go func() {
		l.persistWithRetry(context.Background(), "set inventory", func(ctx context.Context) error {
			return l.store.SetInventory(ctx, outletID, productID, qty)
		})
	}()
}

// SetMargin updates an outlet's margin percentage.
func (l *Ledger) SetMargin(outletID string, marginPercent decimal.Decimal) error {
	outlet, ok := l.getOutlet(outletID)
	if !ok {
		return domain.ErrOutletNotFound
	}
	outlet.Mu.Lock()
	outlet.MarginPercent = marginPercent
	outlet.Mu.Unlock()
	l.persistWithRetry(context.Background(), "update margin", func(ctx context.Context) error {
		return l.store.UpdateMargin(ctx, outletID, marginPercent)
	})
	return nil
}

// SetOpen updates an outlet's isOpen gate.
func (l *Ledger) SetOpen(outletID string, isOpen bool) error {
	outlet, ok := l.getOutlet(outletID)
	if !ok {
		return domain.ErrOutletNotFound
	}
	outlet.Mu.Lock()
	outlet.IsOpen = isOpen
	outlet.Mu.Unlock()
	l.persistWithRetry(context.Background(), "set open", func(ctx context.Context) error {
		return l.store.SetOpen(ctx, outletID, isOpen)
	})
	return nil
}

// SetAllOpen updates every outlet's isOpen gate.
func (l *Ledger) SetAllOpen(isOpen bool) {
	l.outletsMu.RLock()
	outlets := make([]*domain.Outlet, 0, len(l.outlets))
	for _, o := range l.outlets {
		outlets = append(outlets, o)
	}
	l.outletsMu.RUnlock()

	for _, o := range outlets {
		o.Mu.Lock()
		o.IsOpen = isOpen
		o.Mu.Unlock()
	}
	l.persistWithRetry(context.Background(), "set all open", func(ctx context.Context) error {
		return l.store.SetAllOpen(ctx, isOpen)
	})
}

// persistWithRetry implements §7 kind 4: one retry after a short fixed
// delay, then an Error event on repeat failure. The in-memory state is
// never rolled back.
func (l *Ledger) persistWithRetry(ctx context.Context, op string, fn func(context.Context) error) {
	if err := fn(ctx); err == nil {
		return
	}
	time.Sleep(50 * time.Millisecond)
	if err := fn(ctx); err != nil {
		l.logger.Warn("persistence failed after retry", slog.String("op", op), slog.String("error", err.Error()))
		if l.events != nil {
			l.events.Publish(domain.NewErrorEvent(fmt.Sprintf("%s: %s", op, err.Error()), "store"))
		}
	}
}
