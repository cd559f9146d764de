// Package postgres implements store.Store over PostgreSQL, grounded on
// AMOORCHING-ATMX's internal/store/postgres.go: money moves through
// the wire as NUMERIC, scanned back via decimal.NewFromString rather
// than through float64. Per §9's design note, a transactional store
// like Postgres lets writes go through a single transaction instead of
// the source's write-through-cache-with-retry dance; the Store methods
// here are still called through the Ledger's persistWithRetry wrapper,
// so a transient connection failure still gets the one-retry-then-Error
// behavior from the caller's side.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/store"
)

// isoLocalLayout is the ISO-8601-local (no timezone suffix) layout
// every datetime field round-trips through per §6.
const isoLocalLayout = "2006-01-02T15:04:05.999999999"

// Store implements store.Store over a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Postgres-backed Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

var _ store.Store = (*Store)(nil)

func formatTime(t time.Time) string {
	return t.Format(isoLocalLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(isoLocalLayout, s)
}

// Migrate creates the schema if it doesn't already exist. Called once
// at boot before Rehydrate.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS outlets (
	outlet_id      TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	location       TEXT NOT NULL,
	balance        NUMERIC NOT NULL,
	margin_percent NUMERIC NOT NULL,
	is_open        BOOLEAN NOT NULL,
	created_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS inventory (
	outlet_id  TEXT NOT NULL,
	product_id TEXT NOT NULL,
	quantity   BIGINT NOT NULL,
	PRIMARY KEY (outlet_id, product_id)
);

CREATE TABLE IF NOT EXISTS orders (
	order_id           TEXT PRIMARY KEY,
	side               TEXT NOT NULL,
	product_id         TEXT NOT NULL,
	outlet_id          TEXT NOT NULL,
	quantity           BIGINT NOT NULL,
	price_per_unit     NUMERIC NOT NULL,
	remaining_quantity BIGINT NOT NULL,
	filled_quantity    BIGINT NOT NULL,
	status             TEXT NOT NULL,
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	sequence           BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_product ON orders (product_id);

CREATE TABLE IF NOT EXISTS transactions (
	transaction_id   TEXT PRIMARY KEY,
	buy_order_id     TEXT NOT NULL,
	sell_order_id    TEXT NOT NULL,
	buyer_outlet_id  TEXT NOT NULL,
	seller_outlet_id TEXT NOT NULL,
	product_id       TEXT NOT NULL,
	quantity         BIGINT NOT NULL,
	price_per_unit   NUMERIC NOT NULL,
	total_amount     NUMERIC NOT NULL,
	executed_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_product ON transactions (product_id, executed_at);

CREATE TABLE IF NOT EXISTS customer_sales (
	sale_id     TEXT PRIMARY KEY,
	outlet_id   TEXT NOT NULL,
	product_id  TEXT NOT NULL,
	quantity    BIGINT NOT NULL,
	cost_basis  NUMERIC NOT NULL,
	revenue     NUMERIC NOT NULL,
	profit      NUMERIC NOT NULL,
	executed_at TEXT NOT NULL
);
`)
	return err
}

func (s *Store) LoadAllInventory(ctx context.Context) ([]store.InventoryRow, error) {
	rows, err := s.pool.Query(ctx, `SELECT outlet_id, product_id, quantity FROM inventory`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.InventoryRow
	for rows.Next() {
		var r store.InventoryRow
		if err := rows.Scan(&r.OutletID, &r.ProductID, &r.Quantity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) SetInventory(ctx context.Context, outletID, productID string, qty int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO inventory (outlet_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (outlet_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		outletID, productID, qty,
	)
	return err
}

func (s *Store) InsertOutlet(ctx context.Context, o *domain.Outlet) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO outlets (outlet_id, name, location, balance, margin_percent, is_open, created_at)
		VALUES ($1, $2, $3, $4::NUMERIC, $5::NUMERIC, $6, $7)`,
		o.OutletID, o.Name, o.Location, o.Balance.String(), o.MarginPercent.String(), o.IsOpen, formatTime(o.CreatedAt),
	)
	if err != nil && isUniqueViolation(err) {
		return domain.ErrOutletAlreadyExists
	}
	return err
}

func (s *Store) scanOutlet(row pgx.Row) (*domain.Outlet, error) {
	var o domain.Outlet
	var balanceS, marginS, createdAtS string
	if err := row.Scan(&o.OutletID, &o.Name, &o.Location, &balanceS, &marginS, &o.IsOpen, &createdAtS); err != nil {
		return nil, err
	}
	balance, err := decimal.NewFromString(balanceS)
	if err != nil {
		return nil, fmt.Errorf("parse balance: %w", err)
	}
	margin, err := decimal.NewFromString(marginS)
	if err != nil {
		return nil, fmt.Errorf("parse margin: %w", err)
	}
	createdAt, err := parseTime(createdAtS)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	o.Balance = balance
	o.MarginPercent = margin
	o.CreatedAt = createdAt
	return &o, nil
}

func (s *Store) FindOutlet(ctx context.Context, outletID string) (*domain.Outlet, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT outlet_id, name, location, balance::TEXT, margin_percent::TEXT, is_open, created_at
		FROM outlets WHERE outlet_id = $1`, outletID)
	o, err := s.scanOutlet(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrOutletNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *Store) FindAllOutlets(ctx context.Context) ([]*domain.Outlet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT outlet_id, name, location, balance::TEXT, margin_percent::TEXT, is_open, created_at
		FROM outlets`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Outlet
	for rows.Next() {
		o, err := s.scanOutlet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) UpdateBalance(ctx context.Context, outletID string, balance decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx, `UPDATE outlets SET balance = $2::NUMERIC WHERE outlet_id = $1`, outletID, balance.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOutletNotFound
	}
	return nil
}

func (s *Store) UpdateMargin(ctx context.Context, outletID string, marginPercent decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx, `UPDATE outlets SET margin_percent = $2::NUMERIC WHERE outlet_id = $1`, outletID, marginPercent.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOutletNotFound
	}
	return nil
}

func (s *Store) SetOpen(ctx context.Context, outletID string, isOpen bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE outlets SET is_open = $2 WHERE outlet_id = $1`, outletID, isOpen)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOutletNotFound
	}
	return nil
}

func (s *Store) SetAllOpen(ctx context.Context, isOpen bool) error {
	_, err := s.pool.Exec(ctx, `UPDATE outlets SET is_open = $1`, isOpen)
	return err
}

func (s *Store) InsertOrder(ctx context.Context, o *domain.Order) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO orders (order_id, side, product_id, outlet_id, quantity, price_per_unit,
		                     remaining_quantity, filled_quantity, status, created_at, updated_at, sequence)
		VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7, $8, $9, $10, $11, $12)`,
		o.OrderID, string(o.Side), o.ProductID, o.OutletID, o.Quantity, o.PricePerUnit.String(),
		o.RemainingQuantity, o.FilledQuantity, string(o.Status), formatTime(o.CreatedAt), formatTime(o.UpdatedAt), o.Sequence,
	)
	return err
}

func (s *Store) scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var side, status, priceS, createdAtS, updatedAtS string
	if err := row.Scan(&o.OrderID, &side, &o.ProductID, &o.OutletID, &o.Quantity, &priceS,
		&o.RemainingQuantity, &o.FilledQuantity, &status, &createdAtS, &updatedAtS, &o.Sequence); err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(priceS)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}
	createdAt, err := parseTime(createdAtS)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	updatedAt, err := parseTime(updatedAtS)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	o.Side = domain.OrderSide(side)
	o.Status = domain.OrderStatus(status)
	o.PricePerUnit = price
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt
	return &o, nil
}

const orderColumns = `order_id, side, product_id, outlet_id, quantity, price_per_unit::TEXT,
                       remaining_quantity, filled_quantity, status, created_at, updated_at, sequence`

func (s *Store) FindOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_id = $1`, orderID)
	o, err := s.scanOrder(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}
	return o, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE orders SET status = $2 WHERE order_id = $1`, orderID, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (s *Store) UpdateOrderQuantity(ctx context.Context, orderID string, remaining, filled int64) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET remaining_quantity = $2, filled_quantity = $3 WHERE order_id = $1`,
		orderID, remaining, filled,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (s *Store) OrderBook(ctx context.Context, productID string, includeTerminal bool) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE product_id = $1`
	if !includeTerminal {
		query += ` AND status NOT IN ('FILLED', 'CANCELLED')`
	}
	rows, err := s.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		o, err := s.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) InsertTransaction(ctx context.Context, t *domain.Trade) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (transaction_id, buy_order_id, sell_order_id, buyer_outlet_id,
		                          seller_outlet_id, product_id, quantity, price_per_unit, total_amount, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::NUMERIC, $9::NUMERIC, $10)`,
		t.TransactionID, t.BuyOrderID, t.SellOrderID, t.BuyerOutletID, t.SellerOutletID,
		t.ProductID, t.Quantity, t.PricePerUnit.String(), t.TotalAmount.String(), formatTime(t.ExecutedAt),
	)
	return err
}

func (s *Store) scanTrade(row pgx.Row) (*domain.Trade, error) {
	var t domain.Trade
	var priceS, totalS, executedAtS string
	if err := row.Scan(&t.TransactionID, &t.BuyOrderID, &t.SellOrderID, &t.BuyerOutletID,
		&t.SellerOutletID, &t.ProductID, &t.Quantity, &priceS, &totalS, &executedAtS); err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(priceS)
	if err != nil {
		return nil, err
	}
	total, err := decimal.NewFromString(totalS)
	if err != nil {
		return nil, err
	}
	executedAt, err := parseTime(executedAtS)
	if err != nil {
		return nil, err
	}
	t.PricePerUnit = price
	t.TotalAmount = total
	t.ExecutedAt = executedAt
	return &t, nil
}

const tradeColumns = `transaction_id, buy_order_id, sell_order_id, buyer_outlet_id,
                       seller_outlet_id, product_id, quantity, price_per_unit::TEXT, total_amount::TEXT, executed_at`

func (s *Store) FindTransactionsByProduct(ctx context.Context, productID string, limit int) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+` FROM transactions WHERE product_id = $1 ORDER BY executed_at DESC LIMIT $2`,
		productID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanTrades(rows)
}

func (s *Store) FindRecentTransactions(ctx context.Context, limit int) ([]*domain.Trade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+tradeColumns+` FROM transactions ORDER BY executed_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return s.scanTrades(rows)
}

func (s *Store) scanTrades(rows pgx.Rows) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for rows.Next() {
		t, err := s.scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) InsertCustomerSale(ctx context.Context, sale *domain.CustomerSale) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO customer_sales (sale_id, outlet_id, product_id, quantity, cost_basis, revenue, profit, executed_at)
		VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8)`,
		sale.SaleID, sale.OutletID, sale.ProductID, sale.Quantity,
		sale.CostBasis.String(), sale.Revenue.String(), sale.Profit.String(), formatTime(sale.ExecutedAt),
	)
	return err
}

func (s *Store) AggregateCustomerSalesByOutlet(ctx context.Context) (map[string]*domain.SalesStats, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT outlet_id, SUM(revenue)::TEXT, COUNT(*)
		FROM customer_sales GROUP BY outlet_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*domain.SalesStats)
	for rows.Next() {
		var outletID, revenueS string
		var count int64
		if err := rows.Scan(&outletID, &revenueS, &count); err != nil {
			return nil, err
		}
		revenue, err := decimal.NewFromString(revenueS)
		if err != nil {
			return nil, err
		}
		out[outletID] = &domain.SalesStats{
			OutletID:             outletID,
			CustomerSalesRevenue: revenue,
			CustomerSalesCount:   count,
		}
	}
	return out, rows.Err()
}

func isUniqueViolation(err error) bool {
	type pgError interface {
		SQLState() string
	}
	pgErr, ok := err.(pgError)
	return ok && pgErr.SQLState() == "23505"
}
