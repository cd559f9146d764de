package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/engine"
	"github.com/efreitasn/donutexchange/internal/ledger"
	"github.com/efreitasn/donutexchange/internal/service"
	"github.com/efreitasn/donutexchange/internal/store/memory"
	"github.com/efreitasn/donutexchange/internal/wsbridge"
)

type noopPublisher struct{}

func (noopPublisher) Publish(domain.Event) {}

type testEnv struct {
	router   http.Handler
	ledger   *ledger.Ledger
	products *domain.ProductRegistry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st := memory.New()
	products := domain.NewProductRegistry()
	products.Register(&domain.Product{ProductID: "glazed", Name: "Glazed", BasePrice: decimal.NewFromFloat(2.0)})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New(st, products, noopPublisher{}, decimal.NewFromInt(10_000), domain.SupplierOutletID, logger)
	books := engine.NewBookManager()
	matcher := engine.NewMatcher(books, l, noopPublisher{})
	orderSvc := service.NewOrderService(matcher, l, products, st, logger)
	hub := wsbridge.NewHub(logger)

	router := NewRouter(orderSvc, l, products, hub, logger)

	return &testEnv{router: router, ledger: l, products: products}
}

func (env *testEnv) registerOutlet(t *testing.T, id string, balance decimal.Decimal, isOpen bool) *domain.Outlet {
	t.Helper()
	o := &domain.Outlet{OutletID: id, Name: id, Balance: balance, IsOpen: isOpen}
	if err := env.ledger.RegisterOutlet(context.Background(), o); err != nil {
		t.Fatalf("RegisterOutlet(%q) error = %v", id, err)
	}
	return o
}

func (env *testEnv) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, http.MethodGet, "/healthz", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestSubmitOrder_RestsAndIsRetrievable(t *testing.T) {
	env := newTestEnv(t)
	env.registerOutlet(t, domain.SupplierOutletID, decimal.Zero, true)
	env.registerOutlet(t, "shop-a", decimal.NewFromInt(1_000), true)

	rr := env.doJSON(t, http.MethodPost, "/orders", submitOrderRequest{
		Side: "BUY", ProductID: "glazed", OutletID: "shop-a", Quantity: 10, PricePerUnit: "1.50",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(domain.OrderStatusActive) {
		t.Errorf("status = %s, want ACTIVE", resp.Status)
	}

	rr = env.doJSON(t, http.MethodGet, "/orders/"+resp.OrderID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("GetOrder status = %d, body = %s", rr.Code, rr.Body.String())
	}
}

func TestSubmitOrder_UnknownOutlet(t *testing.T) {
	env := newTestEnv(t)
	env.registerOutlet(t, domain.SupplierOutletID, decimal.Zero, true)

	rr := env.doJSON(t, http.MethodPost, "/orders", submitOrderRequest{
		Side: "BUY", ProductID: "glazed", OutletID: "ghost", Quantity: 10, PricePerUnit: "1.50",
	})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404, body = %s", rr.Code, rr.Body.String())
	}
}

func TestSubmitOrder_InvalidContentType(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestListOutletsAndLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	env.registerOutlet(t, domain.SupplierOutletID, decimal.Zero, true)
	env.registerOutlet(t, "shop-a", decimal.NewFromInt(1_000), true)

	rr := env.doJSON(t, http.MethodGet, "/outlets", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var outlets []outletResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &outlets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(outlets) != 1 {
		t.Errorf("len(outlets) = %d, want 1 (sentinel excluded)", len(outlets))
	}

	rr = env.doJSON(t, http.MethodGet, "/leaderboard", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("leaderboard status = %d", rr.Code)
	}
	var board []outletResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &board); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(board) != 1 {
		t.Errorf("len(board) = %d, want 1 (sentinel excluded)", len(board))
	}
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)
	rr := env.doJSON(t, http.MethodGet, "/products", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var products []productResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &products); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("len(products) = %d, want 1", len(products))
	}
}
