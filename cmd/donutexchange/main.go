package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/agents"
	"github.com/efreitasn/donutexchange/internal/api"
	"github.com/efreitasn/donutexchange/internal/broadcast"
	"github.com/efreitasn/donutexchange/internal/config"
	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/engine"
	"github.com/efreitasn/donutexchange/internal/ledger"
	"github.com/efreitasn/donutexchange/internal/service"
	"github.com/efreitasn/donutexchange/internal/store"
	"github.com/efreitasn/donutexchange/internal/store/memory"
	"github.com/efreitasn/donutexchange/internal/store/postgres"
	"github.com/efreitasn/donutexchange/internal/store/rediscache"
	"github.com/efreitasn/donutexchange/internal/wsbridge"
)

// catalogue is the default donut product roster. Static bootstrap data
// is out of scope for the exchange core; this is the reference
// implementation's own choice, not part of the engine's contract.
var catalogue = []struct {
	id, name, description string
}{
	{"glazed", "Glazed", "The classic yeast-raised glazed donut"},
	{"chocolate-frosted", "Chocolate Frosted", "Chocolate icing over a yeast-raised ring"},
	{"sprinkle", "Rainbow Sprinkle", "Vanilla-frosted with rainbow sprinkles"},
	{"jelly-filled", "Jelly Filled", "Raised dough filled with raspberry jelly"},
	{"old-fashioned", "Old Fashioned", "Cake donut with a crackled glaze"},
}

// outletRoster is the default retail outlet roster. Like catalogue,
// this is bootstrap convenience, not engine behavior.
var outletRoster = []struct {
	id, name, location string
}{
	{"outlet-downtown", "Downtown", "Downtown"},
	{"outlet-uptown", "Uptown", "Uptown"},
	{"outlet-eastside", "Eastside", "Eastside"},
	{"outlet-mall", "Mall Kiosk", "Riverside Mall"},
}

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialise store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	products := domain.NewProductRegistry()
	for _, p := range catalogue {
		products.Register(&domain.Product{
			ProductID:   p.id,
			Name:        p.name,
			Description: p.description,
			BasePrice:   cfg.BaseDonutPrice,
		})
	}

	broadcaster := broadcast.New(logger)
	broadcaster.Register("log", broadcast.NewLogSink(logger))
	hub := wsbridge.NewHub(logger)
	go hub.Run()
	broadcaster.Register("websocket", hub)

	l := ledger.New(st, products, broadcaster, cfg.InitialOutletBalance, cfg.SupplierOutletID, logger)
	if err := l.Rehydrate(ctx); err != nil {
		logger.Error("failed to rehydrate ledger", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := bootstrapOutlets(ctx, l, cfg); err != nil {
		logger.Error("failed to bootstrap outlets", slog.String("error", err.Error()))
		os.Exit(1)
	}

	books := engine.NewBookManager()
	matcher := engine.NewMatcher(books, l, broadcaster)
	orderSvc := service.NewOrderService(matcher, l, products, st, logger)

	supplier := agents.NewSupplier(
		cfg.SupplierTickInterval, orderSvc, l, products, cfg.SupplierOutletID,
		cfg.SupplierQuantityMin, cfg.SupplierQuantityMax, logger,
	)
	purchaser := agents.NewPurchasingAgent(
		cfg.PurchaserTickInterval, orderSvc, l, books, products, cfg.SupplierOutletID, logger,
	)
	customers := agents.NewCustomerSimulator(
		cfg.CustomerTickInterval, l, products, cfg.SupplierOutletID,
		cfg.CustomerQuantityMin, cfg.CustomerQuantityMax, logger,
	)

	supplier.Start(ctx)
	purchaser.Start(ctx)
	customers.Start(ctx)

	router := api.NewRouter(orderSvc, l, products, hub, logger)
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	supplier.Stop()
	purchaser.Stop()
	customers.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// buildStore assembles the Store implementation named by cfg: an
// in-memory store by default, or a Postgres-backed store optionally
// wrapped with a Redis read-through cache when DATABASE_URL/REDIS_ADDR
// are set (§6). The returned closer releases any pooled connections.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}

	pgStore := postgres.New(pool)
	if err := pgStore.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	var st store.Store = pgStore
	closers := []func(){pool.Close}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		st = rediscache.New(pgStore, rdb, 5*time.Second)
		closers = append(closers, func() { rdb.Close() })
	}

	logger.Info("connected to durable store", slog.Bool("redis_cache", cfg.RedisAddr != ""))

	return st, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

// bootstrapOutlets registers the sentinel supplier and the default
// retail roster the first time the exchange boots against an empty
// store; a rehydrated run with existing outlets is left untouched.
func bootstrapOutlets(ctx context.Context, l *ledger.Ledger, cfg *config.Config) error {
	if len(l.AllOutlets()) > 0 {
		return nil
	}

	now := time.Now()
	if err := l.RegisterOutlet(ctx, &domain.Outlet{
		OutletID:  cfg.SupplierOutletID,
		Name:      "Supplier Factory",
		Location:  "Central Warehouse",
		Balance:   decimal.Zero,
		IsOpen:    true,
		CreatedAt: now,
	}); err != nil {
		return fmt.Errorf("register sentinel outlet: %w", err)
	}

	for _, o := range outletRoster {
		if err := l.RegisterOutlet(ctx, &domain.Outlet{
			OutletID:      o.id,
			Name:          o.name,
			Location:      o.location,
			Balance:       cfg.InitialOutletBalance,
			MarginPercent: cfg.DefaultMarginPercent,
			IsOpen:        true,
			CreatedAt:     now,
		}); err != nil {
			return fmt.Errorf("register outlet %q: %w", o.id, err)
		}
	}

	return nil
}
