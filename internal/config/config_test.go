package config

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "DATABASE_URL", "REDIS_ADDR",
		"BASE_DONUT_PRICE", "INITIAL_OUTLET_BALANCE", "SUPPLIER_OUTLET_ID",
		"DEFAULT_MARGIN_PERCENT", "SUPPLIER_TICK_MS", "PURCHASER_TICK_MS",
		"CUSTOMER_TICK_MS", "SUPPLIER_QUANTITY_MIN", "SUPPLIER_QUANTITY_MAX",
		"CUSTOMER_QUANTITY_MIN", "CUSTOMER_QUANTITY_MAX",
		"READ_TIMEOUT", "WRITE_TIMEOUT", "IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if !cfg.BaseDonutPrice.Equal(decimal.NewFromFloat(2.0)) {
		t.Errorf("BaseDonutPrice = %s, want 2.0", cfg.BaseDonutPrice)
	}
	if !cfg.InitialOutletBalance.Equal(decimal.NewFromInt(10_000)) {
		t.Errorf("InitialOutletBalance = %s, want 10000", cfg.InitialOutletBalance)
	}
	if cfg.SupplierOutletID != "supplier-factory" {
		t.Errorf("SupplierOutletID = %q, want supplier-factory", cfg.SupplierOutletID)
	}
	if !cfg.DefaultMarginPercent.Equal(decimal.NewFromFloat(25.0)) {
		t.Errorf("DefaultMarginPercent = %s, want 25.0", cfg.DefaultMarginPercent)
	}
	if cfg.SupplierTickInterval != 5*time.Second {
		t.Errorf("SupplierTickInterval = %v, want 5s", cfg.SupplierTickInterval)
	}
	if cfg.CustomerTickInterval != 2*time.Second {
		t.Errorf("CustomerTickInterval = %v, want 2s", cfg.CustomerTickInterval)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_DONUT_PRICE", "3.50")
	t.Setenv("SUPPLIER_OUTLET_ID", "central-factory")
	t.Setenv("SUPPLIER_TICK_MS", "10s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if !cfg.BaseDonutPrice.Equal(decimal.NewFromFloat(3.50)) {
		t.Errorf("BaseDonutPrice = %s, want 3.50", cfg.BaseDonutPrice)
	}
	if cfg.SupplierOutletID != "central-factory" {
		t.Errorf("SupplierOutletID = %q, want central-factory", cfg.SupplierOutletID)
	}
	if cfg.SupplierTickInterval != 10*time.Second {
		t.Errorf("SupplierTickInterval = %v, want 10s", cfg.SupplierTickInterval)
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "verbose")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid LOG_LEVEL")
	}
}

func TestLoad_InvalidBaseDonutPrice(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_DONUT_PRICE", "not-a-number")

	if _, err := Load(); err == nil {
		t.Error("expected error for invalid BASE_DONUT_PRICE")
	}
}
