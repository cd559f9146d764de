// Package config loads runtime configuration from environment
// variables, following the teacher's getStr/getInt/getDuration helper
// pattern (internal/config/config.go).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration for the exchange.
type Config struct {
	Port     int
	LogLevel string

	DatabaseURL string
	RedisAddr   string

	BaseDonutPrice        decimal.Decimal
	InitialOutletBalance  decimal.Decimal
	SupplierOutletID      string
	DefaultMarginPercent  decimal.Decimal
	SupplierTickInterval  time.Duration
	PurchaserTickInterval time.Duration
	CustomerTickInterval  time.Duration

	SupplierQuantityMin int64
	SupplierQuantityMax int64
	CustomerQuantityMin int64
	CustomerQuantityMax int64

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies
// defaults (§6), and validates values.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	baseDonutPrice, err := getDecimal("BASE_DONUT_PRICE", decimal.NewFromFloat(2.0))
	if err != nil {
		return nil, fmt.Errorf("invalid BASE_DONUT_PRICE: %w", err)
	}

	initialOutletBalance, err := getDecimal("INITIAL_OUTLET_BALANCE", decimal.NewFromInt(10_000))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_OUTLET_BALANCE: %w", err)
	}

	defaultMarginPercent, err := getDecimal("DEFAULT_MARGIN_PERCENT", decimal.NewFromFloat(25.0))
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_MARGIN_PERCENT: %w", err)
	}

	supplierTick, err := getDuration("SUPPLIER_TICK_MS", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SUPPLIER_TICK_MS: %w", err)
	}
	purchaserTick, err := getDuration("PURCHASER_TICK_MS", 4*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid PURCHASER_TICK_MS: %w", err)
	}
	customerTick, err := getDuration("CUSTOMER_TICK_MS", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid CUSTOMER_TICK_MS: %w", err)
	}

	supplierQtyMin, err := getInt64("SUPPLIER_QUANTITY_MIN", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid SUPPLIER_QUANTITY_MIN: %w", err)
	}
	supplierQtyMax, err := getInt64("SUPPLIER_QUANTITY_MAX", 60)
	if err != nil {
		return nil, fmt.Errorf("invalid SUPPLIER_QUANTITY_MAX: %w", err)
	}
	customerQtyMin, err := getInt64("CUSTOMER_QUANTITY_MIN", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid CUSTOMER_QUANTITY_MIN: %w", err)
	}
	customerQtyMax, err := getInt64("CUSTOMER_QUANTITY_MAX", 3)
	if err != nil {
		return nil, fmt.Errorf("invalid CUSTOMER_QUANTITY_MAX: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}
	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}
	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:     port,
		LogLevel: logLevel,

		DatabaseURL: getStr("DATABASE_URL", ""),
		RedisAddr:   getStr("REDIS_ADDR", ""),

		BaseDonutPrice:        baseDonutPrice,
		InitialOutletBalance:  initialOutletBalance,
		SupplierOutletID:      getStr("SUPPLIER_OUTLET_ID", "supplier-factory"),
		DefaultMarginPercent:  defaultMarginPercent,
		SupplierTickInterval:  supplierTick,
		PurchaserTickInterval: purchaserTick,
		CustomerTickInterval:  customerTick,

		SupplierQuantityMin: supplierQtyMin,
		SupplierQuantityMax: supplierQtyMax,
		CustomerQuantityMin: customerQtyMin,
		CustomerQuantityMax: customerQtyMax,

		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getDecimal(key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return decimal.NewFromString(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
