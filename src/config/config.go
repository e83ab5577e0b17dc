package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// TaxRate holds the swing-trade policy for one asset category.
// A zero ExemptProfitThreshold means the category has no sell-volume exemption.
type TaxRate struct {
	SwingTradeRate        decimal.Decimal
	ExemptProfitThreshold decimal.Decimal
}

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string

	ReportCacheTTL     time.Duration
	ReportCacheCleanup time.Duration
	RateLimitBurst     int

	// Tax policy table, keyed by category name.
	TaxRates map[string]TaxRate
	// Minimum DARF amount; monthly totals below it are carried as residual.
	DarfMinValue decimal.Decimal
}

var Cfg *AppConfig

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found. Relying on OS environment variables and defaults.")
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./irpfolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		ReportCacheTTL:     getEnvAsDuration("REPORT_CACHE_TTL", 15*time.Minute),
		ReportCacheCleanup: getEnvAsDuration("REPORT_CACHE_CLEANUP", 30*time.Minute),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),

		TaxRates: map[string]TaxRate{
			"stocks": {
				SwingTradeRate:        getEnvAsDecimal("TAX_STOCKS_SWING_TRADE", "0.15"),
				ExemptProfitThreshold: getEnvAsDecimal("TAX_STOCKS_EXEMPT_PROFIT", "20000"),
			},
			"bdrs": {
				SwingTradeRate: getEnvAsDecimal("TAX_BDRS_SWING_TRADE", "0.15"),
			},
			"fiis": {
				SwingTradeRate: getEnvAsDecimal("TAX_FIIS_SWING_TRADE", "0.20"),
			},
			"subscription_stocks": {
				SwingTradeRate: getEnvAsDecimal("TAX_SUBSCRIPTION_STOCKS_SWING_TRADE", "0.15"),
			},
			"subscription_fiis": {
				SwingTradeRate: getEnvAsDecimal("TAX_SUBSCRIPTION_FIIS_SWING_TRADE", "0.20"),
			},
		},
		DarfMinValue: getEnvAsDecimal("DARF_MIN_VALUE", "10"),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, DarfMin=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.DarfMinValue.String())
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsDecimal(key, fallback string) decimal.Decimal {
	valueStr := getEnv(key, fallback)
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		log.Printf("Invalid decimal value for %s ('%s'), using default: %s", key, valueStr, fallback)
		return decimal.RequireFromString(fallback)
	}
	return value
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, strconv.Itoa(fallback))
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, fallback.String())
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
