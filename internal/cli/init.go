// Package cli provides the initialization steps of cmd/regnskap: logging,
// environment, configuration, settings and providers.
package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"regnskap/internal/aggregate"
	"regnskap/internal/cache"
	"regnskap/internal/config"
	"regnskap/internal/log"
	"regnskap/internal/providers"
	"regnskap/internal/providers/coingecko"
	"regnskap/internal/providers/sbanken"
)

const rateCacheKey = "coingecko:nok-per-mbtc"

// SetupLogger initializes structured logging at the given level on w.
// Returns the configured logger and sets it as the default logger.
func SetupLogger(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile(paths ...string) {
	_ = godotenv.Load(paths...)
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSettings reads the settings file named by cfg.
func LoadSettings(cfg *config.Config, logger *log.Logger) (*config.Settings, error) {
	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded settings",
		log.FieldPath, cfg.SettingsFile,
		"categories", len(settings.Categories),
		"commitment_categories", len(settings.CommitmentCategories))
	return settings, nil
}

// NewProviders builds the balance and exchange-rate providers. The balance
// provider is nil without Sbanken credentials, which makes the aggregator
// fall back to a zero balance.
func NewProviders(cfg *config.Config, logger *log.Logger) (aggregate.BalanceProvider, aggregate.ExchangeRateProvider) {
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}

	var balance aggregate.BalanceProvider
	if cfg.HasSbankenCredentials() {
		balance = sbanken.New(sbanken.Config{
			ClientID:     cfg.SbankenClientID,
			ClientSecret: cfg.SbankenClientSecret,
			AuthURL:      cfg.SbankenAuthURL,
			AccountsURL:  cfg.SbankenAccountsURL,
			HTTPClient:   httpClient,
		}, logger)
	} else {
		logger.Info("Sbanken credentials not set, balance will default to zero")
	}

	rates := cache.NewLRUCache[decimal.Decimal](1, cfg.RateCacheTTL)
	rate := providers.NewCachedRate(coingecko.New(cfg.CoinGeckoURL, httpClient, logger), rates, rateCacheKey, logger)

	return balance, rate
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	fmt.Fprintf(os.Stderr, "regnskap: %s: %v\n", msg, err)
	os.Exit(1)
}
