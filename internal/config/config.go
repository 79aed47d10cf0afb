package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	// Settings file with categories and patterns
	SettingsFile string

	// Results store
	StoreBackend string
	SQLiteDBPath string

	// Balance provider (Sbanken)
	SbankenClientID     string
	SbankenClientSecret string
	SbankenAuthURL      string
	SbankenAccountsURL  string

	// Exchange rate provider (CoinGecko)
	CoinGeckoURL string

	ProviderTimeout time.Duration
	RateCacheTTL    time.Duration

	// AMQP, optional
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export, optional
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	// TSV export directory, optional
	ExportDir string

	// Expense chart directory, optional
	ChartDir string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		SettingsFile: getEnv("REGNSKAP_SETTINGS_FILE", "./settings.yaml"),

		StoreBackend: getEnv("STORE_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/regnskap.db"),

		SbankenClientID:     getEnv("SBANKEN_CLIENT_ID", ""),
		SbankenClientSecret: getEnv("SBANKEN_CLIENT_SECRET", ""),
		SbankenAuthURL:      getEnv("SBANKEN_AUTH_URL", "https://auth.sbanken.no"),
		SbankenAccountsURL:  getEnv("SBANKEN_ACCOUNTS_URL", "https://publicapi.sbanken.no/apibeta/api/v2/Accounts"),

		CoinGeckoURL: getEnv("COINGECKO_URL", "https://api.coingecko.com/api/v3"),

		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 10*time.Second),
		RateCacheTTL:    getEnvDuration("RATE_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "regnskap"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "results_published"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Regnskap"),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),

		ExportDir: getEnv("EXPORT_DIR", ""),
		ChartDir:  getEnv("CHART_DIR", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// HasSbankenCredentials reports whether the balance provider can be used.
func (c *Config) HasSbankenCredentials() bool {
	return c.SbankenClientID != "" && c.SbankenClientSecret != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.SettingsFile == "" {
		errors = append(errors, "settings file path cannot be empty")
	}

	// Validate store backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.StoreBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.StoreBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.StoreBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	// Sbanken credentials come in pairs
	if (c.SbankenClientID == "") != (c.SbankenClientSecret == "") {
		errors = append(errors, "SBANKEN_CLIENT_ID and SBANKEN_CLIENT_SECRET must be set together")
	}

	for _, u := range []struct{ name, raw string }{
		{"Sbanken auth URL", c.SbankenAuthURL},
		{"Sbanken accounts URL", c.SbankenAccountsURL},
		{"CoinGecko URL", c.CoinGeckoURL},
	} {
		if err := validateHTTPURL(u.raw); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': %v", u.name, u.raw, err))
		}
	}

	if c.ProviderTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid provider timeout %v: must be at least 100ms", c.ProviderTimeout))
	} else if c.ProviderTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid provider timeout %v: must be at most 5 minutes", c.ProviderTimeout))
	}
	if c.RateCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate cache TTL %v: must not be negative", c.RateCacheTTL))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate Google Sheets configuration if export is enabled
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile == "" && c.GoogleServiceAccountJSON == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided for sheets export")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.ExportDir != "" {
		if info, err := os.Stat(c.ExportDir); err == nil && !info.IsDir() {
			errors = append(errors, fmt.Sprintf("export path '%s' is not a directory", c.ExportDir))
		}
	}

	if c.ChartDir != "" {
		if info, err := os.Stat(c.ChartDir); err == nil && !info.IsDir() {
			errors = append(errors, fmt.Sprintf("chart path '%s' is not a directory", c.ChartDir))
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
