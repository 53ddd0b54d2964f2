package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	SQLiteDBPath string
	DataDir      string
	WatchDataDir bool
	PostgresURL  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Auth
	JWTSecret       string
	TokenTTL        time.Duration
	GoogleClientID  string
	// SeedDemoAccount registers the demo account at startup.
	SeedDemoAccount bool

	// Payments
	PaymentMode            string
	PaymentFailureRate     float64
	PaymentDelay           time.Duration
	MercadoPagoAccessToken string
	MercadoPagoPublicKey   string
	MercadoPagoBaseURL     string
	MercadoPagoWebhookURL  string
	PaymentSuccessURL      string
	PaymentFailureURL      string
	PaymentPendingURL      string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Workers
	RenewalInterval time.Duration

	// General
	Environment string
	Timezone    string
	LogLevel    string
}

var (
	validBackends     = []string{"memory", "file", "sqlite", "postgres"}
	validPaymentModes = []string{"simulated", "mercadopago"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}
)

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		DataBackend:  getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/mamaboss.db"),
		DataDir:      getEnv("DATA_DIR", "./data/documents"),
		WatchDataDir: getEnvBool("WATCH_DATA_DIR", false),
		PostgresURL:  getEnv("POSTGRES_URL", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "mamaboss"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "mamaboss_jobs"),

		JWTSecret:       getEnv("JWT_SECRET", ""),
		TokenTTL:        getEnvDuration("TOKEN_TTL", 7*24*time.Hour),
		GoogleClientID:  getEnv("GOOGLE_CLIENT_ID", ""),
		SeedDemoAccount: getEnvBool("SEED_DEMO_ACCOUNT", false),

		PaymentMode:            getEnv("PAYMENT_MODE", "simulated"),
		PaymentFailureRate:     getEnvFloat("PAYMENT_FAILURE_RATE", 0.1),
		PaymentDelay:           getEnvDuration("PAYMENT_DELAY", 2*time.Second),
		MercadoPagoAccessToken: getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
		MercadoPagoPublicKey:   getEnv("MERCADOPAGO_PUBLIC_KEY", ""),
		MercadoPagoBaseURL:     getEnv("MERCADOPAGO_BASE_URL", "https://api.mercadopago.com"),
		MercadoPagoWebhookURL:  getEnv("MERCADOPAGO_WEBHOOK_URL", ""),
		PaymentSuccessURL:      getEnv("PAYMENT_SUCCESS_URL", "http://localhost:5173/payment/success"),
		PaymentFailureURL:      getEnv("PAYMENT_FAILURE_URL", "http://localhost:5173/payment/failure"),
		PaymentPendingURL:      getEnv("PAYMENT_PENDING_URL", "http://localhost:5173/payment/pending"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Finances"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		RenewalInterval: getEnvDuration("RENEWAL_INTERVAL", time.Hour),

		Environment: getEnv("ENVIRONMENT", "development"),
		Timezone:    getEnv("TIMEZONE", "America/Sao_Paulo"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	return cfg
}

// IsProduction reports whether the service runs against live payment credentials.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Location resolves the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate data backend
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "file":
		if c.DataDir == "" {
			errors = append(errors, "data directory cannot be empty when using file backend")
		}
	case "postgres":
		if c.PostgresURL == "" {
			errors = append(errors, "POSTGRES_URL is required when using postgres backend")
		}
	}
	if c.WatchDataDir && c.DataBackend != "file" {
		errors = append(errors, "WATCH_DATA_DIR is only supported with the file backend")
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

	// Validate auth
	if len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET must be at least 32 characters")
	}
	if c.TokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid token TTL %v: must be at least 1 minute", c.TokenTTL))
	}

	// Validate payments
	if !slices.Contains(validPaymentModes, c.PaymentMode) {
		errors = append(errors, fmt.Sprintf("invalid payment mode '%s': must be one of %v", c.PaymentMode, validPaymentModes))
	}
	if c.PaymentFailureRate < 0 || c.PaymentFailureRate > 1 {
		errors = append(errors, fmt.Sprintf("invalid payment failure rate %v: must be between 0 and 1", c.PaymentFailureRate))
	}
	if c.PaymentMode == "mercadopago" && c.MercadoPagoAccessToken == "" {
		errors = append(errors, "MERCADOPAGO_ACCESS_TOKEN is required when PAYMENT_MODE is mercadopago")
	}
	if _, err := url.ParseRequestURI(c.MercadoPagoBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid Mercado Pago base URL '%s': %v", c.MercadoPagoBaseURL, err))
	}

	// Validate Google Sheets export if enabled
	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	// Validate worker configuration
	if c.RenewalInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid renewal interval %v: must be at least 1 second", c.RenewalInterval))
	} else if c.RenewalInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid renewal interval %v: must be at most 24 hours", c.RenewalInterval))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
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
