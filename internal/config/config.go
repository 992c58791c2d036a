package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Per-deployment policy values. The revisions of the original front-end
// diverged on these; here they are explicit configuration instead of
// parallel source copies.
const (
	AuthSchemeToken = "token"
	AuthSchemeNone  = "none"

	ReadFallbackEmpty  = "empty"
	ReadFallbackCached = "cached"

	CreateFallbackPropagate = "propagate"
	CreateFallbackLocal     = "local"

	CacheBackendSQLite = "sqlite"
	CacheBackendMemory = "memory"
)

type Config struct {
	// Backend API
	BaseURL      string
	AuthScheme   string
	APIToken     string
	APITokenFile string
	HTTPTimeout  time.Duration

	// Fallback policies
	ReadFallback   string
	CreateFallback string

	// Local fallback cache
	CacheBackend    string
	SQLiteCachePath string

	// AMQP reconcile queue (optional; empty URL disables it)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Reconcile worker
	ReconcileBatchSize int
	ReconcileInterval  time.Duration

	// Backup export
	BackupSpreadsheetID string
	BackupSheetName     string
}

func Load() *Config {
	cfg := &Config{
		BaseURL:      getEnv("API_BASE_URL", "http://127.0.0.1:8000/api"),
		AuthScheme:   getEnv("AUTH_SCHEME", AuthSchemeToken),
		APIToken:     getEnv("API_TOKEN", ""),
		APITokenFile: getEnv("API_TOKEN_FILE", ""),
		HTTPTimeout:  getEnvDuration("HTTP_TIMEOUT", 15*time.Second),

		ReadFallback:   getEnv("READ_FALLBACK", ReadFallbackCached),
		CreateFallback: getEnv("CREATE_FALLBACK", CreateFallbackPropagate),

		CacheBackend:    getEnv("CACHE_BACKEND", CacheBackendMemory),
		SQLiteCachePath: getEnv("SQLITE_CACHE_PATH", "./data/financeflow.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financeflow"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "reconcile_entities"),

		ReconcileBatchSize: getEnvInt("RECONCILE_BATCH_SIZE", 10),
		ReconcileInterval:  getEnvDuration("RECONCILE_INTERVAL", 30*time.Second),

		BackupSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		BackupSheetName:     getEnv("GOOGLE_SHEET_NAME", "Backup"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.BaseURL == "" {
		errors = append(errors, "API base URL cannot be empty")
	} else if parsed, err := url.Parse(c.BaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.BaseURL, err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsed.Scheme))
	}

	switch c.AuthScheme {
	case AuthSchemeToken, AuthSchemeNone:
	default:
		errors = append(errors, fmt.Sprintf("invalid auth scheme '%s': must be one of [%s %s]", c.AuthScheme, AuthSchemeToken, AuthSchemeNone))
	}

	switch c.ReadFallback {
	case ReadFallbackEmpty, ReadFallbackCached:
	default:
		errors = append(errors, fmt.Sprintf("invalid read fallback '%s': must be one of [%s %s]", c.ReadFallback, ReadFallbackEmpty, ReadFallbackCached))
	}

	switch c.CreateFallback {
	case CreateFallbackPropagate, CreateFallbackLocal:
	default:
		errors = append(errors, fmt.Sprintf("invalid create fallback '%s': must be one of [%s %s]", c.CreateFallback, CreateFallbackPropagate, CreateFallbackLocal))
	}

	switch c.CacheBackend {
	case CacheBackendSQLite:
		if c.SQLiteCachePath == "" {
			errors = append(errors, "SQLite cache path cannot be empty when using the sqlite cache backend")
		} else {
			dir := filepath.Dir(c.SQLiteCachePath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite cache directory '%s': %v", dir, err))
					}
				}
			}
		}
	case CacheBackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("invalid cache backend '%s': must be one of [%s %s]", c.CacheBackend, CacheBackendSQLite, CacheBackendMemory))
	}

	if c.APITokenFile != "" {
		if _, err := os.Stat(c.APITokenFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("API token file does not exist: %s", c.APITokenFile))
		}
	}

	if c.HTTPTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	} else if c.HTTPTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must be at most 5 minutes", c.HTTPTimeout))
	}

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

	if c.ReconcileBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid reconcile batch size %d: must be at least 1", c.ReconcileBatchSize))
	} else if c.ReconcileBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid reconcile batch size %d: must be at most 1000", c.ReconcileBatchSize))
	}

	if c.ReconcileInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at least 1 second", c.ReconcileInterval))
	} else if c.ReconcileInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid reconcile interval %v: must be at most 24 hours", c.ReconcileInterval))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Token resolves the API token from the environment value or the token file.
// An empty result is not an error: calls simply proceed unauthenticated.
func (c *Config) Token() string {
	if c.APIToken != "" {
		return c.APIToken
	}
	if c.APITokenFile != "" {
		data, err := os.ReadFile(c.APITokenFile)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
	return ""
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
