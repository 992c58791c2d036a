package backend

import (
	"fmt"
	"time"

	"financeflow/internal/api"
	"financeflow/internal/config"
)

// CacheBackendType selects where the fallback store lives.
type CacheBackendType string

const (
	SQLiteCache CacheBackendType = "sqlite"
	MemoryCache CacheBackendType = "memory"
)

// String implements fmt.Stringer
func (t CacheBackendType) String() string {
	return string(t)
}

// IsValid returns true if the cache backend type is valid
func (t CacheBackendType) IsValid() bool {
	switch t {
	case SQLiteCache, MemoryCache:
		return true
	default:
		return false
	}
}

// Config holds everything the factory needs to assemble the client stack.
type Config struct {
	BaseURL        string
	AuthScheme     api.AuthScheme
	Tokens         api.TokenSource
	HTTPTimeout    time.Duration
	ReadFallback   api.ReadFallbackPolicy
	CreateFallback api.CreateFallbackPolicy

	CacheBackend    CacheBackendType
	SQLiteCachePath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	cacheType := CacheBackendType(appConfig.CacheBackend)
	if !cacheType.IsValid() {
		return Config{}, fmt.Errorf("invalid cache backend in config: %s", appConfig.CacheBackend)
	}

	return Config{
		BaseURL:        appConfig.BaseURL,
		AuthScheme:     api.AuthScheme(appConfig.AuthScheme),
		Tokens:         appConfig,
		HTTPTimeout:    appConfig.HTTPTimeout,
		ReadFallback:   api.ReadFallbackPolicy(appConfig.ReadFallback),
		CreateFallback: api.CreateFallbackPolicy(appConfig.CreateFallback),

		CacheBackend:    cacheType,
		SQLiteCachePath: appConfig.SQLiteCachePath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	if !c.CacheBackend.IsValid() {
		return fmt.Errorf("invalid cache backend: %s", c.CacheBackend)
	}
	if c.CacheBackend == SQLiteCache && c.SQLiteCachePath == "" {
		return fmt.Errorf("SQLite cache path is required for sqlite cache backend")
	}
	return nil
}
