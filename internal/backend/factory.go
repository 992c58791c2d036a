// Package backend assembles the client stack (API client, fallback store,
// reconcile queue, tracker) from configuration.
package backend

import (
	"context"
	"fmt"
	"net/http"

	"financeflow/internal/amqp"
	"financeflow/internal/api"
	"financeflow/internal/log"
	"financeflow/internal/services"
	"financeflow/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Component(log.ComponentBackend)
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	store, err := f.createStore(config)
	if err != nil {
		return nil, err
	}

	// AMQP is optional; a dead broker must not block startup.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without reconcile queue",
				log.FieldError, err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	client := api.NewClient(api.Options{
		BaseURL:        config.BaseURL,
		HTTPClient:     &http.Client{Timeout: config.HTTPTimeout},
		AuthScheme:     config.AuthScheme,
		Tokens:         config.Tokens,
		Cache:          store,
		ReadFallback:   config.ReadFallback,
		CreateFallback: config.CreateFallback,
		Logger:         f.logger.WithComponent(log.ComponentAPI),
	})

	var queue services.Queue
	if amqpClient != nil {
		queue = amqpClient
	}
	tracker := services.NewTracker(client, store, queue, f.logger.WithComponent(log.ComponentTracker))
	reconciler := services.NewReconciler(client, store, f.logger.WithComponent(log.ComponentReconcile))

	f.logger.Info("Initialized backend",
		"cache_backend", config.CacheBackend.String(),
		"read_fallback", string(config.ReadFallback),
		"create_fallback", string(config.CreateFallback),
		"amqp_enabled", amqpClient != nil)

	cleanup := func() error {
		if amqpClient != nil {
			amqpClient.Close()
		}
		return store.Close()
	}

	return &Result{
		Client:     client,
		Tracker:    tracker,
		Reconciler: reconciler,
		Store:      store,
		Queue:      amqpClient,
		Cleanup:    cleanup,
	}, nil
}

func (f *DefaultFactory) createStore(config Config) (Store, error) {
	switch config.CacheBackend {
	case SQLiteCache:
		store, err := storage.NewSQLiteStore(config.SQLiteCachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		f.logger.Info("Initialized SQLite fallback store", "db_path", config.SQLiteCachePath)
		return store, nil
	case MemoryCache:
		f.logger.Info("Initialized memory fallback store")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", config.CacheBackend)
	}
}
