package backend

import (
	"context"

	"financeflow/internal/amqp"
	"financeflow/internal/api"
	"financeflow/internal/services"
	"financeflow/internal/storage"
)

// Store is the fallback-store surface the factory wires together. Both
// storage.SQLiteStore and storage.MemoryStore satisfy it.
type Store interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	EnqueuePending(ctx context.Context, kind, localID string, payload []byte) error
	PendingEntities(ctx context.Context, limit int) ([]storage.PendingEntity, error)
	MarkReconciled(ctx context.Context, localID string) error
	MarkReconcileError(ctx context.Context, localID, message string) error
	PendingCount(ctx context.Context) (int64, error)
	Close() error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the assembled client stack and a cleanup function.
type Result struct {
	Client     *api.Client
	Tracker    *services.Tracker
	Reconciler *services.Reconciler
	Store      Store
	Queue      *amqp.Client // nil when AMQP is disabled
	Cleanup    CleanupFunc
}

// Factory assembles the client stack from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
