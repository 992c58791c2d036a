package services

import (
	"context"
	"encoding/json"
	"fmt"

	"financeflow/internal/api"
	"financeflow/internal/core"
	"financeflow/internal/log"
	"financeflow/internal/storage"
)

// ReconcileStore is the queue side of the fallback store, plus cache
// invalidation for lists that still hold a placeholder.
type ReconcileStore interface {
	PendingEntities(ctx context.Context, limit int) ([]storage.PendingEntity, error)
	MarkReconciled(ctx context.Context, localID string) error
	MarkReconcileError(ctx context.Context, localID, message string) error
	PendingCount(ctx context.Context) (int64, error)
	Delete(ctx context.Context, key string) error
}

// Reconciler replays locally created entities against the backend once it
// is reachable again, swapping local placeholder IDs for backend-assigned
// ones.
type Reconciler struct {
	backend Backend
	store   ReconcileStore
	logger  *log.Logger
}

func NewReconciler(backend Backend, store ReconcileStore, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.Component(log.ComponentReconcile)
	}
	return &Reconciler{
		backend: backend,
		store:   store,
		logger:  logger,
	}
}

// ProcessBatch replays up to limit pending entities, oldest first. It
// returns the number successfully reconciled; individual failures are
// recorded on the entity and do not stop the batch.
func (r *Reconciler) ProcessBatch(ctx context.Context, limit int) (int, error) {
	pending, err := r.store.PendingEntities(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending entities: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	reconciled := 0
	for _, entity := range pending {
		if err := ctx.Err(); err != nil {
			return reconciled, err
		}
		if err := r.reconcile(ctx, entity); err != nil {
			r.logger.WarnContext(ctx, "reconcile attempt failed",
				log.FieldLocalID, entity.LocalID,
				log.FieldOperation, log.OpReconcile,
				log.FieldError, err)
			if merr := r.store.MarkReconcileError(ctx, entity.LocalID, err.Error()); merr != nil {
				r.logger.ErrorContext(ctx, "record reconcile error",
					log.FieldLocalID, entity.LocalID,
					log.FieldError, merr)
			}
			continue
		}
		if err := r.store.MarkReconciled(ctx, entity.LocalID); err != nil {
			r.logger.ErrorContext(ctx, "mark reconciled",
				log.FieldLocalID, entity.LocalID,
				log.FieldError, err)
			continue
		}
		r.invalidateCache(ctx, entity.Kind)
		reconciled++
	}

	r.logger.InfoContext(ctx, "reconcile batch completed",
		log.FieldOperation, log.OpReconcile,
		"pending", len(pending),
		"reconciled", reconciled)
	return reconciled, nil
}

// invalidateCache drops the cached list still holding the placeholder so the
// next fetch writes through the backend entity instead.
func (r *Reconciler) invalidateCache(ctx context.Context, kind string) {
	var key string
	switch kind {
	case storage.KindTransaction:
		key = api.CacheKeyTransactions
	case storage.KindProject:
		key = api.CacheKeyProjects
	default:
		return
	}
	if err := r.store.Delete(ctx, key); err != nil {
		r.logger.WarnContext(ctx, "cache invalidation failed",
			log.FieldCacheKey, key,
			log.FieldError, err)
	}
}

// reconcile replays one pending entity. The create succeeds only when the
// backend assigned a real ID; a fresh local placeholder means the backend is
// still unreachable.
func (r *Reconciler) reconcile(ctx context.Context, entity storage.PendingEntity) error {
	switch entity.Kind {
	case storage.KindTransaction:
		var tx core.Transaction
		if err := json.Unmarshal(entity.Payload, &tx); err != nil {
			return fmt.Errorf("decode pending transaction: %w", err)
		}
		tx.ID = ""
		created, err := r.backend.CreateTransaction(ctx, tx)
		if err != nil {
			return err
		}
		if core.IsLocalID(created.ID) {
			return fmt.Errorf("backend still unreachable for transaction %s", entity.LocalID)
		}
		return nil

	case storage.KindProject:
		var p core.Project
		if err := json.Unmarshal(entity.Payload, &p); err != nil {
			return fmt.Errorf("decode pending project: %w", err)
		}
		p.ID = ""
		created, err := r.backend.CreateProject(ctx, p)
		if err != nil {
			return err
		}
		if core.IsLocalID(created.ID) {
			return fmt.Errorf("backend still unreachable for project %s", entity.LocalID)
		}
		return nil

	default:
		return fmt.Errorf("unknown pending entity kind: %s", entity.Kind)
	}
}
