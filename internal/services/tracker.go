// Package services holds the stateful core of the client: the tracker that
// owns the in-memory snapshot of projects and transactions, and the
// reconciler that replays locally created entities against the backend.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"financeflow/internal/core"
	"financeflow/internal/log"
	"financeflow/internal/storage"
)

// Backend is the remote API surface the tracker depends on.
type Backend interface {
	FetchProjects(ctx context.Context) ([]core.Project, error)
	FetchTransactions(ctx context.Context) ([]core.Transaction, error)
	FetchUsers(ctx context.Context) ([]core.User, error)
	CreateProject(ctx context.Context, p core.Project) (core.Project, error)
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateProject(ctx context.Context, p core.Project) (core.Project, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	DeleteProject(ctx context.Context, id string) error
	DeleteTransaction(ctx context.Context, id string) error
}

// PendingStore records local placeholders for the reconcile pass.
type PendingStore interface {
	EnqueuePending(ctx context.Context, kind, localID string, payload []byte) error
}

// Queue wakes the reconcile worker. Optional; the durable queue in the
// store is the source of truth.
type Queue interface {
	PublishReconcile(ctx context.Context, localID, kind string) error
}

// Snapshot is one consistent view of the tracked data. Generation increases
// with every installed refresh.
type Snapshot struct {
	Projects     []core.Project
	Transactions []core.Transaction
	Users        []core.User
	Summary      *core.Summary
	Generation   uint64
	RefreshedAt  time.Time
}

// Tracker owns the client-side state. All reads are served from the latest
// snapshot; writes go to the backend first and the snapshot is updated on
// success.
type Tracker struct {
	backend Backend
	pending PendingStore
	queue   Queue
	logger  *log.Logger

	mu         sync.RWMutex
	snapshot   Snapshot
	generation uint64
}

// NewTracker creates a tracker. pending and queue may be nil when the
// local create fallback is disabled.
func NewTracker(backend Backend, pending PendingStore, queue Queue, logger *log.Logger) *Tracker {
	if logger == nil {
		logger = log.Component(log.ComponentTracker)
	}
	return &Tracker{
		backend:  backend,
		pending:  pending,
		queue:    queue,
		logger:   logger,
		snapshot: Snapshot{Summary: core.Aggregate(nil)},
	}
}

// Refresh fetches projects, transactions and users concurrently and installs
// the result as the new snapshot. A refresh that finishes after a newer one
// has already been installed is discarded.
func (t *Tracker) Refresh(ctx context.Context) error {
	t.mu.Lock()
	t.generation++
	gen := t.generation
	t.mu.Unlock()

	var (
		projects     []core.Project
		transactions []core.Transaction
		users        []core.User
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projects, err = t.backend.FetchProjects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		transactions, err = t.backend.FetchTransactions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = t.backend.FetchUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen <= t.snapshot.Generation {
		t.logger.InfoContext(ctx, "discarding stale refresh result",
			log.FieldGeneration, gen,
			log.FieldOperation, log.OpRefresh)
		return nil
	}
	t.snapshot = Snapshot{
		Projects:     projects,
		Transactions: transactions,
		Users:        users,
		Summary:      core.Aggregate(transactions),
		Generation:   gen,
		RefreshedAt:  time.Now().UTC(),
	}
	t.logger.InfoContext(ctx, "snapshot refreshed",
		log.FieldGeneration, gen,
		log.FieldOperation, log.OpRefresh,
		"projects", len(projects),
		"transactions", len(transactions))
	return nil
}

// Snapshot returns the current snapshot. The contained slices must not be
// mutated by callers.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot
}

// Summary returns the aggregate view of the current snapshot.
func (t *Tracker) Summary() *core.Summary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot.Summary
}

// MonthGrid builds the calendar grid for the given month from the current
// snapshot.
func (t *Tracker) MonthGrid(year int, month time.Month, today core.Date) []core.CalendarCell {
	return core.BuildMonthGrid(year, month, t.Summary(), today)
}

// AddTransaction creates a transaction through the backend and folds the
// result into the snapshot. A local placeholder result is additionally
// queued for reconciliation.
func (t *Tracker) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	created, err := t.backend.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}

	if core.IsLocalID(created.ID) {
		t.enqueueLocal(ctx, storage.KindTransaction, created.ID, created)
	}

	t.mu.Lock()
	t.snapshot.Transactions = append(t.snapshot.Transactions, created)
	t.snapshot.Summary = core.Aggregate(t.snapshot.Transactions)
	t.mu.Unlock()
	return created, nil
}

// AddProject creates a project through the backend and folds the result into
// the snapshot, queueing local placeholders like AddTransaction.
func (t *Tracker) AddProject(ctx context.Context, p core.Project) (core.Project, error) {
	created, err := t.backend.CreateProject(ctx, p)
	if err != nil {
		return core.Project{}, err
	}

	if core.IsLocalID(created.ID) {
		t.enqueueLocal(ctx, storage.KindProject, created.ID, created)
	}

	t.mu.Lock()
	t.snapshot.Projects = append(t.snapshot.Projects, created)
	t.mu.Unlock()
	return created, nil
}

func (t *Tracker) enqueueLocal(ctx context.Context, kind, localID string, entity any) {
	if t.pending == nil {
		t.logger.WarnContext(ctx, "local placeholder created without a pending store",
			log.FieldLocalID, localID)
		return
	}
	payload, err := json.Marshal(entity)
	if err != nil {
		t.logger.ErrorContext(ctx, "encode pending entity",
			log.FieldLocalID, localID,
			log.FieldError, err)
		return
	}
	if err := t.pending.EnqueuePending(ctx, kind, localID, payload); err != nil {
		t.logger.ErrorContext(ctx, "enqueue pending entity",
			log.FieldLocalID, localID,
			log.FieldError, err)
		return
	}
	if t.queue != nil {
		if err := t.queue.PublishReconcile(ctx, localID, kind); err != nil {
			t.logger.WarnContext(ctx, "publish reconcile wake-up",
				log.FieldLocalID, localID,
				log.FieldError, err)
		}
	}
}

// ChangeTransaction updates a transaction through the backend and replaces
// it in the snapshot.
func (t *Tracker) ChangeTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	updated, err := t.backend.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}

	t.mu.Lock()
	// Copy before mutating: slices handed out in earlier Snapshot values
	// alias the current backing array.
	next := make([]core.Transaction, len(t.snapshot.Transactions))
	copy(next, t.snapshot.Transactions)
	for i := range next {
		if next[i].ID == updated.ID {
			next[i] = updated
			break
		}
	}
	t.snapshot.Transactions = next
	t.snapshot.Summary = core.Aggregate(next)
	t.mu.Unlock()
	return updated, nil
}

// RemoveTransaction deletes a transaction through the backend and drops it
// from the snapshot.
func (t *Tracker) RemoveTransaction(ctx context.Context, id string) error {
	if err := t.backend.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	t.mu.Lock()
	kept := make([]core.Transaction, 0, len(t.snapshot.Transactions))
	for _, tx := range t.snapshot.Transactions {
		if tx.ID != id {
			kept = append(kept, tx)
		}
	}
	t.snapshot.Transactions = kept
	t.snapshot.Summary = core.Aggregate(kept)
	t.mu.Unlock()
	return nil
}

// ChangeProject updates a project through the backend and replaces it in
// the snapshot.
func (t *Tracker) ChangeProject(ctx context.Context, p core.Project) (core.Project, error) {
	updated, err := t.backend.UpdateProject(ctx, p)
	if err != nil {
		return core.Project{}, err
	}

	t.mu.Lock()
	next := make([]core.Project, len(t.snapshot.Projects))
	copy(next, t.snapshot.Projects)
	for i := range next {
		if next[i].ID == updated.ID {
			next[i] = updated
			break
		}
	}
	t.snapshot.Projects = next
	t.mu.Unlock()
	return updated, nil
}

// RemoveProject deletes a project through the backend and drops it from the
// snapshot. Its transactions stay and become unassigned on the next refresh.
func (t *Tracker) RemoveProject(ctx context.Context, id string) error {
	if err := t.backend.DeleteProject(ctx, id); err != nil {
		return err
	}

	t.mu.Lock()
	kept := make([]core.Project, 0, len(t.snapshot.Projects))
	for _, p := range t.snapshot.Projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	t.snapshot.Projects = kept
	t.mu.Unlock()
	return nil
}
