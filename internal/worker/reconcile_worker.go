// Package worker drives the reconcile loop: a periodic poll of the pending
// queue plus an optional AMQP consumer for immediate wake-ups.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"financeflow/internal/amqp"
	"financeflow/internal/log"
	"financeflow/internal/services"
)

// Config holds reconcile worker settings.
type Config struct {
	// PollInterval is how often the pending queue is drained even without
	// AMQP wake-ups.
	PollInterval time.Duration

	// BatchSize is the max number of entities replayed per cycle.
	BatchSize int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
	}
}

// ReconcileWorker periodically replays locally created entities. The poll
// loop alone is sufficient; AMQP only shortens the latency between a local
// create and its replay.
type ReconcileWorker struct {
	reconciler *services.Reconciler
	queue      *amqp.Client
	config     Config
	logger     *log.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReconcileWorker creates a worker. queue may be nil when AMQP is
// disabled.
func NewReconcileWorker(reconciler *services.Reconciler, queue *amqp.Client, config Config, logger *log.Logger) *ReconcileWorker {
	if logger == nil {
		logger = log.Component(log.ComponentReconcile)
	}
	return &ReconcileWorker{
		reconciler: reconciler,
		queue:      queue,
		config:     config,
		logger:     logger,
	}
}

// Start begins the reconcile loop. Returns an error if already running.
func (w *ReconcileWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("reconcile worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	if w.queue != nil {
		go w.consumeLoop(ctx)
	}

	w.logger.InfoContext(ctx, "reconcile worker started",
		log.FieldOperation, log.OpStartup,
		"poll_interval", w.config.PollInterval,
		"batch_size", w.config.BatchSize,
		"amqp_enabled", w.queue != nil)

	return nil
}

// Stop gracefully stops the worker and waits for the poll loop to finish.
func (w *ReconcileWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.InfoContext(ctx, "reconcile worker stopped", log.FieldOperation, log.OpShutdown)
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "reconcile worker stop timed out", log.FieldOperation, log.OpShutdown)
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// IsRunning returns whether the worker is currently running
func (w *ReconcileWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ReconcileWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Drain anything left over from a previous run right away.
	w.processBatch(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

func (w *ReconcileWorker) processBatch(ctx context.Context) {
	if _, err := w.reconciler.ProcessBatch(ctx, w.config.BatchSize); err != nil {
		w.logger.ErrorContext(ctx, "reconcile batch failed",
			log.FieldOperation, log.OpReconcile,
			log.FieldError, err)
	}
}

// consumeLoop turns AMQP wake-ups into immediate batch runs. A handler
// error requeues the delivery, so transient backend failures retry.
func (w *ReconcileWorker) consumeLoop(ctx context.Context) {
	err := w.queue.ConsumeReconcile(ctx, func(msg *amqp.ReconcileMessage) error {
		w.logger.InfoContext(ctx, "reconcile wake-up received",
			log.FieldLocalID, msg.LocalID,
			"kind", msg.Kind)
		_, err := w.reconciler.ProcessBatch(ctx, w.config.BatchSize)
		return err
	})
	if err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "reconcile consumer stopped",
			log.FieldError, err)
	}
}
