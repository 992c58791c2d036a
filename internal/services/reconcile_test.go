package services

import (
	"context"
	"encoding/json"
	"testing"

	"financeflow/internal/api"
	"financeflow/internal/core"
	"financeflow/internal/storage"
)

func enqueueTransaction(t *testing.T, store *storage.MemoryStore, localID string, tx core.Transaction) {
	t.Helper()
	payload, err := json.Marshal(tx)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.EnqueuePending(context.Background(), storage.KindTransaction, localID, payload); err != nil {
		t.Fatal(err)
	}
}

func TestReconciler_ProcessBatch(t *testing.T) {
	t.Run("reachable backend drains the queue", func(t *testing.T) {
		backend := &fakeBackend{}
		store := storage.NewMemoryStore()
		enqueueTransaction(t, store, "abc123def", core.Transaction{
			ID: "abc123def", Type: core.Income, Amount: 75, Date: core.NewDate(2024, 3, 1),
		})
		if err := store.Write(context.Background(), api.CacheKeyTransactions, []byte(`[]`)); err != nil {
			t.Fatal(err)
		}

		reconciler := NewReconciler(backend, store, nil)
		reconciled, err := reconciler.ProcessBatch(context.Background(), 10)
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if reconciled != 1 {
			t.Errorf("reconciled = %d, want 1", reconciled)
		}

		count, _ := store.PendingCount(context.Background())
		if count != 0 {
			t.Errorf("pending count = %d, want 0", count)
		}
		if backend.createCalls != 1 {
			t.Errorf("backend creates = %d, want 1", backend.createCalls)
		}
		if _, ok, _ := store.Read(context.Background(), api.CacheKeyTransactions); ok {
			t.Error("expected cached transaction list invalidated after reconcile")
		}
	})

	t.Run("unreachable backend keeps the entity queued", func(t *testing.T) {
		backend := &fakeBackend{createLocal: true}
		store := storage.NewMemoryStore()
		enqueueTransaction(t, store, "abc123def", core.Transaction{
			ID: "abc123def", Type: core.Income, Amount: 75, Date: core.NewDate(2024, 3, 1),
		})

		reconciler := NewReconciler(backend, store, nil)
		reconciled, err := reconciler.ProcessBatch(context.Background(), 10)
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if reconciled != 0 {
			t.Errorf("reconciled = %d, want 0", reconciled)
		}

		pending, _ := store.PendingEntities(context.Background(), 10)
		if len(pending) != 1 {
			t.Fatalf("pending = %d, want 1", len(pending))
		}
		if pending[0].Attempts != 1 {
			t.Errorf("attempts = %d, want 1", pending[0].Attempts)
		}
		if pending[0].LastError == "" {
			t.Error("expected a recorded reconcile error")
		}
	})

	t.Run("malformed payload records an error", func(t *testing.T) {
		backend := &fakeBackend{}
		store := storage.NewMemoryStore()
		if err := store.EnqueuePending(context.Background(), storage.KindTransaction, "zzz999zzz", []byte(`{broken`)); err != nil {
			t.Fatal(err)
		}

		reconciler := NewReconciler(backend, store, nil)
		reconciled, err := reconciler.ProcessBatch(context.Background(), 10)
		if err != nil {
			t.Fatalf("ProcessBatch() error = %v", err)
		}
		if reconciled != 0 {
			t.Errorf("reconciled = %d, want 0", reconciled)
		}
		if backend.createCalls != 0 {
			t.Errorf("backend creates = %d, want 0", backend.createCalls)
		}
	})

	t.Run("empty queue is a no-op", func(t *testing.T) {
		reconciler := NewReconciler(&fakeBackend{}, storage.NewMemoryStore(), nil)
		reconciled, err := reconciler.ProcessBatch(context.Background(), 10)
		if err != nil || reconciled != 0 {
			t.Errorf("ProcessBatch() = %d, %v, want 0, nil", reconciled, err)
		}
	})
}

func TestReconciler_ProjectKind(t *testing.T) {
	backend := &fakeBackend{}
	store := storage.NewMemoryStore()
	payload, _ := json.Marshal(core.Project{ID: "abc123def", Name: "Trip"})
	if err := store.EnqueuePending(context.Background(), storage.KindProject, "abc123def", payload); err != nil {
		t.Fatal(err)
	}

	reconciler := NewReconciler(backend, store, nil)
	reconciled, err := reconciler.ProcessBatch(context.Background(), 10)
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	if reconciled != 1 {
		t.Errorf("reconciled = %d, want 1", reconciled)
	}
	if len(backend.projects) != 1 || backend.projects[0].Name != "Trip" {
		t.Errorf("backend projects = %+v", backend.projects)
	}
}
