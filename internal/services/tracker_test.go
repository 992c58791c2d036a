package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"financeflow/internal/core"
)

// fakeBackend is an in-memory Backend with optional per-call hooks.
type fakeBackend struct {
	mu           sync.Mutex
	projects     []core.Project
	transactions []core.Transaction
	users        []core.User
	failFetch    error
	createLocal  bool
	createCalls  int

	// blockFirstFetch, when set, stalls only the first FetchTransactions
	// call until closed. Lets tests order overlapping refreshes
	// deterministically.
	blockFirstFetch chan struct{}
	fetchCalls      int
}

func (f *fakeBackend) FetchProjects(ctx context.Context) ([]core.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch != nil {
		return nil, f.failFetch
	}
	return append([]core.Project(nil), f.projects...), nil
}

func (f *fakeBackend) FetchTransactions(ctx context.Context) ([]core.Transaction, error) {
	f.mu.Lock()
	f.fetchCalls++
	first := f.fetchCalls == 1
	block := f.blockFirstFetch
	f.mu.Unlock()
	if first && block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch != nil {
		return nil, f.failFetch
	}
	return append([]core.Transaction(nil), f.transactions...), nil
}

func (f *fakeBackend) FetchUsers(ctx context.Context) ([]core.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFetch != nil {
		return nil, f.failFetch
	}
	return append([]core.User(nil), f.users...), nil
}

func (f *fakeBackend) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createLocal {
		p.ID = core.NewLocalID()
	} else {
		p.ID = "11111111-2222-3333-4444-555555555555"
	}
	f.projects = append(f.projects, p)
	return p, nil
}

func (f *fakeBackend) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createLocal {
		t.ID = core.NewLocalID()
	} else {
		t.ID = "99999999-8888-7777-6666-555555555555"
	}
	f.transactions = append(f.transactions, t)
	return t, nil
}

func (f *fakeBackend) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	return p, nil
}

func (f *fakeBackend) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return t, nil
}

func (f *fakeBackend) DeleteProject(ctx context.Context, id string) error { return nil }

func (f *fakeBackend) DeleteTransaction(ctx context.Context, id string) error { return nil }

func TestTracker_Refresh(t *testing.T) {
	backend := &fakeBackend{
		projects: []core.Project{{ID: "p1", Name: "House"}},
		transactions: []core.Transaction{
			{ID: "t1", ProjectID: "p1", Type: core.Income, Amount: 1000, Date: core.NewDate(2024, 3, 1)},
			{ID: "t2", ProjectID: "p1", Type: core.Expense, Amount: 400, Date: core.NewDate(2024, 3, 1)},
		},
	}
	tracker := NewTracker(backend, nil, nil, nil)

	if err := tracker.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	snap := tracker.Snapshot()
	if snap.Generation != 1 {
		t.Errorf("Generation = %d, want 1", snap.Generation)
	}
	if len(snap.Projects) != 1 || len(snap.Transactions) != 2 {
		t.Fatalf("snapshot = %d projects, %d transactions", len(snap.Projects), len(snap.Transactions))
	}
	if got := snap.Summary.ProjectBalance("p1"); got != 600 {
		t.Errorf("ProjectBalance(p1) = %v, want 600", got)
	}

	if err := tracker.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	if gen := tracker.Snapshot().Generation; gen != 2 {
		t.Errorf("Generation after second refresh = %d, want 2", gen)
	}
}

func TestTracker_Refresh_Error(t *testing.T) {
	backend := &fakeBackend{failFetch: errors.New("boom")}
	tracker := NewTracker(backend, nil, nil, nil)

	if err := tracker.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if gen := tracker.Snapshot().Generation; gen != 0 {
		t.Errorf("failed refresh must not install a snapshot, Generation = %d", gen)
	}
}

func TestTracker_StaleRefreshDiscarded(t *testing.T) {
	backend := &fakeBackend{
		transactions: []core.Transaction{
			{ID: "t1", Type: core.Income, Amount: 100, Date: core.NewDate(2024, 3, 1)},
		},
		blockFirstFetch: make(chan struct{}),
	}
	tracker := NewTracker(backend, nil, nil, nil)

	// Start a refresh that stalls inside its FetchTransactions call.
	firstDone := make(chan error, 1)
	go func() {
		firstDone <- tracker.Refresh(context.Background())
	}()

	// Give the first refresh time to claim its generation, then run a full
	// second refresh with changed data.
	time.Sleep(50 * time.Millisecond)
	backend.mu.Lock()
	backend.transactions = []core.Transaction{
		{ID: "t1", Type: core.Income, Amount: 100, Date: core.NewDate(2024, 3, 1)},
		{ID: "t2", Type: core.Income, Amount: 900, Date: core.NewDate(2024, 3, 2)},
	}
	backend.mu.Unlock()

	if err := tracker.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	afterSecond := tracker.Snapshot()

	// Release the stalled first refresh; its older result must be dropped.
	close(backend.blockFirstFetch)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	final := tracker.Snapshot()
	if final.Generation != afterSecond.Generation {
		t.Errorf("Generation = %d, want %d (stale result installed)", final.Generation, afterSecond.Generation)
	}
	if len(final.Transactions) != 2 {
		t.Errorf("got %d transactions, want 2 from the newer refresh", len(final.Transactions))
	}
}

type fakePending struct {
	mu      sync.Mutex
	entries map[string][]byte
	kinds   map[string]string
}

func newFakePending() *fakePending {
	return &fakePending{entries: map[string][]byte{}, kinds: map[string]string{}}
}

func (f *fakePending) EnqueuePending(_ context.Context, kind, localID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[localID] = payload
	f.kinds[localID] = kind
	return nil
}

type fakeQueue struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeQueue) PublishReconcile(_ context.Context, localID, kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, localID)
	return nil
}

func TestTracker_AddTransaction(t *testing.T) {
	t.Run("backend-assigned ID is not queued", func(t *testing.T) {
		backend := &fakeBackend{}
		pending := newFakePending()
		queue := &fakeQueue{}
		tracker := NewTracker(backend, pending, queue, nil)

		created, err := tracker.AddTransaction(context.Background(), core.Transaction{
			Type: core.Income, Amount: 50, Date: core.NewDate(2024, 3, 1),
		})
		if err != nil {
			t.Fatalf("AddTransaction() error = %v", err)
		}
		if core.IsLocalID(created.ID) {
			t.Errorf("got local ID %q for a reachable backend", created.ID)
		}
		if len(pending.entries) != 0 || len(queue.published) != 0 {
			t.Error("nothing should be queued for backend-assigned IDs")
		}
		if got := tracker.Summary().Day(core.NewDate(2024, 3, 1)).Income; got != 50 {
			t.Errorf("day income = %v, want 50", got)
		}
	})

	t.Run("local placeholder is stored and published", func(t *testing.T) {
		backend := &fakeBackend{createLocal: true}
		pending := newFakePending()
		queue := &fakeQueue{}
		tracker := NewTracker(backend, pending, queue, nil)

		created, err := tracker.AddTransaction(context.Background(), core.Transaction{
			Type: core.Expense, Amount: 25, Date: core.NewDate(2024, 3, 2),
		})
		if err != nil {
			t.Fatalf("AddTransaction() error = %v", err)
		}
		if !core.IsLocalID(created.ID) {
			t.Fatalf("expected local placeholder ID, got %q", created.ID)
		}
		if _, ok := pending.entries[created.ID]; !ok {
			t.Error("placeholder not recorded in pending store")
		}
		if len(queue.published) != 1 || queue.published[0] != created.ID {
			t.Errorf("published = %v, want [%s]", queue.published, created.ID)
		}
	})
}

func TestTracker_RemoveTransaction(t *testing.T) {
	backend := &fakeBackend{
		transactions: []core.Transaction{
			{ID: "t1", Type: core.Income, Amount: 100, Date: core.NewDate(2024, 3, 1)},
			{ID: "t2", Type: core.Expense, Amount: 40, Date: core.NewDate(2024, 3, 1)},
		},
	}
	tracker := NewTracker(backend, nil, nil, nil)
	if err := tracker.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := tracker.RemoveTransaction(context.Background(), "t2"); err != nil {
		t.Fatalf("RemoveTransaction() error = %v", err)
	}

	snap := tracker.Snapshot()
	if len(snap.Transactions) != 1 || snap.Transactions[0].ID != "t1" {
		t.Errorf("transactions after remove = %+v", snap.Transactions)
	}
	if got := snap.Summary.Day(core.NewDate(2024, 3, 1)).Expense; got != 0 {
		t.Errorf("day expense after remove = %v, want 0", got)
	}
}

func TestTracker_SnapshotSurvivesWrites(t *testing.T) {
	backend := &fakeBackend{
		projects: []core.Project{
			{ID: "p1", Name: "House"},
			{ID: "p2", Name: "Trip"},
		},
		transactions: []core.Transaction{
			{ID: "t1", Type: core.Income, Amount: 100, Date: core.NewDate(2024, 3, 1)},
			{ID: "t2", Type: core.Expense, Amount: 40, Date: core.NewDate(2024, 3, 1)},
		},
	}
	tracker := NewTracker(backend, nil, nil, nil)
	if err := tracker.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	held := tracker.Snapshot()

	if err := tracker.RemoveTransaction(context.Background(), "t1"); err != nil {
		t.Fatalf("RemoveTransaction() error = %v", err)
	}
	if err := tracker.RemoveProject(context.Background(), "p1"); err != nil {
		t.Fatalf("RemoveProject() error = %v", err)
	}
	if _, err := tracker.ChangeTransaction(context.Background(), core.Transaction{
		ID: "t2", Type: core.Expense, Amount: 75, Date: core.NewDate(2024, 3, 1),
	}); err != nil {
		t.Fatalf("ChangeTransaction() error = %v", err)
	}

	if len(held.Transactions) != 2 || held.Transactions[0].ID != "t1" || held.Transactions[1].ID != "t2" {
		t.Errorf("held snapshot transactions = %+v, want t1 and t2 untouched", held.Transactions)
	}
	if held.Transactions[1].Amount != 40 {
		t.Errorf("held snapshot amount = %v, want 40 untouched", held.Transactions[1].Amount)
	}
	if len(held.Projects) != 2 || held.Projects[0].ID != "p1" {
		t.Errorf("held snapshot projects = %+v, want p1 and p2 untouched", held.Projects)
	}

	current := tracker.Snapshot()
	if len(current.Transactions) != 1 || current.Transactions[0].Amount != 75 {
		t.Errorf("current snapshot transactions = %+v", current.Transactions)
	}
}

func TestTracker_MonthGrid(t *testing.T) {
	backend := &fakeBackend{
		transactions: []core.Transaction{
			{ID: "t1", Type: core.Income, Amount: 10, Date: core.NewDate(2024, 3, 15)},
		},
	}
	tracker := NewTracker(backend, nil, nil, nil)
	if err := tracker.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	grid := tracker.MonthGrid(2024, time.March, core.NewDate(2024, 3, 15))
	if len(grid)%7 != 0 {
		t.Fatalf("grid length %d not a multiple of 7", len(grid))
	}
	var found bool
	for _, cell := range grid {
		if cell.Date.Key() == "2024-03-15" {
			found = true
			if !cell.Today {
				t.Error("expected Today flag on 2024-03-15")
			}
			if cell.Aggregate.Income != 10 {
				t.Errorf("cell income = %v, want 10", cell.Aggregate.Income)
			}
		}
	}
	if !found {
		t.Error("2024-03-15 missing from March grid")
	}
}
