package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/anita-labs/anita-core/internal/core/domain"
	"github.com/anita-labs/anita-core/internal/core/ports/driven/mocks"
)

// stubQAIndex records rebuild calls for assertions.
type stubQAIndex struct {
	mu      sync.Mutex
	synced  [][]domain.QAEntry
	syncErr error
}

func (s *stubQAIndex) AddQAPair(ctx context.Context, entry domain.QAEntry) error    { return nil }
func (s *stubQAIndex) UpdateQAPair(ctx context.Context, entry domain.QAEntry) error { return nil }
func (s *stubQAIndex) DeleteQAPair(ctx context.Context, qaID string) error          { return nil }
func (s *stubQAIndex) AddQuestionVariation(ctx context.Context, v domain.Variation) error {
	return nil
}
func (s *stubQAIndex) SyncIndexFromDB(ctx context.Context, entries []domain.QAEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.synced = append(s.synced, entries)
	return s.syncErr
}
func (s *stubQAIndex) FindBestMatch(ctx context.Context, query, language string) (*domain.MatchResult, error) {
	return nil, nil
}

func (s *stubQAIndex) syncCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.synced)
}

type workerFixture struct {
	worker  *Worker
	queue   *mocks.MockTaskQueue
	qaIndex *stubQAIndex
	store   *mocks.MockQAStore
	lock    *mocks.MockDistributedLock
}

func createTestWorker(t *testing.T) *workerFixture {
	t.Helper()

	queue := mocks.NewMockTaskQueue()
	qaIndex := &stubQAIndex{}
	store := mocks.NewMockQAStore()
	lock := mocks.NewMockDistributedLock()

	w := New(Config{
		TaskQueue:      queue,
		QAIndex:        qaIndex,
		Store:          store,
		Lock:           lock,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	return &workerFixture{worker: w, queue: queue, qaIndex: qaIndex, store: store, lock: lock}
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWorker_ProcessesRebuildTask(t *testing.T) {
	f := createTestWorker(t)
	ctx := context.Background()

	f.store.SetEntries([]domain.QAEntry{
		{ID: "qa-1", Question: "Kas yra kintamasis?", Language: "lt"},
		{ID: "qa-2", Question: "What is a loop?", Language: "en"},
	})

	task := domain.NewRebuildQAIndexTask()
	if err := f.queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.worker.Stop()

	waitFor(t, func() bool { return len(f.queue.Acked()) == 1 })

	if f.queue.Acked()[0] != task.ID {
		t.Errorf("expected task %s acked, got %v", task.ID, f.queue.Acked())
	}
	if f.qaIndex.syncCalls() != 1 {
		t.Errorf("expected one rebuild, got %d", f.qaIndex.syncCalls())
	}
	f.qaIndex.mu.Lock()
	entries := f.qaIndex.synced[0]
	f.qaIndex.mu.Unlock()
	if len(entries) != 2 {
		t.Errorf("expected rebuild over stored entries, got %d", len(entries))
	}
}

func TestWorker_RebuildHoldsLock(t *testing.T) {
	f := createTestWorker(t)
	ctx := context.Background()

	if err := f.queue.Enqueue(ctx, domain.NewRebuildQAIndexTask()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.worker.Stop()

	waitFor(t, func() bool { return len(f.queue.Acked()) == 1 })

	names := f.lock.AcquiredNames()
	if len(names) != 1 || names[0] != rebuildLockName {
		t.Errorf("expected rebuild lock acquired, got %v", names)
	}
}

func TestWorker_RebuildBusyNacks(t *testing.T) {
	f := createTestWorker(t)
	ctx := context.Background()

	// Another instance holds the rebuild lock.
	f.lock.Hold(rebuildLockName)

	task := domain.NewRebuildQAIndexTask()
	if err := f.queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.worker.Stop()

	waitFor(t, func() bool { return len(f.queue.Nacked()) == 1 })

	if f.qaIndex.syncCalls() != 0 {
		t.Error("expected no rebuild while lock is held")
	}
}

func TestWorker_SyncFailureNacks(t *testing.T) {
	f := createTestWorker(t)
	ctx := context.Background()

	f.qaIndex.syncErr = errors.New("embedding backend down")

	if err := f.queue.Enqueue(ctx, domain.NewRebuildQAIndexTask()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.worker.Stop()

	waitFor(t, func() bool { return len(f.queue.Nacked()) == 1 })

	if len(f.queue.Acked()) != 0 {
		t.Error("expected no ack on failure")
	}
}

func TestWorker_UnknownTaskTypeNacks(t *testing.T) {
	f := createTestWorker(t)
	ctx := context.Background()

	task := domain.NewTask("mystery", nil)
	if err := f.queue.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.worker.Stop()

	waitFor(t, func() bool { return len(f.queue.Nacked()) == 1 })
}

func TestWorker_WaitBeforeStartReturns(t *testing.T) {
	f := createTestWorker(t)

	done := make(chan struct{})
	go func() {
		f.worker.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Wait to return for a worker that was never started")
	}
}

func TestWorker_StopIsIdempotent(t *testing.T) {
	f := createTestWorker(t)

	if err := f.worker.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.worker.Stop()
	f.worker.Stop() // second stop must not panic or block
}

func TestWorker_Health(t *testing.T) {
	f := createTestWorker(t)
	ctx := context.Background()

	health := f.worker.Health(ctx)
	if health.Running {
		t.Error("expected not running before start")
	}
	if !health.QueueHealth {
		t.Error("expected healthy queue")
	}

	if err := f.worker.Start(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer f.worker.Stop()

	health = f.worker.Health(ctx)
	if !health.Running {
		t.Error("expected running after start")
	}
}
