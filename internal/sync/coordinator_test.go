package sync

import (
	"context"
	"errors"
	"io"
	stdsync "sync"
	"testing"

	"github.com/zentikhq/zentik-sync/internal/cache"
	"github.com/zentikhq/zentik-sync/internal/entity"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
	"github.com/zentikhq/zentik-sync/pkg/logger"
)

type fakeSource struct {
	mu    stdsync.Mutex
	calls int
	items []entity.Entity
	err   error
}

func (f *fakeSource) PullAll(ctx context.Context) ([]entity.Entity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

func (f *fakeSource) pullCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestCoordinator(t *testing.T, source RemoteSource, store cache.Store, enabled bool) *Coordinator {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	writer, err := cache.NewWriter(logg, nil)
	if err != nil {
		t.Fatalf("writer: %v", err)
	}
	coord, err := NewCoordinator(source, store, writer, logg, nil, enabled)
	if err != nil {
		t.Fatalf("coordinator: %v", err)
	}
	return coord
}

func feedItem(id string) entity.Entity {
	return entity.Entity{
		"__typename": "Notification",
		"id":         id,
		"createdAt":  "2024-01-01T00:00:00Z",
		"message": map[string]any{
			"bucket": map[string]any{"__typename": "Bucket", "id": "b-1", "name": "Work"},
		},
	}
}

func TestRunWritesFeedAndRefreshesQueries(t *testing.T) {
	source := &fakeSource{items: []entity.Entity{feedItem("n-1"), feedItem("n-2")}}
	store := cache.NewMemoryStore()
	coord := newTestCoordinator(t, source, store, true)

	synced, err := coord.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if synced != 2 {
		t.Fatalf("expected 2 synced notifications, got %d", synced)
	}

	if _, ok, _ := store.Get(context.Background(), entity.NewKey(entity.TypeNotification, "n-1")); !ok {
		t.Fatal("expected notification written")
	}
	if _, ok, _ := store.Get(context.Background(), entity.NewKey(entity.TypeBucket, "b-1")); !ok {
		t.Fatal("expected nested bucket written")
	}

	keys, ok, _ := store.ListResult(context.Background(), cache.DomainNotifications)
	if !ok || len(keys) != 2 {
		t.Fatalf("expected refreshed feed result, ok=%v keys=%v", ok, keys)
	}
}

func TestRunIsAtMostOncePerStart(t *testing.T) {
	source := &fakeSource{items: []entity.Entity{feedItem("n-1")}}
	coord := newTestCoordinator(t, source, cache.NewMemoryStore(), true)

	first, _ := coord.Run(context.Background())
	second, _ := coord.Run(context.Background())

	if source.pullCalls() != 1 {
		t.Fatalf("expected one pull, got %d", source.pullCalls())
	}
	// the no-op repeat still reports the first attempt's count
	if first != 1 || second != 1 {
		t.Fatalf("expected both runs to report 1, got %d and %d", first, second)
	}
	if coord.SyncedCount() != 1 {
		t.Fatalf("expected recorded count 1, got %d", coord.SyncedCount())
	}
}

func TestRunDoesNotRetryAfterFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("backend down")}
	coord := newTestCoordinator(t, source, cache.NewMemoryStore(), true)

	if _, err := coord.Run(context.Background()); !pkgerrors.Is(err, pkgerrors.CodeSync) {
		t.Fatalf("expected sync error, got %v", err)
	}
	if _, err := coord.Run(context.Background()); err != nil {
		t.Fatalf("expected second run to be a no-op, got %v", err)
	}
	if source.pullCalls() != 1 {
		t.Fatalf("expected one pull after failure, got %d", source.pullCalls())
	}
	if coord.LastError() == nil {
		t.Fatal("expected failure recorded")
	}
}

func TestRunDisabled(t *testing.T) {
	source := &fakeSource{items: []entity.Entity{feedItem("n-1")}}
	coord := newTestCoordinator(t, source, cache.NewMemoryStore(), false)

	if _, err := coord.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.pullCalls() != 0 {
		t.Fatal("expected no pull when sync is disabled")
	}
	if coord.Ran() {
		t.Fatal("expected disabled coordinator to stay idle")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{items: []entity.Entity{feedItem("n-1")}}
	store := cache.NewMemoryStore()
	coord := newTestCoordinator(t, source, store, true)

	if _, err := coord.Run(ctx); !pkgerrors.Is(err, pkgerrors.CodeSync) {
		t.Fatalf("expected sync error, got %v", err)
	}
	if _, ok, _ := store.ListResult(context.Background(), cache.DomainNotifications); ok {
		t.Fatal("expected no feed result after canceled sync")
	}
}
