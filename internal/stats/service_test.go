package stats

import (
	"context"
	"io"
	"testing"

	"github.com/zentikhq/zentik-sync/internal/cache"
	"github.com/zentikhq/zentik-sync/internal/entity"
	"github.com/zentikhq/zentik-sync/pkg/logger"
)

func writeEntity(t *testing.T, store cache.Store, e entity.Entity) {
	t.Helper()
	key, ok := e.Key()
	if !ok {
		t.Fatalf("untagged entity %v", e)
	}
	if err := store.Write(context.Background(), key, e); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestBucketStatsFromCache(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	writeEntity(t, store, entity.Entity{"__typename": "Bucket", "id": "b-1", "name": "Work"})
	writeEntity(t, store, entity.Entity{
		"__typename": "Notification",
		"id":         "n-1",
		"createdAt":  "2024-01-02T00:00:00Z",
		"message":    map[string]any{"bucket": map[string]any{"id": "b-1"}},
	})
	writeEntity(t, store, entity.Entity{
		"__typename": "Notification",
		"id":         "n-2",
		"createdAt":  "2024-01-01T00:00:00Z",
		"readAt":     "2024-01-01T01:00:00Z",
		"message":    map[string]any{"bucket": map[string]any{"id": "b-2"}},
	})
	_ = store.WriteListResult(ctx, cache.DomainNotifications, []entity.Key{
		"Notification:n-1", "Notification:n-2", "Notification:n-gone",
	})

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(store, logg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}

	rows, err := svc.BucketStats(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %v", rows)
	}

	// b-1 has the unread notification so it sorts first; b-2 was never
	// written as a bucket entity and stays dangling
	if rows[0].BucketID != "b-1" || rows[0].Name != "Work" || rows[0].UnreadCount != 1 {
		t.Fatalf("unexpected first row %+v", rows[0])
	}
	if rows[1].BucketID != "b-2" || !rows[1].IsDangling {
		t.Fatalf("unexpected second row %+v", rows[1])
	}
}

func TestBucketStatsEmptyFeed(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, _ := NewService(cache.NewMemoryStore(), logg)

	rows, err := svc.BucketStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %v", rows)
	}
}
