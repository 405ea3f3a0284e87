package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zentikhq/zentik-sync/pkg/db/models"
	"github.com/zentikhq/zentik-sync/pkg/pagination"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  bucket_id TEXT NOT NULL,
  title TEXT NOT NULL,
  body TEXT,
  payload TEXT,
  read_at DATETIME,
  created_at DATETIME NOT NULL
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedNotification(t *testing.T, db *gorm.DB, id, bucketID string, createdAt time.Time, readAt *time.Time) {
	t.Helper()
	row := models.Notification{
		ID:        id,
		BucketID:  bucketID,
		Title:     "title " + id,
		CreatedAt: createdAt,
		ReadAt:    readAt,
	}
	require.NoError(t, db.Create(&row).Error)
}

func TestRepositoryListPagesNewestFirst(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedNotification(t, db, fmt.Sprintf("n-%d", i), "b-1", base.Add(time.Duration(i)*time.Hour), nil)
	}

	first, cursor, err := repo.List(ctx, pagination.Params{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, "n-4", first[0].ID)
	require.NotEmpty(t, cursor)

	second, next, err := repo.List(ctx, pagination.Params{Limit: 3, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, "n-1", second[0].ID)
	assert.Equal(t, "n-0", second[1].ID)
	assert.Empty(t, next)
}

func TestRepositoryUpsertBatchReplacesByID(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.UpsertBatch(ctx, []models.Notification{
		{ID: "n-1", BucketID: "b-1", Title: "old", CreatedAt: created},
	}))
	require.NoError(t, repo.UpsertBatch(ctx, []models.Notification{
		{ID: "n-1", BucketID: "b-1", Title: "new", CreatedAt: created},
		{ID: "n-2", BucketID: "b-1", Title: "other", CreatedAt: created},
	}))

	row, err := repo.GetByID(ctx, "n-1")
	require.NoError(t, err)
	assert.Equal(t, "new", row.Title)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRepositoryReadStateTransitions(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedNotification(t, db, "n-1", "b-1", created, nil)

	require.NoError(t, repo.MarkRead(ctx, "n-1"))
	row, err := repo.GetByID(ctx, "n-1")
	require.NoError(t, err)
	require.NotNil(t, row.ReadAt)

	// marking an already-read row again keeps the original timestamp
	original := *row.ReadAt
	require.NoError(t, repo.MarkRead(ctx, "n-1"))
	row, err = repo.GetByID(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, row.ReadAt.Equal(original))

	require.NoError(t, repo.MarkUnread(ctx, "n-1"))
	row, err = repo.GetByID(ctx, "n-1")
	require.NoError(t, err)
	assert.Nil(t, row.ReadAt)
}

func TestRepositoryMarkAllReadScopedToBucket(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedNotification(t, db, "n-1", "b-1", created, nil)
	seedNotification(t, db, "n-2", "b-1", created, nil)
	seedNotification(t, db, "n-3", "b-2", created, nil)

	count, err := repo.MarkAllRead(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	unread, err := repo.CountUnread(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func TestRepositoryDeleteByBucket(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedNotification(t, db, "n-1", "b-1", created, nil)
	seedNotification(t, db, "n-2", "b-1", created, nil)
	seedNotification(t, db, "n-3", "b-2", created, nil)

	count, err := repo.DeleteByBucketID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "n-3", all[0].ID)
}
