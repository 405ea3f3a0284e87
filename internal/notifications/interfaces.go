package notifications

import (
	"context"

	"github.com/zentikhq/zentik-sync/pkg/db/models"
	"github.com/zentikhq/zentik-sync/pkg/pagination"
	"gorm.io/gorm"
)

// Repository persists notifications in the durable on-device store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, params pagination.Params) ([]models.Notification, string, error)
	GetAll(ctx context.Context) ([]models.Notification, error)
	UpsertBatch(ctx context.Context, items []models.Notification) error
	MarkRead(ctx context.Context, id string) error
	MarkUnread(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, bucketID string) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteByBucketID(ctx context.Context, bucketID string) (int64, error)
	CountUnread(ctx context.Context, bucketID string) (int64, error)
}
