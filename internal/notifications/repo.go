package notifications

import (
	"context"
	"time"

	"github.com/zentikhq/zentik-sync/pkg/db/models"
	"github.com/zentikhq/zentik-sync/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a notifications repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var row models.Notification
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List pages notifications newest first with a (created_at, id) cursor.
func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Notification, string, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	var nextCursor string
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}
	return rows, nextCursor, nil
}

func (r *repository) GetAll(ctx context.Context) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpsertBatch inserts or replaces notifications by id; later imports of
// the same notification overwrite earlier rows.
func (r *repository) UpsertBatch(ctx context.Context, items []models.Notification) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&items).Error
}

func (r *repository) MarkRead(ctx context.Context, id string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND read_at IS NULL", id).
		Update("read_at", now)
	if res.Error != nil {
		return res.Error
	}
	return nil
}

func (r *repository) MarkUnread(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read_at", nil).Error
}

func (r *repository) MarkAllRead(ctx context.Context, bucketID string) (int64, error) {
	now := time.Now().UTC()
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("read_at IS NULL")
	if bucketID != "" {
		query = query.Where("bucket_id = ?", bucketID)
	}
	res := query.Update("read_at", now)
	return res.RowsAffected, res.Error
}

func (r *repository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Notification{}).Error
}

func (r *repository) DeleteByBucketID(ctx context.Context, bucketID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("bucket_id = ?", bucketID).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func (r *repository) CountUnread(ctx context.Context, bucketID string) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("read_at IS NULL")
	if bucketID != "" {
		query = query.Where("bucket_id = ?", bucketID)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
