package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/zentikhq/zentik-sync/internal/entity"
	"github.com/zentikhq/zentik-sync/internal/recovery"
	"github.com/zentikhq/zentik-sync/pkg/db/models"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
	"github.com/zentikhq/zentik-sync/pkg/logger"
	"github.com/zentikhq/zentik-sync/pkg/pagination"
	"gorm.io/gorm"
)

// broadcaster fans recovery events out to local and companion
// listeners; recovery.Bridge satisfies it.
type broadcaster interface {
	Broadcast(ctx context.Context, event recovery.Event)
}

// Service exposes notification operations over the durable store.
type Service interface {
	Get(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, params pagination.Params) ([]models.Notification, string, error)
	Ingest(ctx context.Context, set *entity.Set) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkUnread(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, bucketID string) (int64, error)
	Delete(ctx context.Context, id string) error
	DeleteBucket(ctx context.Context, bucketID string) (int64, error)
	UnreadCount(ctx context.Context, bucketID string) (int64, error)
}

type service struct {
	repo     Repository
	logg     *logger.Logger
	recovery broadcaster
}

// NewService builds the notification service. The recovery broadcaster
// is optional; without it corruption is only logged.
func NewService(repo Repository, logg *logger.Logger, rec broadcaster) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{repo: repo, logg: logg, recovery: rec}, nil
}

func (s *service) Get(ctx context.Context, id string) (*models.Notification, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return nil, s.storageError(ctx, err, "load notification")
	}
	return row, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) ([]models.Notification, string, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, "", s.storageError(ctx, err, "list notifications")
	}
	return rows, next, nil
}

// Ingest persists every notification entity in the set. Entities that
// cannot be mapped are skipped; the count of stored rows is returned.
func (s *service) Ingest(ctx context.Context, set *entity.Set) (int, error) {
	if set == nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "entity set required")
	}

	var rows []models.Notification
	set.Each(func(key entity.Key, e entity.Entity) {
		n, ok := entity.NotificationFromEntity(e)
		if !ok {
			return
		}
		payload, err := json.Marshal(e)
		if err != nil {
			s.logg.Warn(s.logg.WithNotificationID(ctx, n.ID), "skipping unserializable notification")
			return
		}
		rows = append(rows, models.Notification{
			ID:        n.ID,
			BucketID:  n.BucketID,
			Title:     n.Title,
			Body:      n.Body,
			Payload:   string(payload),
			ReadAt:    n.ReadAt,
			CreatedAt: n.CreatedAt,
		})
	})

	if err := s.repo.UpsertBatch(ctx, rows); err != nil {
		return 0, s.storageError(ctx, err, "persist notifications")
	}
	return len(rows), nil
}

func (s *service) MarkRead(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		return s.storageError(ctx, err, "mark notification read")
	}
	return nil
}

func (s *service) MarkUnread(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	if err := s.repo.MarkUnread(ctx, id); err != nil {
		return s.storageError(ctx, err, "mark notification unread")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, bucketID string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, bucketID)
	if err != nil {
		return 0, s.storageError(ctx, err, "mark all read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return s.storageError(ctx, err, "delete notification")
	}
	return nil
}

func (s *service) DeleteBucket(ctx context.Context, bucketID string) (int64, error) {
	if strings.TrimSpace(bucketID) == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "bucket id required")
	}
	count, err := s.repo.DeleteByBucketID(ctx, bucketID)
	if err != nil {
		return 0, s.storageError(ctx, err, "delete bucket notifications")
	}
	return count, nil
}

func (s *service) UnreadCount(ctx context.Context, bucketID string) (int64, error) {
	count, err := s.repo.CountUnread(ctx, bucketID)
	if err != nil {
		return 0, s.storageError(ctx, err, "count unread")
	}
	return count, nil
}

// storageError wraps a repository failure and, when the error signals a
// corrupted database file, broadcasts the recovery event so listeners
// can reset local storage.
func (s *service) storageError(ctx context.Context, err error, message string) error {
	if isCorruption(err) {
		s.logg.Error(ctx, "local database corrupted", err)
		if s.recovery != nil {
			s.recovery.Broadcast(ctx, recovery.EventStorageCorrupted)
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func isCorruption(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database disk image is malformed") ||
		strings.Contains(msg, "file is not a database")
}
