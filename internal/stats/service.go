package stats

import (
	"context"

	"github.com/zentikhq/zentik-sync/internal/cache"
	"github.com/zentikhq/zentik-sync/internal/entity"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
	"github.com/zentikhq/zentik-sync/pkg/logger"
)

// Service computes the bucket overview from the normalized cache.
type Service interface {
	BucketStats(ctx context.Context) ([]BucketStats, error)
}

type service struct {
	store cache.Store
	logg  *logger.Logger
}

// NewService wires the stats aggregator onto a cache store.
func NewService(store cache.Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cache store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{store: store, logg: logg}, nil
}

// BucketStats resolves the cached notification feed, loads the buckets
// it references, and aggregates the overview rows. Notifications whose
// cache entry has gone missing are skipped.
func (s *service) BucketStats(ctx context.Context) ([]BucketStats, error) {
	keys, ok, err := s.store.ListResult(ctx, cache.DomainNotifications)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading notification feed")
	}
	if !ok {
		return []BucketStats{}, nil
	}

	var notifications []entity.Notification
	bucketIDs := map[string]struct{}{}
	for _, key := range keys {
		ent, found, err := s.store.Get(ctx, key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading cached notification")
		}
		if !found {
			s.logg.Warn(s.logg.WithField(ctx, "entity_key", string(key)), "feed references missing entity")
			continue
		}
		n, ok := entity.NotificationFromEntity(ent)
		if !ok {
			continue
		}
		notifications = append(notifications, n)
		if n.BucketID != "" {
			bucketIDs[n.BucketID] = struct{}{}
		}
	}

	var buckets []entity.Bucket
	for id := range bucketIDs {
		ent, found, err := s.store.Get(ctx, entity.NewKey(entity.TypeBucket, id))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading cached bucket")
		}
		if !found {
			continue
		}
		if b, ok := entity.BucketFromEntity(ent); ok {
			buckets = append(buckets, b)
		}
	}

	rows, _ := ComputeBucketStats(buckets, notifications)
	return rows, nil
}
