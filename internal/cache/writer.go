package cache

import (
	"context"
	"fmt"

	"github.com/zentikhq/zentik-sync/internal/entity"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
	"github.com/zentikhq/zentik-sync/pkg/logger"
	"github.com/zentikhq/zentik-sync/pkg/metrics"
	"go.uber.org/multierr"
)

// Writer persists extracted entity sets into a Store. Every entity is
// written independently; a malformed record lowers the success count
// without aborting the batch.
type Writer struct {
	logg    *logger.Logger
	metrics *metrics.SyncMetrics
}

// Report summarizes one WriteAll pass.
type Report struct {
	Written int
	Failed  int
	ByType  map[string]int
}

// NewWriter wires the cache writer dependencies. Metrics may be nil.
func NewWriter(logg *logger.Logger, m *metrics.SyncMetrics) (*Writer, error) {
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &Writer{logg: logg, metrics: m}, nil
}

// WriteAll writes each entity in the set into the store. The returned
// error aggregates per-entity failures for diagnostics only; callers
// use the report, not the error, for control flow.
func (w *Writer) WriteAll(ctx context.Context, store Store, set *entity.Set) (Report, error) {
	report := Report{ByType: map[string]int{}}
	if store == nil || set == nil {
		return report, pkgerrors.New(pkgerrors.CodeDependency, "store and entity set required")
	}

	var failures error
	set.Each(func(key entity.Key, e entity.Entity) {
		if err := store.Write(ctx, key, e); err != nil {
			report.Failed++
			failures = multierr.Append(failures, fmt.Errorf("write %s: %w", key, err))
			w.logg.Warn(w.logg.WithField(ctx, "entity_key", string(key)), "cache write failed, continuing batch")
			return
		}
		report.Written++
		report.ByType[e.TypeName()]++
	})

	for typeName, count := range report.ByType {
		w.metrics.AddEntitiesWritten(typeName, count)
	}
	return report, failures
}

// MergeFeed folds keys into the denormalized notification feed result,
// preserving entries from earlier syncs and imports. Existing keys keep
// their position; new keys append in order.
func (w *Writer) MergeFeed(ctx context.Context, store Store, keys []entity.Key) error {
	if store == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "store required")
	}
	if len(keys) == 0 {
		return nil
	}

	existing, _, err := store.ListResult(ctx, DomainNotifications)
	if err != nil {
		return fmt.Errorf("read %s list result: %w", DomainNotifications, err)
	}

	seen := make(map[entity.Key]struct{}, len(existing)+len(keys))
	merged := make([]entity.Key, 0, len(existing)+len(keys))
	for _, key := range existing {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, key)
	}
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, key)
	}

	if err := store.WriteListResult(ctx, DomainNotifications, merged); err != nil {
		return fmt.Errorf("write %s list result: %w", DomainNotifications, err)
	}
	return nil
}
