package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/zentikhq/zentik-sync/internal/cache"
	"github.com/zentikhq/zentik-sync/internal/entity"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
	"github.com/zentikhq/zentik-sync/pkg/logger"
	"github.com/zentikhq/zentik-sync/pkg/metrics"
)

// RemoteSource pulls the full notification feed from the backend.
// remote.Client satisfies it; tests use fakes.
type RemoteSource interface {
	PullAll(ctx context.Context) ([]entity.Entity, error)
}

// Coordinator runs the startup sync at most once per process start.
// A second call is a no-op regardless of whether the first succeeded;
// retries wait for the next start.
type Coordinator struct {
	source  RemoteSource
	store   cache.Store
	writer  *cache.Writer
	logg    *logger.Logger
	metrics *metrics.SyncMetrics
	enabled bool

	mu        stdsync.Mutex
	ran       bool
	lastErr   error
	lastCount int
	lastTime  time.Time
}

// NewCoordinator wires the startup sync dependencies. When enabled is
// false Run does nothing, for air-gapped or test setups.
func NewCoordinator(source RemoteSource, store cache.Store, writer *cache.Writer, logg *logger.Logger, m *metrics.SyncMetrics, enabled bool) (*Coordinator, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cache store required")
	}
	if writer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cache writer required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if enabled && source == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "remote source required when sync is enabled")
	}
	return &Coordinator{
		source:  source,
		store:   store,
		writer:  writer,
		logg:    logg,
		metrics: m,
		enabled: enabled,
	}, nil
}

// Run performs the startup sync: pull the feed, extract and write every
// entity, then invalidate the stale notification queries. Cancellation
// is honored between stages; entities already written stay written.
// Returns how many notifications the sync brought in; a repeat call is
// a no-op reporting the first attempt's count.
func (c *Coordinator) Run(ctx context.Context) (int, error) {
	if !c.enabled {
		return 0, nil
	}

	c.mu.Lock()
	if c.ran {
		count := c.lastCount
		c.mu.Unlock()
		return count, nil
	}
	c.ran = true
	c.mu.Unlock()

	started := time.Now()
	count, err := c.run(ctx)
	c.metrics.ObserveSyncDuration(time.Since(started))

	c.mu.Lock()
	c.lastErr = err
	c.lastCount = count
	c.lastTime = time.Now()
	c.mu.Unlock()

	if err != nil {
		c.metrics.IncSyncFailure()
		c.logg.Error(ctx, "startup sync failed", err)
		return count, err
	}
	c.metrics.IncSyncSuccess()
	return count, nil
}

func (c *Coordinator) run(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeSync, err, "sync canceled before pull")
	}

	items, err := c.source.PullAll(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeSync, err, "pulling notification feed")
	}
	c.logg.Info(c.logg.WithField(ctx, "count", len(items)), "pulled notification feed")

	if err := ctx.Err(); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeSync, err, "sync canceled before write")
	}

	set := entity.NewSet()
	for _, item := range items {
		entity.ExtractInto(set, map[string]any(item))
	}

	report, _ := c.writer.WriteAll(ctx, c.store, set)
	synced := report.ByType[entity.TypeNotification]
	c.logg.Info(c.logg.WithFields(ctx, map[string]any{
		"written": report.Written,
		"failed":  report.Failed,
		"synced":  synced,
	}), "startup sync wrote feed")

	if err := ctx.Err(); err != nil {
		return synced, pkgerrors.Wrap(pkgerrors.CodeSync, err, "sync canceled before invalidation")
	}

	// drop stale notification queries before publishing the fresh feed
	// so readers never see pre-sync results
	if err := c.store.Invalidate(ctx, cache.DomainNotifications); err != nil {
		return synced, pkgerrors.Wrap(pkgerrors.CodeSync, err, "invalidating notification queries")
	}
	if err := c.store.WriteListResult(ctx, cache.DomainNotifications, set.KeysOfType(entity.TypeNotification)); err != nil {
		return synced, pkgerrors.Wrap(pkgerrors.CodeSync, err, "writing refreshed feed result")
	}
	return synced, nil
}

// Ran reports whether the startup sync has been attempted this process.
func (c *Coordinator) Ran() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ran
}

// LastError returns the outcome of the attempt, nil before Run and on
// success.
func (c *Coordinator) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SyncedCount returns how many notifications the attempt brought in.
func (c *Coordinator) SyncedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCount
}
