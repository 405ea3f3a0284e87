package importer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zentikhq/zentik-sync/internal/cache"
	"github.com/zentikhq/zentik-sync/internal/entity"
	pkgerrors "github.com/zentikhq/zentik-sync/pkg/errors"
	"github.com/zentikhq/zentik-sync/pkg/logger"
	"github.com/zentikhq/zentik-sync/pkg/metrics"
)

const (
	// DefaultBatchSize bounds how many notifications one batch writes
	// before the importer yields.
	DefaultBatchSize = 100
	// DefaultBatchDelay is how long the importer suspends between
	// batches to release the scheduler.
	DefaultBatchDelay = 100 * time.Millisecond
)

// YieldFunc is invoked between batches. The default sleeps for the
// configured delay; tests swap in a no-op.
type YieldFunc func(ctx context.Context) error

// Importer loads bulk notification documents into the normalized cache
// in bounded batches.
type Importer struct {
	store     cache.Store
	writer    *cache.Writer
	logg      *logger.Logger
	metrics   *metrics.SyncMetrics
	validate  *validator.Validate
	batchSize int
	yield     YieldFunc
}

// Options tune the importer; zero values fall back to defaults.
type Options struct {
	BatchSize  int
	BatchDelay time.Duration
	Yield      YieldFunc
}

// Result reports how an import run went. Skipped items are soft
// failures surfaced so the UI can show "imported 980 of 1000".
type Result struct {
	Imported int
	Skipped  int
	Batches  int
}

// New wires an importer onto the cache pipeline.
func New(store cache.Store, writer *cache.Writer, logg *logger.Logger, m *metrics.SyncMetrics, opts Options) (*Importer, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cache store required")
	}
	if writer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cache writer required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	delay := opts.BatchDelay
	if delay <= 0 {
		delay = DefaultBatchDelay
	}
	yield := opts.Yield
	if yield == nil {
		yield = delayYield(delay)
	}

	return &Importer{
		store:     store,
		writer:    writer,
		logg:      logg,
		metrics:   m,
		validate:  validator.New(),
		batchSize: batchSize,
		yield:     yield,
	}, nil
}

// rawItem is the minimal shape every imported element must satisfy.
type rawItem struct {
	ID       string `validate:"required"`
	TypeName string `validate:"required,eq=Notification"`
}

// ImportJSON parses jsonText, validates each notification, and writes
// the valid ones into the cache in order, batch by batch, yielding
// between batches. Returns the count of Notification entities written;
// buckets and users extracted along the way do not count toward it.
func (i *Importer) ImportJSON(ctx context.Context, jsonText string) (*Result, error) {
	items, err := parseDocument(jsonText)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	valid := make([]map[string]any, 0, len(items))
	for idx, item := range items {
		obj, ok := item.(map[string]any)
		if !ok || !i.isValidNotification(obj) {
			result.Skipped++
			i.logg.Warn(i.logg.WithField(ctx, "index", idx), "dropping invalid notification payload")
			continue
		}
		valid = append(valid, obj)
	}
	i.metrics.AddImportSkipped(result.Skipped)

	var feedKeys []entity.Key
	for start := 0; start < len(valid); start += i.batchSize {
		end := start + i.batchSize
		if end > len(valid) {
			end = len(valid)
		}

		set := entity.NewSet()
		for _, obj := range valid[start:end] {
			entity.ExtractInto(set, obj)
		}

		report, _ := i.writer.WriteAll(ctx, i.store, set)
		result.Imported += report.ByType[entity.TypeNotification]
		result.Batches++
		i.metrics.IncImportBatch()

		for _, key := range set.KeysOfType(entity.TypeNotification) {
			feedKeys = append(feedKeys, key)
		}

		batchCtx := i.logg.WithBatch(ctx, result.Batches)
		i.logg.Info(i.logg.WithField(batchCtx, "written", report.Written), "import batch written")

		if end < len(valid) {
			if err := i.yield(ctx); err != nil {
				return result, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "import interrupted between batches")
			}
		}
	}

	// fold into the existing feed so a partial import never evicts
	// previously synced entries from the list result
	if err := i.writer.MergeFeed(ctx, i.store, feedKeys); err != nil {
		i.logg.Error(ctx, "feed list result update failed after import", err)
	}

	return result, nil
}

func (i *Importer) isValidNotification(obj map[string]any) bool {
	e := entity.Entity(obj)
	item := rawItem{ID: e.ID(), TypeName: e.TypeName()}
	return i.validate.Struct(item) == nil
}

// parseDocument accepts a bare JSON array of notifications or an
// object wrapping a "notifications" array.
func parseDocument(jsonText string) ([]any, error) {
	if strings.TrimSpace(jsonText) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeParse, "import document is empty")
	}

	var root any
	if err := json.Unmarshal([]byte(jsonText), &root); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeParse, err, "import document is not valid JSON")
	}

	switch v := root.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if items, ok := v["notifications"].([]any); ok {
			return items, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeShape, "import document has no notifications array")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeShape, "import document must be an array or an object")
	}
}

func delayYield(delay time.Duration) YieldFunc {
	return func(ctx context.Context) error {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}
