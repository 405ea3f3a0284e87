package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics records import and startup-sync activity.
type SyncMetrics struct {
	importBatches   prometheus.Counter
	importSkipped   prometheus.Counter
	entitiesWritten *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	syncSuccess     prometheus.Counter
	syncFailure     prometheus.Counter
}

// NewSyncMetrics registers the sync metrics on the provided registerer.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	importBatches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "import_batches_total",
		Help: "Batches processed by the bulk importer.",
	})
	importSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "import_skipped_total",
		Help: "Items dropped by import validation.",
	})
	entitiesWritten := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_entities_written_total",
		Help: "Entities written to the normalized cache.",
	}, []string{"type"})
	syncDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "startup_sync_duration_seconds",
		Help:    "Duration of startup sync runs in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	syncSuccess := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "startup_sync_success_total",
		Help: "Successful startup sync runs.",
	})
	syncFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "startup_sync_failure_total",
		Help: "Failed startup sync runs.",
	})
	reg.MustRegister(importBatches, importSkipped, entitiesWritten, syncDuration, syncSuccess, syncFailure)
	return &SyncMetrics{
		importBatches:   importBatches,
		importSkipped:   importSkipped,
		entitiesWritten: entitiesWritten,
		syncDuration:    syncDuration,
		syncSuccess:     syncSuccess,
		syncFailure:     syncFailure,
	}
}

// IncImportBatch counts one processed import batch.
func (s *SyncMetrics) IncImportBatch() {
	if s == nil || s.importBatches == nil {
		return
	}
	s.importBatches.Inc()
}

// AddImportSkipped counts items dropped by validation.
func (s *SyncMetrics) AddImportSkipped(n int) {
	if s == nil || s.importSkipped == nil || n <= 0 {
		return
	}
	s.importSkipped.Add(float64(n))
}

// AddEntitiesWritten counts cache writes for the given entity type.
func (s *SyncMetrics) AddEntitiesWritten(entityType string, n int) {
	if s == nil || s.entitiesWritten == nil || n <= 0 {
		return
	}
	s.entitiesWritten.WithLabelValues(normalizeLabel(entityType)).Add(float64(n))
}

// ObserveSyncDuration records how long a startup sync run took.
func (s *SyncMetrics) ObserveSyncDuration(duration time.Duration) {
	if s == nil || s.syncDuration == nil {
		return
	}
	s.syncDuration.Observe(duration.Seconds())
}

// IncSyncSuccess counts a successful startup sync.
func (s *SyncMetrics) IncSyncSuccess() {
	if s == nil || s.syncSuccess == nil {
		return
	}
	s.syncSuccess.Inc()
}

// IncSyncFailure counts a failed startup sync.
func (s *SyncMetrics) IncSyncFailure() {
	if s == nil || s.syncFailure == nil {
		return
	}
	s.syncFailure.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
