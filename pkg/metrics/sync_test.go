package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSyncMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSyncMetrics(reg)

	m.IncImportBatch()
	m.IncImportBatch()
	m.AddImportSkipped(3)
	m.AddEntitiesWritten("Notification", 5)
	m.AddEntitiesWritten("", 1)
	m.ObserveSyncDuration(250 * time.Millisecond)
	m.IncSyncSuccess()

	if got := testutil.ToFloat64(m.importBatches); got != 2 {
		t.Fatalf("expected 2 batches, got %v", got)
	}
	if got := testutil.ToFloat64(m.importSkipped); got != 3 {
		t.Fatalf("expected 3 skipped, got %v", got)
	}
	if got := testutil.ToFloat64(m.entitiesWritten.WithLabelValues("Notification")); got != 5 {
		t.Fatalf("expected 5 notifications written, got %v", got)
	}
	if got := testutil.ToFloat64(m.entitiesWritten.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected unknown label fallback, got %v", got)
	}
	if got := testutil.ToFloat64(m.syncSuccess); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
}

func TestSyncMetricsNilRegisterer(t *testing.T) {
	m := NewSyncMetrics(nil)

	// all recorders must be no-ops without a registry
	m.IncImportBatch()
	m.AddImportSkipped(1)
	m.AddEntitiesWritten("Bucket", 1)
	m.ObserveSyncDuration(time.Second)
	m.IncSyncSuccess()
	m.IncSyncFailure()
}
