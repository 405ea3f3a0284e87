package importer

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/zentikhq/zentik-sync/internal/cache"
)

func TestExportMasksSensitiveFields(t *testing.T) {
	doc := `[{"__typename":"Notification","id":"n-1","title":"hello","deviceToken":"abc123","actions":[{"token":"t-1","label":"open"}],"__cacheVersion":3}]`

	store := cache.NewMemoryStore()
	imp := newTestImporter(t, store)
	if _, err := imp.ImportJSON(context.Background(), doc); err != nil {
		t.Fatalf("import: %v", err)
	}

	exp, err := NewExporter(store)
	if err != nil {
		t.Fatalf("exporter: %v", err)
	}
	out, err := exp.Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	if strings.Contains(out, "abc123") || strings.Contains(out, "t-1") {
		t.Fatalf("expected credentials masked, got %s", out)
	}
	if strings.Contains(out, "__cacheVersion") {
		t.Fatalf("expected internal metadata stripped, got %s", out)
	}
	if !strings.Contains(out, RedactedToken) {
		t.Fatalf("expected redaction token, got %s", out)
	}
	if !strings.Contains(out, "__typename") {
		t.Fatalf("expected type tag preserved, got %s", out)
	}
}

func TestExportRoundTripsThroughImport(t *testing.T) {
	doc := notificationDoc(5)

	store := cache.NewMemoryStore()
	imp := newTestImporter(t, store)
	if _, err := imp.ImportJSON(context.Background(), doc); err != nil {
		t.Fatalf("import: %v", err)
	}

	exp, _ := NewExporter(store)
	out, err := exp.Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	second := cache.NewMemoryStore()
	reimp := newTestImporter(t, second)
	result, err := reimp.ImportJSON(context.Background(), out)
	if err != nil {
		t.Fatalf("reimport: %v", err)
	}
	if result.Imported != 5 {
		t.Fatalf("expected 5 reimported, got %d", result.Imported)
	}
}

func TestExportEmptyCache(t *testing.T) {
	exp, _ := NewExporter(cache.NewMemoryStore())
	out, err := exp.Export(context.Background())
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	var items []any
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("expected valid JSON array, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty array, got %v", items)
	}
}
