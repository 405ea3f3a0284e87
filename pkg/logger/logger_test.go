package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestLoggerWritesContextFields(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithFields(context.Background(), map[string]any{
		"bucket_id": "b-1",
		"batch":     3,
	})
	logg.Info(ctx, "import batch written")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log line: %v", err)
	}
	if entry["service"] != "test" {
		t.Fatalf("expected service field, got %v", entry["service"])
	}
	if entry["bucket_id"] != "b-1" {
		t.Fatalf("expected bucket_id field, got %v", entry["bucket_id"])
	}
	if entry["message"] != "import batch written" {
		t.Fatalf("unexpected message %v", entry["message"])
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if lvl := ParseLevel("nonsense"); lvl.String() != "info" {
		t.Fatalf("expected info level, got %s", lvl)
	}
	if lvl := ParseLevel("debug"); lvl.String() != "debug" {
		t.Fatalf("expected debug level, got %s", lvl)
	}
}
