package entity

import (
	"reflect"
	"sort"
	"testing"
)

func notificationPayload(id, bucketID string) map[string]any {
	return map[string]any{
		"__typename": "Notification",
		"id":         id,
		"createdAt":  "2024-01-15T10:00:00Z",
		"message": map[string]any{
			"title": "hello",
			"bucket": map[string]any{
				"__typename": "Bucket",
				"id":         bucketID,
				"name":       "alerts",
			},
		},
	}
}

func sortedKeys(set *Set) []string {
	var keys []string
	for _, k := range set.Keys() {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

func TestExtractNestedEntities(t *testing.T) {
	root := map[string]any{
		"data": map[string]any{
			"notifications": []any{
				notificationPayload("n-1", "b-1"),
				notificationPayload("n-2", "b-1"),
			},
		},
	}

	set := Extract(root)
	want := []string{"Bucket:b-1", "Notification:n-1", "Notification:n-2"}
	if got := sortedKeys(set); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected keys %v, got %v", want, got)
	}
}

func TestExtractIsIdempotent(t *testing.T) {
	root := map[string]any{
		"notifications": []any{
			notificationPayload("n-1", "b-1"),
			notificationPayload("n-2", "b-2"),
		},
	}

	first := Extract(root)
	second := Extract(root)

	if !reflect.DeepEqual(sortedKeys(first), sortedKeys(second)) {
		t.Fatalf("expected identical key sets, got %v vs %v", sortedKeys(first), sortedKeys(second))
	}
	for _, key := range first.Keys() {
		a, _ := first.Get(key)
		b, _ := second.Get(key)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("entity %s differs between runs", key)
		}
	}
}

func TestExtractBreaksCycles(t *testing.T) {
	notification := map[string]any{
		"__typename": "Notification",
		"id":         "n-1",
	}
	bucket := map[string]any{
		"__typename": "Bucket",
		"id":         "b-1",
	}
	notification["message"] = map[string]any{"bucket": bucket}
	bucket["lastNotification"] = notification

	set := Extract(notification)
	if set.Len() != 2 {
		t.Fatalf("expected exactly 2 entities, got %d", set.Len())
	}
	if _, ok := set.Get(NewKey("Notification", "n-1")); !ok {
		t.Fatal("expected notification in set")
	}
	if _, ok := set.Get(NewKey("Bucket", "b-1")); !ok {
		t.Fatal("expected bucket in set")
	}
}

func TestExtractKeepsMostCompleteInstance(t *testing.T) {
	stub := map[string]any{
		"__typename": "Bucket",
		"id":         "b-1",
	}
	full := map[string]any{
		"__typename":  "Bucket",
		"id":          "b-1",
		"name":        "alerts",
		"color":       "#ff0000",
		"description": "alerting bucket",
	}
	root := []any{stub, full, stub}

	set := Extract(root)
	if set.Len() != 1 {
		t.Fatalf("expected single bucket, got %d", set.Len())
	}
	got, _ := set.Get(NewKey("Bucket", "b-1"))
	if got["name"] != "alerts" {
		t.Fatalf("expected full instance to win, got %v", got)
	}
	// a later stub must not clobber the full record
	if len(got) != len(full) {
		t.Fatalf("expected %d fields, got %d", len(full), len(got))
	}
}

func TestExtractSkipsUntaggedObjects(t *testing.T) {
	root := map[string]any{
		"meta":   map[string]any{"page": float64(1)},
		"id":     "not-an-entity",
		"nested": map[string]any{"id": "x"},
	}
	set := Extract(root)
	if set.Len() != 0 {
		t.Fatalf("expected no entities, got %d", set.Len())
	}
}

func TestNotificationFromEntity(t *testing.T) {
	readAt := "2024-02-01T08:00:00Z"
	payload := notificationPayload("n-9", "b-3")
	payload["readAt"] = readAt

	n, ok := NotificationFromEntity(Entity(payload))
	if !ok {
		t.Fatal("expected notification view")
	}
	if n.BucketID != "b-3" {
		t.Fatalf("expected bucket b-3, got %q", n.BucketID)
	}
	if n.ReadAt == nil {
		t.Fatal("expected read timestamp")
	}
	if n.Title != "hello" {
		t.Fatalf("expected title from message, got %q", n.Title)
	}

	if _, ok := NotificationFromEntity(Entity{"__typename": "Bucket", "id": "b"}); ok {
		t.Fatal("bucket must not map to notification view")
	}
}
