package stats

import (
	"sort"
	"time"

	"github.com/zentikhq/zentik-sync/internal/entity"
)

// BucketStats is one row of the per-bucket notification rollup shown on
// the bucket overview screen.
type BucketStats struct {
	BucketID           string
	Name               string
	TotalMessages      int
	UnreadCount        int
	LastNotificationAt *time.Time
	IsDangling         bool
}

// ComputeBucketStats aggregates notifications into per-bucket counters.
// Every known bucket gets a row even with zero notifications; buckets
// referenced by a notification but missing from the bucket list get a
// dangling row so their messages stay visible. The second return value
// maps notification IDs to the bucket they counted toward.
func ComputeBucketStats(buckets []entity.Bucket, notifications []entity.Notification) ([]BucketStats, map[string]string) {
	byID := make(map[string]*BucketStats, len(buckets))
	order := make([]string, 0, len(buckets))
	for _, b := range buckets {
		if b.ID == "" {
			continue
		}
		if _, seen := byID[b.ID]; seen {
			continue
		}
		byID[b.ID] = &BucketStats{BucketID: b.ID, Name: b.Name}
		order = append(order, b.ID)
	}

	assignment := make(map[string]string, len(notifications))
	for _, n := range notifications {
		if n.ID == "" || n.BucketID == "" {
			continue
		}
		row, ok := byID[n.BucketID]
		if !ok {
			row = &BucketStats{BucketID: n.BucketID, IsDangling: true}
			byID[n.BucketID] = row
			order = append(order, n.BucketID)
		}

		row.TotalMessages++
		if n.ReadAt == nil {
			row.UnreadCount++
		}
		if !n.CreatedAt.IsZero() {
			if row.LastNotificationAt == nil || n.CreatedAt.After(*row.LastNotificationAt) {
				ts := n.CreatedAt
				row.LastNotificationAt = &ts
			}
		}
		assignment[n.ID] = n.BucketID
	}

	rows := make([]BucketStats, 0, len(order))
	for _, id := range order {
		rows = append(rows, *byID[id])
	}
	sortRows(rows)
	return rows, assignment
}

// sortRows orders buckets the way the overview renders them: most
// unread first, then most recent activity with inactive buckets last,
// then name. The sort is stable so equal rows keep insertion order.
func sortRows(rows []BucketStats) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.UnreadCount != b.UnreadCount {
			return a.UnreadCount > b.UnreadCount
		}
		if cmp := compareLastAt(a.LastNotificationAt, b.LastNotificationAt); cmp != 0 {
			return cmp > 0
		}
		return a.Name < b.Name
	})
}

// compareLastAt returns >0 when a should come before b. A nil timestamp
// sorts after any concrete one.
func compareLastAt(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case a.After(*b):
		return 1
	case b.After(*a):
		return -1
	default:
		return 0
	}
}
