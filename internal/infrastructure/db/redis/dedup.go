package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultDedupWindow is how long a processed reading is remembered.
const DefaultDedupWindow = time.Hour

// DedupChecker remembers processed readings in Redis so replays from a
// sensor gateway are skipped. Keys look like
// <prefix>reading:<hive_id>:<unix_millis> and expire after the window.
type DedupChecker struct {
	client *redis.Client
	prefix string
	window time.Duration
}

// NewDedupChecker returns a checker namespaced under prefix. A non-positive
// window falls back to DefaultDedupWindow.
func NewDedupChecker(client *redis.Client, prefix string, window time.Duration) *DedupChecker {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &DedupChecker{client: client, prefix: prefix, window: window}
}

func (d *DedupChecker) IsDuplicate(ctx context.Context, hiveID string, recordedAt time.Time) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(hiveID, recordedAt)).Result()
	if err != nil {
		return false, fmt.Errorf("redis dedup %s: %w", hiveID, err)
	}
	return n == 1, nil
}

// Mark is only called after the reading was stored.
func (d *DedupChecker) Mark(ctx context.Context, hiveID string, recordedAt time.Time) error {
	if err := d.client.Set(ctx, d.key(hiveID, recordedAt), recordedAt.Unix(), d.window).Err(); err != nil {
		return fmt.Errorf("redis dedup mark %s: %w", hiveID, err)
	}
	return nil
}

func (d *DedupChecker) key(hiveID string, recordedAt time.Time) string {
	return d.prefix + "reading:" + hiveID + ":" + fmt.Sprint(recordedAt.UnixMilli())
}
