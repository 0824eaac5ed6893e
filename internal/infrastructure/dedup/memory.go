// Package dedup holds the in-process reading deduplicator used when the
// backend runs without Redis.
package dedup

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultSize = 65536

// MemoryChecker remembers the most recent processed readings. Old entries
// are evicted by recency, so very late duplicates may be processed again.
type MemoryChecker struct {
	seen *lru.Cache[string, struct{}]
}

func NewMemoryChecker(size int) (*MemoryChecker, error) {
	if size <= 0 {
		size = defaultSize
	}
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("dedup cache: %w", err)
	}
	return &MemoryChecker{seen: cache}, nil
}

func (m *MemoryChecker) IsDuplicate(_ context.Context, hiveID string, ts time.Time) (bool, error) {
	return m.seen.Contains(key(hiveID, ts)), nil
}

func (m *MemoryChecker) Mark(_ context.Context, hiveID string, ts time.Time) error {
	m.seen.Add(key(hiveID, ts), struct{}{})
	return nil
}

func key(hiveID string, ts time.Time) string {
	return fmt.Sprintf("%s:%d", hiveID, ts.UnixMilli())
}
