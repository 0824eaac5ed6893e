package dedup

import (
	"context"
	"testing"
	"time"
)

func TestMemoryChecker(t *testing.T) {
	ctx := context.Background()
	m, err := NewMemoryChecker(2)
	if err != nil {
		t.Fatalf("NewMemoryChecker: %v", err)
	}
	ts := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	if dup, _ := m.IsDuplicate(ctx, "h1", ts); dup {
		t.Fatalf("fresh reading reported as duplicate")
	}
	_ = m.Mark(ctx, "h1", ts)
	if dup, _ := m.IsDuplicate(ctx, "h1", ts); !dup {
		t.Fatalf("marked reading not reported as duplicate")
	}
	if dup, _ := m.IsDuplicate(ctx, "h2", ts); dup {
		t.Fatalf("other hive reported as duplicate")
	}

	_ = m.Mark(ctx, "h2", ts)
	_ = m.Mark(ctx, "h3", ts)
	if dup, _ := m.IsDuplicate(ctx, "h1", ts); dup {
		t.Fatalf("expected oldest entry to be evicted")
	}
}
