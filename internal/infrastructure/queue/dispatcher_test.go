package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/beesense/hive-dashboard/internal/core/ports"
)

type recordingService struct {
	mu   sync.Mutex
	seen map[string][]time.Time
	done chan struct{}
	want int
	got  int
}

func (s *recordingService) Process(_ context.Context, in ports.ReadingInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[in.HiveID] = append(s.seen[in.HiveID], in.RecordedAt)
	s.got++
	if s.got == s.want {
		close(s.done)
	}
	return nil
}

func TestDispatcher_PreservesPerHiveOrder(t *testing.T) {
	const perHive = 50
	hives := []string{"hive-a", "hive-b", "hive-c"}

	svc := &recordingService{seen: map[string][]time.Time{}, done: make(chan struct{}), want: perHive * len(hives)}
	d := NewDispatcher(4, svc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	var batch []ports.ReadingInput
	for i := 0; i < perHive; i++ {
		for _, h := range hives {
			batch = append(batch, ports.ReadingInput{HiveID: h, RecordedAt: base.Add(time.Duration(i) * time.Minute)})
		}
	}
	d.EnqueueBatch(batch)

	select {
	case <-svc.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out: processed %d of %d readings", svc.got, svc.want)
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, h := range hives {
		got := svc.seen[h]
		if len(got) != perHive {
			t.Fatalf("%s: expected %d readings, got %d", h, perHive, len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Before(got[i-1]) {
				t.Fatalf("%s: reading %d processed out of order", h, i)
			}
		}
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(0, nil, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
	first := d.shardIndex("hive-42")
	for i := 0; i < 10; i++ {
		if d.shardIndex("hive-42") != first {
			t.Fatalf("shard index changed between calls")
		}
	}
}
