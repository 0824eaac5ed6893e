package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/beesense/hive-dashboard/internal/core/ports"
	"github.com/beesense/hive-dashboard/internal/pkg/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes sensor readings to a fixed set of workers using
// consistent hashing on the hive id, so readings of one hive are processed
// in arrival order.
type Dispatcher struct {
	workers []chan ports.ReadingInput
	service ports.ReadingService
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.ReadingService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.ReadingInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ReadingInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a reading to the worker responsible for its hive.
// The call is non-blocking up to channelBuffer capacity.
func (d *Dispatcher) Enqueue(in ports.ReadingInput) {
	idx := d.shardIndex(in.HiveID)
	d.workers[idx] <- in
	metrics.ReadingsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// EnqueueBatch enqueues multiple readings preserving per-hive ordering.
func (d *Dispatcher) EnqueueBatch(in []ports.ReadingInput) {
	for _, r := range in {
		d.Enqueue(r)
	}
}

// shardIndex maps a hive id deterministically to a worker index.
func (d *Dispatcher) shardIndex(hiveID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(hiveID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ReadingInput) {
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case in, ok := <-ch:
			if !ok {
				return
			}
			metrics.ReadingsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.service.Process(ctx, in); err != nil {
				d.log.Error().Err(err).
					Str("hive_id", in.HiveID).
					Int("worker_id", id).
					Msg("reading processing failed")
			}
		}
	}
}
