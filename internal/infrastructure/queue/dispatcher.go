package queue

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes document changes to a fixed set of workers using
// consistent hashing on the document path, guaranteeing per-document ordering.
type Dispatcher struct {
	workers []chan ports.DocumentChange
	sink    ports.ChangeSink
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sink ports.ChangeSink, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.DocumentChange, numWorkers),
		sink:    sink,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.DocumentChange, channelBuffer)
	}
	return d
}

// Run starts the workers and blocks until ctx is cancelled and every worker
// has returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i, ch := range d.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runWorker(ctx, i, ch)
		}()
	}
	wg.Wait()
	return nil
}

// Enqueue hands a change to the worker responsible for its path. It blocks
// once that worker's buffer is full, until ctx is done.
func (d *Dispatcher) Enqueue(ctx context.Context, change ports.DocumentChange) error {
	select {
	case d.workers[d.shardIndex(change.Path)] <- change:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports how many changes wait in each worker channel.
func (d *Dispatcher) Pending() []int {
	out := make([]int, len(d.workers))
	for i, ch := range d.workers {
		out[i] = len(ch)
	}
	return out
}

// shardIndex maps a document path deterministically to a worker index.
func (d *Dispatcher) shardIndex(path string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(path))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.DocumentChange) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			if err := d.sink.Deliver(ctx, change); err != nil {
				d.log.Error().Err(err).
					Str("path", change.Path).
					Int("worker_id", id).
					Msg("change delivery failed")
			}
		}
	}
}
