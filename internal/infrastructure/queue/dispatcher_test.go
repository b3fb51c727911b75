package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/atelier/profile-portal/internal/core/ports"
)

type recordingSink struct {
	mu    sync.Mutex
	paths []string
	done  chan struct{}
	want  int
}

func (s *recordingSink) Deliver(_ context.Context, c ports.DocumentChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paths = append(s.paths, c.Path+":"+string(c.Data))
	if len(s.paths) == s.want {
		close(s.done)
	}
	return nil
}

func TestDispatcher_PreservesPerPathOrder(t *testing.T) {
	sink := &recordingSink{done: make(chan struct{}), want: 3}
	d := NewDispatcher(4, sink, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	for _, v := range []string{"1", "2", "3"} {
		if err := d.Enqueue(ctx, ports.DocumentChange{Path: "profiles/u1", Data: []byte(v)}); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}

	select {
	case <-sink.done:
	case <-time.After(time.Second):
		t.Fatalf("changes not delivered")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	want := []string{"profiles/u1:1", "profiles/u1:2", "profiles/u1:3"}
	for i := range want {
		if sink.paths[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, sink.paths)
		}
	}
}

func TestDispatcher_ShardIndexStable(t *testing.T) {
	d := NewDispatcher(0, &recordingSink{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected default workers, got %d", len(d.workers))
	}
	a := d.shardIndex("profiles/u1/devices/d1")
	b := d.shardIndex("profiles/u1/devices/d1")
	if a != b || a < 0 || a >= defaultWorkers {
		t.Fatalf("unstable shard index %d %d", a, b)
	}
}

func TestDispatcher_EnqueueHonoursContext(t *testing.T) {
	d := NewDispatcher(1, &recordingSink{}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	// Workers are not started, so the buffer fills up.
	for i := 0; i < channelBuffer; i++ {
		if err := d.Enqueue(ctx, ports.DocumentChange{Path: "p/x"}); err != nil {
			t.Fatalf("Enqueue %d: %v", i, err)
		}
	}
	if d.Pending()[0] != channelBuffer {
		t.Fatalf("expected full buffer, got %v", d.Pending())
	}
	cancel()
	if err := d.Enqueue(ctx, ports.DocumentChange{Path: "p/x"}); err == nil {
		t.Fatalf("expected context error on full buffer")
	}
}

func TestDispatcher_RunReturnsAfterCancel(t *testing.T) {
	d := NewDispatcher(2, &recordingSink{done: make(chan struct{})}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
