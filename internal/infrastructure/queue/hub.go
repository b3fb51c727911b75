package queue

import (
	"context"
	"sync"

	"github.com/atelier/profile-portal/internal/core/ports"
)

// Hub fans document changes out to the subscribers of each path. Subscribers
// hold at most one pending snapshot; a newer snapshot replaces an unread one,
// so a slow reader never stalls delivery and always sees the latest state.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[int]chan ports.Snapshot
	next int
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]chan ports.Snapshot)}
}

// Subscribe registers interest in path. The returned cancel function
// unregisters and closes the channel.
func (h *Hub) Subscribe(path string) (<-chan ports.Snapshot, func()) {
	ch := make(chan ports.Snapshot, 1)

	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[path] == nil {
		h.subs[path] = make(map[int]chan ports.Snapshot)
	}
	h.subs[path][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[path], id)
			if len(h.subs[path]) == 0 {
				delete(h.subs, path)
			}
			close(ch)
		})
	}
	return ch, cancel
}

// Deliver implements ports.ChangeSink.
func (h *Hub) Deliver(_ context.Context, change ports.DocumentChange) error {
	snap := change.Snapshot()

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[change.Path] {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
	return nil
}

// Subscribers reports how many subscriptions are open for path.
func (h *Hub) Subscribers(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[path])
}

// Stream subscribes to path, emits the snapshot returned by initial and then
// every change until ctx is cancelled.
func (h *Hub) Stream(ctx context.Context, path string, initial func(context.Context) (ports.Snapshot, error)) (<-chan ports.Snapshot, error) {
	updates, cancel := h.Subscribe(path)

	first, err := initial(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan ports.Snapshot, 1)
	out <- first
	go func() {
		defer close(out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
