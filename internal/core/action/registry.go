package action

import (
	"context"
	"sync"
	"time"

	"github.com/atelier/profile-portal/internal/core/domain"
)

const defaultRegistryTTL = 10 * time.Minute

// Registry keeps invocations awaiting an answer so a later request can confirm
// or decline them. Invocations left unanswered longer than the TTL are
// declined, and finished ones are forgotten after the same TTL.
type Registry struct {
	mu    sync.Mutex
	items map[string]*Invocation
	ttl   time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = defaultRegistryTTL
	}
	return &Registry{items: make(map[string]*Invocation), ttl: ttl}
}

func (r *Registry) Add(inv *Invocation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[inv.ID()] = inv
}

// Get returns the invocation with id if it belongs to subject. Invocations of
// other subjects are reported as missing.
func (r *Registry) Get(id, subject string) (*Invocation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.items[id]
	if !ok || inv.Subject() != subject {
		return nil, domain.ErrInvocationNotFound
	}
	return inv, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Sweep expires invocations idle since before now-ttl and returns how many
// were removed. Executing invocations are never touched.
func (r *Registry) Sweep(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-r.ttl)

	r.mu.Lock()
	var expired []*Invocation
	for id, inv := range r.items {
		if inv.State() == Executing || inv.LastActivity().After(cutoff) {
			continue
		}
		expired = append(expired, inv)
		delete(r.items, id)
	}
	r.mu.Unlock()

	for _, inv := range expired {
		if inv.State() == Confirming {
			_, _ = inv.Decline(ctx)
		}
	}
	return len(expired)
}

// Run sweeps every interval until ctx is cancelled.
func (r *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			r.Sweep(ctx, now)
		}
	}
}
