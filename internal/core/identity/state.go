// Package identity holds the current-session identity as explicit values that
// can be handed to the guard, the orchestrator and the profile session.
package identity

import (
	"context"
	"sync"

	"github.com/atelier/profile-portal/internal/core/domain"
)

// State is a process-wide current identity. It starts pending; Current blocks
// until the first Set or Clear.
type State struct {
	mu       sync.Mutex
	ready    chan struct{}
	resolved bool
	current  *domain.Identity
	subs     map[int]chan *domain.Identity
	nextSub  int
}

func NewState() *State {
	return &State{
		ready: make(chan struct{}),
		subs:  make(map[int]chan *domain.Identity),
	}
}

// Set makes id the current identity. A nil id means signed out.
func (s *State) Set(id *domain.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = id
	if !s.resolved {
		s.resolved = true
		close(s.ready)
	}
	for _, ch := range s.subs {
		offerLatest(ch, id)
	}
}

// Clear signs the current identity out.
func (s *State) Clear() {
	s.Set(nil)
}

// SignOut implements ports.SessionTerminator for in-process sessions.
func (s *State) SignOut(_ context.Context, _ *domain.Identity) error {
	s.Clear()
	return nil
}

func (s *State) Current(ctx context.Context) (*domain.Identity, error) {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

// Watch emits the identity once resolved and then every change. Slow readers
// only observe the latest value.
func (s *State) Watch(ctx context.Context) <-chan *domain.Identity {
	ch := make(chan *domain.Identity, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.resolved {
		offerLatest(ch, s.current)
	}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// offerLatest replaces whatever is buffered in ch with v. Callers hold s.mu.
func offerLatest(ch chan *domain.Identity, v *domain.Identity) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}

// Static is an already resolved identity that never changes, such as the
// subject of a verified request token.
type Static struct {
	Identity *domain.Identity
}

func (s Static) Current(ctx context.Context) (*domain.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Identity, nil
}

func (s Static) Watch(ctx context.Context) <-chan *domain.Identity {
	ch := make(chan *domain.Identity, 1)
	ch <- s.Identity
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying id, used by the function gateway
// to authenticate calls.
func NewContext(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the identity stored by NewContext.
func FromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*domain.Identity)
	return id, ok && id != nil
}
