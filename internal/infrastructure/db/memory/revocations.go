package memory

import (
	"context"
	"sync"
	"time"

	"github.com/atelier/profile-portal/internal/core/domain"
)

// Revocations records signed-out sessions until their token would have
// expired anyway.
type Revocations struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewRevocations() *Revocations {
	return &Revocations{revoked: make(map[string]time.Time)}
}

// SignOut implements ports.SessionTerminator.
func (r *Revocations) SignOut(_ context.Context, id *domain.Identity) error {
	if id == nil || id.SessionID == "" {
		return domain.ErrUnauthenticated
	}
	until := id.ExpiresAt
	if until.IsZero() {
		until = time.Now().Add(24 * time.Hour)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[id.SessionID] = until
	return nil
}

func (r *Revocations) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until, ok := r.revoked[sessionID]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(r.revoked, sessionID)
		return false, nil
	}
	return true, nil
}
