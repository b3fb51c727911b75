package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier/profile-portal/internal/core/domain"
)

const defaultRevocationTTL = 24 * time.Hour

// Revocations records signed-out sessions until the token would have expired.
// Key format: <prefix>:revoked:<session_id>
type Revocations struct {
	store *Store
}

func NewRevocations(store *Store) *Revocations {
	return &Revocations{store: store}
}

// SignOut implements ports.SessionTerminator.
func (r *Revocations) SignOut(ctx context.Context, id *domain.Identity) error {
	if id == nil || id.SessionID == "" {
		return domain.ErrUnauthenticated
	}
	ttl := defaultRevocationTTL
	if !id.ExpiresAt.IsZero() {
		ttl = time.Until(id.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	if err := r.store.client.Set(ctx, r.key(id.SessionID), id.UID, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *Revocations) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.store.client.Exists(ctx, r.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("revocation check: %w", err)
	}
	return n > 0, nil
}

func (r *Revocations) key(sessionID string) string {
	return r.store.key("revoked", sessionID)
}
