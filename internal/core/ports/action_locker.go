package ports

import (
	"context"
	"time"
)

// ActionLocker provides mutual exclusion for one (subject, action) pair while
// the action executes. Acquire returns ok=false when another execution holds
// it. The returned token identifies the holder: Release with a token that no
// longer holds the lock, because it expired and was taken over, is a no-op.
type ActionLocker interface {
	Acquire(ctx context.Context, subject, action string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, subject, action, token string) error
}
