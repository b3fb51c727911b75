package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type lease struct {
	token string
	until time.Time
}

// ActionLocker implements ports.ActionLocker within one process.
type ActionLocker struct {
	mu    sync.Mutex
	held  map[string]lease
	clock func() time.Time
}

func NewActionLocker() *ActionLocker {
	return &ActionLocker{held: make(map[string]lease), clock: time.Now}
}

func (l *ActionLocker) Acquire(_ context.Context, subject, action string, ttl time.Duration) (string, bool, error) {
	key := subject + ":" + action
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && now.Before(cur.until) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = lease{token: token, until: now.Add(ttl)}
	return token, true, nil
}

// Release drops the lock only while token still holds it.
func (l *ActionLocker) Release(_ context.Context, subject, action, token string) error {
	key := subject + ":" + action

	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}
