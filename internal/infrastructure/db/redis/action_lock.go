package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ActionLock implements ports.ActionLocker across instances.
// Key format: <prefix>:action-lock:<subject>:<action>
type ActionLock struct {
	store *Store
}

func NewActionLock(store *Store) *ActionLock {
	return &ActionLock{store: store}
}

func (l *ActionLock) Acquire(ctx context.Context, subject, action string, ttl time.Duration) (string, bool, error) {
	key := l.key(subject, action)
	token := uuid.NewString()

	ok, err := l.store.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *ActionLock) Release(ctx context.Context, subject, action, token string) error {
	key := l.key(subject, action)
	if err := releaseScript.Run(ctx, l.store.client, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (l *ActionLock) key(subject, action string) string {
	return l.store.key("action-lock", subject, action)
}
