package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTimeout = 5 * time.Second

// Config holds the Redis connection settings. KeyPrefix namespaces every key
// written by this package so several deployments can share one server.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	Timeout   time.Duration
}

// Store is a connected client plus the key namespace shared by the action
// locks and the session revocations.
type Store struct {
	client *redis.Client
	prefix string
}

// Connect opens a client and pings it before handing it out.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return NewStore(client, cfg.KeyPrefix), nil
}

// NewStore wraps an existing client.
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: strings.TrimSuffix(prefix, ":")}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.client.Close()
}

// key joins parts with ':' under the store prefix.
func (s *Store) key(parts ...string) string {
	k := strings.Join(parts, ":")
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}
