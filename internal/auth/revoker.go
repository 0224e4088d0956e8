package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker remembers token IDs that must no longer authenticate. Entries only
// need to outlive the token they block.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// MemoryRevoker is a process-local Revoker.
type MemoryRevoker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.entries {
		if !exp.After(now) {
			delete(r.entries, id)
		}
	}
	if until.After(now) {
		r.entries[tokenID] = until
	}
	return nil
}

func (r *MemoryRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.entries[tokenID]
	return ok && exp.After(r.now()), nil
}

// RedisRevoker keeps revoked token IDs in Redis so every server instance
// sees them. Keys expire together with the token.
type RedisRevoker struct {
	client *redis.Client
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil // already expired
	}
	if err := r.client.Set(ctx, r.key(tokenID), "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n == 1, nil
}

func (r *RedisRevoker) key(tokenID string) string {
	return "postboard:revoked:" + tokenID
}

var (
	_ Revoker = (*MemoryRevoker)(nil)
	_ Revoker = (*RedisRevoker)(nil)
)
