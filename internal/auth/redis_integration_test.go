//go:build integration
// +build integration

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	addr, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get endpoint: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisRevoker(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()
	r := NewRedisRevoker(client)

	revoked, err := r.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "a", time.Now().Add(time.Minute)))
	revoked, err = r.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	ttl, err := client.TTL(ctx, r.key("a")).Result()
	require.NoError(t, err)
	assert.InDelta(t, time.Minute.Seconds(), ttl.Seconds(), 5)

	// already expired tokens need no entry
	require.NoError(t, r.Revoke(ctx, "old", time.Now().Add(-time.Minute)))
	revoked, err = r.IsRevoked(ctx, "old")
	require.NoError(t, err)
	assert.False(t, revoked)
}
