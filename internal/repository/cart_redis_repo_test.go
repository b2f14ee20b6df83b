package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"restobook/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real server; set REDIS_TEST_ADDR to enable.
func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCartRedisRepository_KeepsInsertionOrder(t *testing.T) {
	client := newTestRedis(t)
	repo := NewCartRedisRepository(client, "test:cart:", time.Minute)
	ctx := context.Background()
	bookingID := uuid.NewString()
	t.Cleanup(func() { _ = repo.Clear(context.Background(), bookingID) })

	require.NoError(t, repo.SetItem(ctx, bookingID, "u1", domain.CartItem{ProductID: "p2", Name: "Tea", Price: 20000, Quantity: 1}))
	require.NoError(t, repo.SetItem(ctx, bookingID, "u1", domain.CartItem{ProductID: "p1", Name: "Soup", Price: 50000, Quantity: 2}))
	require.NoError(t, repo.SetItem(ctx, bookingID, "u1", domain.CartItem{ProductID: "p2", Name: "Tea", Price: 20000, Quantity: 4}))

	c, err := repo.Get(ctx, bookingID)
	require.NoError(t, err)
	require.Len(t, c.Items, 2)
	assert.Equal(t, "p2", c.Items[0].ProductID)
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.Equal(t, "u1", c.UserID)

	ttl, err := client.TTL(ctx, "test:cart:"+bookingID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, repo.RemoveItem(ctx, bookingID, "p2"))
	c, err = repo.Get(ctx, bookingID)
	require.NoError(t, err)
	assert.Len(t, c.Items, 1)
}
