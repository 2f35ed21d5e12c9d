package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewClientFromRedis(rdb), mr
}

func TestIdempotencyStore_MarkOnce(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewIdempotencyStore(client, time.Minute)

	key := "3f8a2c1e-9b4d-4e6f-8a1b-2c3d4e5f6a7b:go-basics:s1:section_completion"

	first, err := store.MarkOnce(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkOnce(context.Background(), key)
	require.NoError(t, err)
	assert.False(t, second)

	// A different event key is unaffected.
	other, err := store.MarkOnce(context.Background(), key+":other")
	require.NoError(t, err)
	assert.True(t, other)
}

func TestIdempotencyStore_TTLExpiry(t *testing.T) {
	client, mr := newTestClient(t)
	store := NewIdempotencyStore(client, time.Minute)

	key := "user:course:s1:section_completion"

	first, err := store.MarkOnce(context.Background(), key)
	require.NoError(t, err)
	require.True(t, first)

	mr.FastForward(2 * time.Minute)

	// The fence expired; the key marks fresh again.
	again, err := store.MarkOnce(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestIdempotencyStore_Unmark(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewIdempotencyStore(client, time.Minute)

	key := "user:course:s1:section_completion"

	first, err := store.MarkOnce(context.Background(), key)
	require.NoError(t, err)
	require.True(t, first)

	require.NoError(t, store.Unmark(context.Background(), key))

	// The fence is gone; the key marks fresh again.
	again, err := store.MarkOnce(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, again)
}

func TestIdempotencyStore_EmptyKey(t *testing.T) {
	client, _ := newTestClient(t)
	store := NewIdempotencyStore(client, time.Minute)

	_, err := store.MarkOnce(context.Background(), "")
	assert.Error(t, err)

	assert.Error(t, store.Unmark(context.Background(), ""))
}
