package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
)

func testEntries() []user.LeaderboardEntry {
	return []user.LeaderboardEntry{
		{Rank: 1, UserID: "3f8a2c1e-9b4d-4e6f-8a1b-2c3d4e5f6a7b", Username: "alice", TotalXP: 1200, Level: 3},
		{Rank: 2, UserID: "7b6a5f4e-3d2c-4b1a-8f6e-9d4b1e2c8a3f", Username: "bob", TotalXP: 500, Level: 2},
	}
}

func TestLeaderboardCache_SetGet(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewLeaderboardCache(client)

	require.NoError(t, cache.Set(context.Background(), testEntries(), time.Minute))

	got, err := cache.Get(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, 1200, got[0].TotalXP)
	assert.Equal(t, shared.UserID("7b6a5f4e-3d2c-4b1a-8f6e-9d4b1e2c8a3f"), got[1].UserID)

	// A smaller page is served from the same cached copy.
	one, err := cache.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "alice", one[0].Username)
}

func TestLeaderboardCache_Miss(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewLeaderboardCache(client)

	_, err := cache.Get(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestLeaderboardCache_LargerPageMisses(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewLeaderboardCache(client)

	require.NoError(t, cache.Set(context.Background(), testEntries(), time.Minute))

	// The cached copy holds 2 rows; asking for 10 forces a recompute.
	_, err := cache.Get(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestLeaderboardCache_TTLExpiry(t *testing.T) {
	client, mr := newTestClient(t)
	cache := NewLeaderboardCache(client)

	require.NoError(t, cache.Set(context.Background(), testEntries(), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := cache.Get(context.Background(), 2)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestLeaderboardCache_Invalidate(t *testing.T) {
	client, _ := newTestClient(t)
	cache := NewLeaderboardCache(client)

	require.NoError(t, cache.Set(context.Background(), testEntries(), time.Minute))
	require.NoError(t, cache.Invalidate(context.Background()))

	_, err := cache.Get(context.Background(), 2)
	assert.Error(t, err)
}
