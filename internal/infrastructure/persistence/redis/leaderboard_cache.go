package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
)

// LeaderboardCache keeps a short-lived JSON copy of the computed ranking
// under a single key. The leaderboard is small and recomputed cheaply, so a
// whole-page blob beats maintaining a sorted set that would still need a
// per-user hash for usernames.
type LeaderboardCache struct {
	client *Client
}

var _ user.LeaderboardCache = (*LeaderboardCache)(nil)

// NewLeaderboardCache creates a LeaderboardCache.
func NewLeaderboardCache(client *Client) *LeaderboardCache {
	return &LeaderboardCache{client: client}
}

// cachedEntry is the JSON shape of one cached ranking row.
type cachedEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	TotalXP  int    `json:"total_xp"`
	Level    int    `json:"level"`
}

const leaderboardKey = PrefixLeaderboard + "top"

// Get returns the cached ranking truncated to limit, or a NotFound error on
// a miss or when the cached copy holds fewer rows than requested.
func (c *LeaderboardCache) Get(ctx context.Context, limit int) ([]user.LeaderboardEntry, error) {
	blob, err := c.client.Redis().Get(ctx, leaderboardKey).Bytes()
	if err == redis.Nil {
		return nil, shared.NewDomainError("leaderboard", "Get", shared.ErrNotFound, "leaderboard not cached")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	var cached []cachedEntry
	if err := json.Unmarshal(blob, &cached); err != nil {
		// A corrupt blob reads as a miss so the caller recomputes.
		return nil, shared.NewDomainError("leaderboard", "Get", shared.ErrNotFound, "cached leaderboard unreadable")
	}

	// The cached copy was computed for some page size; serve a smaller or
	// equal page from it, recompute for a larger one. A full MaxLimit copy
	// satisfies everything.
	if len(cached) < limit && len(cached) < shared.MaxLimit {
		return nil, shared.NewDomainError("leaderboard", "Get", shared.ErrNotFound, "cached leaderboard too small")
	}
	if len(cached) > limit {
		cached = cached[:limit]
	}

	entries := make([]user.LeaderboardEntry, 0, len(cached))
	for _, e := range cached {
		entries = append(entries, user.LeaderboardEntry{
			Rank:     e.Rank,
			UserID:   shared.UserID(e.UserID),
			Username: e.Username,
			TotalXP:  e.TotalXP,
			Level:    e.Level,
		})
	}
	return entries, nil
}

// Set stores the ranking for ttl.
func (c *LeaderboardCache) Set(ctx context.Context, entries []user.LeaderboardEntry, ttl time.Duration) error {
	cached := make([]cachedEntry, 0, len(entries))
	for _, e := range entries {
		cached = append(cached, cachedEntry{
			Rank:     e.Rank,
			UserID:   e.UserID.String(),
			Username: e.Username,
			TotalXP:  e.TotalXP,
			Level:    e.Level,
		})
	}

	blob, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal leaderboard: %w", err)
	}

	if err := c.client.Redis().Set(ctx, leaderboardKey, blob, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Invalidate drops the cached ranking.
func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if err := c.client.Redis().Del(ctx, leaderboardKey).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}
