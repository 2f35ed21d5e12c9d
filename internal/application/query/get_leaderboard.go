package query

import (
	"context"
	"fmt"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Returns the top-N users by lifetime XP. Reads go through a short-lived
// cache; a miss falls back to the primary store and repopulates the cache.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultLeaderboardTTL is how long a cached leaderboard page stays fresh.
const DefaultLeaderboardTTL = 60 * time.Second

// GetLeaderboardQuery contains the leaderboard parameters.
type GetLeaderboardQuery struct {
	// Limit is the number of entries (default 20, maximum 100).
	Limit int
}

// Validate validates and normalizes the query.
func (q *GetLeaderboardQuery) Validate() error {
	if q.Limit < 0 {
		return shared.NewDomainError("query", "GetLeaderboard", shared.ErrNegativeValue, "limit cannot be negative")
	}
	if q.Limit == 0 {
		q.Limit = shared.DefaultFeedLimit
	}
	if q.Limit > shared.MaxLimit {
		q.Limit = shared.MaxLimit
	}
	return nil
}

// LeaderboardEntryDTO is one ranking row.
type LeaderboardEntryDTO struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	TotalXP  int    `json:"total_xp"`
	Level    int    `json:"level"`
}

// GetLeaderboardResult contains the ranking.
type GetLeaderboardResult struct {
	Entries     []LeaderboardEntryDTO `json:"entries"`
	FromCache   bool                  `json:"-"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// GetLeaderboardHandler handles leaderboard reads.
type GetLeaderboardHandler struct {
	users user.Repository
	cache user.LeaderboardCache
	ttl   time.Duration
	log   *logger.Logger
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler. The cache
// may be nil, in which case every read hits the primary store.
func NewGetLeaderboardHandler(users user.Repository, cache user.LeaderboardCache, log *logger.Logger) *GetLeaderboardHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GetLeaderboardHandler{
		users: users,
		cache: cache,
		ttl:   DefaultLeaderboardTTL,
		log:   log.With(logger.Component("leaderboard")),
	}
}

// WithTTL overrides the cache freshness window.
func (h *GetLeaderboardHandler) WithTTL(ttl time.Duration) *GetLeaderboardHandler {
	if ttl > 0 {
		h.ttl = ttl
	}
	return h
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*GetLeaderboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if entries, err := h.cache.Get(ctx, q.Limit); err == nil {
			return &GetLeaderboardResult{
				Entries:     toLeaderboardDTOs(entries),
				FromCache:   true,
				GeneratedAt: time.Now().UTC(),
			}, nil
		} else if !shared.IsNotFound(err) {
			// A broken cache must not take the leaderboard down.
			h.log.Warn("leaderboard cache read failed", logger.Err(err))
		}
	}

	profiles, err := h.users.TopByXP(ctx, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	entries := make([]user.LeaderboardEntry, 0, len(profiles))
	for i, p := range profiles {
		entries = append(entries, user.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   p.ID,
			Username: p.Username,
			TotalXP:  p.TotalXP,
			Level:    p.Level,
		})
	}

	if h.cache != nil {
		if err := h.cache.Set(ctx, entries, h.ttl); err != nil {
			h.log.Warn("leaderboard cache write failed", logger.Err(err))
		}
	}

	return &GetLeaderboardResult{
		Entries:     toLeaderboardDTOs(entries),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func toLeaderboardDTOs(entries []user.LeaderboardEntry) []LeaderboardEntryDTO {
	out := make([]LeaderboardEntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, LeaderboardEntryDTO{
			Rank:     e.Rank,
			UserID:   e.UserID.String(),
			Username: e.Username,
			TotalXP:  e.TotalXP,
			Level:    e.Level,
		})
	}
	return out
}
