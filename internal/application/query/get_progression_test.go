package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
)

const testUserID = "3f8a2c1e-9b4d-4e6f-8a1b-2c3d4e5f6a7b"

type fakeUserRepo struct {
	byID  map[shared.UserID]*user.Profile
	top   []*user.Profile
	calls int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[shared.UserID]*user.Profile)}
}

func (r *fakeUserRepo) Create(_ context.Context, p *user.Profile) error {
	r.byID[p.ID] = p
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, userID shared.UserID) (*user.Profile, error) {
	p, ok := r.byID[userID]
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return p, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.Profile, error) {
	for _, p := range r.byID {
		if p.Email == email {
			return p, nil
		}
	}
	return nil, shared.ErrUserNotFound
}

func (r *fakeUserRepo) TopByXP(_ context.Context, limit int) ([]*user.Profile, error) {
	r.calls++
	if limit > len(r.top) {
		limit = len(r.top)
	}
	return r.top[:limit], nil
}

func TestGetProgression(t *testing.T) {
	repo := newFakeUserRepo()
	repo.byID[shared.UserID(testUserID)] = &user.Profile{
		ID:       shared.UserID(testUserID),
		Username: "alice",
		TotalXP:  800,
		Level:    2,
	}

	h := NewGetProgressionHandler(repo)
	dto, err := h.Handle(context.Background(), GetProgressionQuery{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, "alice", dto.Username)
	assert.Equal(t, 800, dto.TotalXP)
	assert.Equal(t, 2, dto.Level)
	// 800 total: 500 spent on level 2, 300 into the 600-point level.
	assert.Equal(t, 300, dto.CurrentLevelXP)
	assert.Equal(t, 300, dto.XPToNextLevel)
	assert.Equal(t, 600, dto.TotalXPForNextLevel)
	assert.Equal(t, 50, dto.ProgressPercent)
}

func TestGetProgression_NegativeStoredXPReadsAsZero(t *testing.T) {
	repo := newFakeUserRepo()
	repo.byID[shared.UserID(testUserID)] = &user.Profile{
		ID:       shared.UserID(testUserID),
		Username: "alice",
		TotalXP:  -50,
	}

	h := NewGetProgressionHandler(repo)
	dto, err := h.Handle(context.Background(), GetProgressionQuery{UserID: testUserID})
	require.NoError(t, err)

	assert.Equal(t, 0, dto.TotalXP)
	assert.Equal(t, 1, dto.Level)
	assert.Equal(t, 500, dto.XPToNextLevel)
}

func TestGetProgression_UserNotFound(t *testing.T) {
	h := NewGetProgressionHandler(newFakeUserRepo())

	_, err := h.Handle(context.Background(), GetProgressionQuery{UserID: testUserID})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

type fakeLeaderboardCache struct {
	entries []user.LeaderboardEntry
	sets    int
}

func (c *fakeLeaderboardCache) Get(_ context.Context, limit int) ([]user.LeaderboardEntry, error) {
	if c.entries == nil {
		return nil, shared.NewDomainError("cache", "Get", shared.ErrNotFound, "cache miss")
	}
	if limit > len(c.entries) {
		limit = len(c.entries)
	}
	return c.entries[:limit], nil
}

func (c *fakeLeaderboardCache) Set(_ context.Context, entries []user.LeaderboardEntry, _ time.Duration) error {
	c.entries = entries
	c.sets++
	return nil
}

func TestGetLeaderboard_CacheAside(t *testing.T) {
	repo := newFakeUserRepo()
	repo.top = []*user.Profile{
		{ID: shared.UserID(testUserID), Username: "alice", TotalXP: 1200, Level: 3},
		{ID: "7b6a5f4e-3d2c-4b1a-8f6e-9d4b1e2c8a3f", Username: "bob", TotalXP: 500, Level: 2},
	}
	cache := &fakeLeaderboardCache{}
	h := NewGetLeaderboardHandler(repo, cache, nil)

	// Miss: computed from the store and written back.
	res, err := h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.False(t, res.FromCache)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, "alice", res.Entries[0].Username)
	assert.Equal(t, 2, res.Entries[1].Rank)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 1, repo.calls)

	// Hit: served without touching the store again.
	res, err = h.Handle(context.Background(), GetLeaderboardQuery{Limit: 10})
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, 1, repo.calls)
}

func TestGetLeaderboard_LimitNormalization(t *testing.T) {
	q := GetLeaderboardQuery{Limit: 0}
	require.NoError(t, q.Validate())
	assert.Equal(t, shared.DefaultFeedLimit, q.Limit)

	q = GetLeaderboardQuery{Limit: 500}
	require.NoError(t, q.Validate())
	assert.Equal(t, shared.MaxLimit, q.Limit)

	q = GetLeaderboardQuery{Limit: -1}
	assert.Error(t, q.Validate())
}
