package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/timeutil"
)

type bucketKey struct {
	userID shared.UserID
	period timeutil.Period
	start  time.Time
}

type fakeRepo struct {
	buckets map[bucketKey]*Record
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{buckets: make(map[bucketKey]*Record)}
}

func (r *fakeRepo) key(userID shared.UserID, period timeutil.Period, start time.Time) bucketKey {
	return bucketKey{userID: userID, period: period, start: start.UTC()}
}

func (r *fakeRepo) FindBucket(ctx context.Context, userID shared.UserID, period timeutil.Period, periodStart time.Time) (*Record, error) {
	rec, ok := r.buckets[r.key(userID, period, periodStart)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return rec, nil
}

func (r *fakeRepo) Create(ctx context.Context, rec *Record) error {
	r.buckets[r.key(rec.UserID, rec.Period, rec.PeriodStart)] = rec
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, rec *Record) error {
	r.buckets[r.key(rec.UserID, rec.Period, rec.PeriodStart)] = rec
	return nil
}

func (r *fakeRepo) List(ctx context.Context, userID shared.UserID, period timeutil.Period, limit int) ([]*Record, error) {
	var out []*Record
	for _, rec := range r.buckets {
		if rec.UserID == userID && rec.Period == period {
			out = append(out, rec)
		}
	}
	// Most recent first.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].PeriodStart.After(out[i].PeriodStart) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

const historyUser = shared.UserID("9a0b1c2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d")

func TestRecordXPEvent_SameDayProducesOneDailyBucket(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewTracker(repo, timeutil.DefaultWeekStart, nil)
	ctx := context.Background()

	morning := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 3, 14, 21, 30, 0, 0, time.UTC)

	require.NoError(t, tracker.RecordXPEvent(ctx, historyUser,
		Snapshot{TotalXP: 250, Level: 1}, 250,
		Source{Type: "section_completion", Amount: 250, Title: "Intro"}, morning))
	require.NoError(t, tracker.RecordXPEvent(ctx, historyUser,
		Snapshot{TotalXP: 500, Level: 2}, 250,
		Source{Type: "section_completion", Amount: 250, Title: "Basics"}, evening))

	daily, err := tracker.GetXPHistory(ctx, historyUser, timeutil.PeriodDaily, 10)
	require.NoError(t, err)
	require.Len(t, daily, 1, "same calendar day must reuse one bucket")

	rec := daily[0]
	assert.Equal(t, 500, rec.XP, "snapshot overwritten with post-award total")
	assert.Equal(t, 2, rec.Level)
	assert.Len(t, rec.Sources, 2)
	assert.Equal(t, 500, rec.EarnedInWindow())
}

func TestRecordXPEvent_WindowRolloverCreatesNewBucket(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewTracker(repo, timeutil.DefaultWeekStart, nil)
	ctx := context.Background()

	day1 := time.Date(2025, 3, 14, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 3, 15, 1, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.RecordXPEvent(ctx, historyUser,
		Snapshot{TotalXP: 250, Level: 1}, 250,
		Source{Type: "quiz_completion", Amount: 250}, day1))
	require.NoError(t, tracker.RecordXPEvent(ctx, historyUser,
		Snapshot{TotalXP: 500, Level: 2}, 250,
		Source{Type: "quiz_completion", Amount: 250}, day2))

	daily, err := tracker.GetXPHistory(ctx, historyUser, timeutil.PeriodDaily, 10)
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.True(t, daily[0].PeriodStart.After(daily[1].PeriodStart), "most recent first")

	// Both calls land in the same week and month.
	weekly, err := tracker.GetXPHistory(ctx, historyUser, timeutil.PeriodWeekly, 10)
	require.NoError(t, err)
	assert.Len(t, weekly, 1)
	assert.Len(t, weekly[0].Sources, 2)

	monthly, err := tracker.GetXPHistory(ctx, historyUser, timeutil.PeriodMonthly, 10)
	require.NoError(t, err)
	assert.Len(t, monthly, 1)
}

func TestRecordXPEvent_ZeroXPUpdatesSnapshotWithoutSource(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewTracker(repo, timeutil.DefaultWeekStart, nil)
	ctx := context.Background()
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	require.NoError(t, tracker.RecordXPEvent(ctx, historyUser,
		Snapshot{TotalXP: 500, Level: 2}, 0, Source{}, now))

	daily, err := tracker.GetXPHistory(ctx, historyUser, timeutil.PeriodDaily, 10)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, 500, daily[0].XP)
	assert.Empty(t, daily[0].Sources)
}

func TestRecordXPEvent_WeeklyHonorsConfiguredWeekStart(t *testing.T) {
	repo := newFakeRepo()
	tracker := NewTracker(repo, time.Monday, nil)
	ctx := context.Background()

	// Sunday 2025-03-16: with a Monday week start this belongs to the week
	// of 2025-03-10.
	sunday := time.Date(2025, 3, 16, 12, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.RecordXPEvent(ctx, historyUser,
		Snapshot{TotalXP: 100, Level: 1}, 100,
		Source{Type: "section_completion", Amount: 100}, sunday))

	weekly, err := tracker.GetXPHistory(ctx, historyUser, timeutil.PeriodWeekly, 10)
	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), weekly[0].PeriodStart)
}

func TestGetXPHistory_Validation(t *testing.T) {
	tracker := NewTracker(newFakeRepo(), timeutil.DefaultWeekStart, nil)

	_, err := tracker.GetXPHistory(context.Background(), historyUser, timeutil.Period("hourly"), 10)
	assert.True(t, shared.IsValidation(err))
}
