package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
	"github.com/skilltrek/skilltrek-hub/pkg/timeutil"
)

// Snapshot is the user's post-award progression state recorded into each
// open bucket.
type Snapshot struct {
	TotalXP int
	Level   int
}

// Tracker maintains the three period projections. Buckets roll over lazily:
// the window is recomputed from the explicit "now" on every call, never
// from a background job or an internal clock.
type Tracker struct {
	repo      Repository
	weekStart time.Weekday
	log       *logger.Logger
}

// NewTracker creates a Tracker that anchors weekly windows on weekStart.
func NewTracker(repo Repository, weekStart time.Weekday, log *logger.Logger) *Tracker {
	if log == nil {
		log = logger.Default()
	}
	return &Tracker{
		repo:      repo,
		weekStart: weekStart,
		log:       log.With(logger.Component("xp_history")),
	}
}

// RecordXPEvent updates the daily, weekly, and monthly buckets for one XP
// event. For every period the open bucket's snapshot is overwritten with
// the current totals; the source entry is appended only when xpEarned > 0.
// A bucket that doesn't exist yet is created seeded with the snapshot.
func (t *Tracker) RecordXPEvent(ctx context.Context, userID shared.UserID, snap Snapshot, xpEarned int, source Source, now time.Time) error {
	for _, period := range timeutil.AllPeriods {
		if err := t.recordPeriod(ctx, userID, snap, xpEarned, source, period, now); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) recordPeriod(ctx context.Context, userID shared.UserID, snap Snapshot, xpEarned int, source Source, period timeutil.Period, now time.Time) error {
	periodStart := timeutil.PeriodStart(now, period, t.weekStart)

	rec, err := t.repo.FindBucket(ctx, userID, period, periodStart)
	switch {
	case err == nil:
		rec.XP = snap.TotalXP
		rec.Level = snap.Level
		rec.UpdatedAt = now
		if xpEarned > 0 {
			rec.AppendSource(source)
		}
		if err := t.repo.Update(ctx, rec); err != nil {
			return err
		}

	case shared.IsNotFound(err):
		rec = &Record{
			ID:          uuid.New().String(),
			UserID:      userID,
			XP:          snap.TotalXP,
			Level:       snap.Level,
			Period:      period,
			PeriodStart: periodStart,
			UpdatedAt:   now,
		}
		if xpEarned > 0 {
			rec.AppendSource(source)
		}
		if err := t.repo.Create(ctx, rec); err != nil {
			return err
		}

	default:
		return err
	}

	t.log.Debug("history bucket updated",
		logger.UserID(userID.String()),
		logger.PeriodField(period.String()),
		logger.String("period_start", timeutil.FormatDateStr(periodStart)),
		logger.XPAmount(xpEarned),
	)
	return nil
}

// GetXPHistory returns up to limit buckets for one period, most recent
// first. A non-positive limit falls back to the default chart depth.
func (t *Tracker) GetXPHistory(ctx context.Context, userID shared.UserID, period timeutil.Period, limit int) ([]*Record, error) {
	if !period.IsValid() {
		return nil, shared.ErrInvalidPeriod
	}
	if limit <= 0 {
		limit = shared.DefaultHistoryLimit
	}
	return t.repo.List(ctx, userID, period, limit)
}
