package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skilltrek/skilltrek-hub/internal/domain/course"
	"github.com/skilltrek/skilltrek-hub/internal/domain/history"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
)

// HistoryRecorder is the slice of the XP history tracker the feed needs.
type HistoryRecorder interface {
	RecordXPEvent(ctx context.Context, userID shared.UserID, snap history.Snapshot, xpEarned int, source history.Source, now time.Time) error
}

// Feed records gamification events as feed entries and manages their
// engagement. Recording an XP-bearing event also pushes the event into the
// history tracker, so one call sites both projections.
type Feed struct {
	repo    Repository
	history HistoryRecorder
	log     *logger.Logger
}

// NewFeed creates a Feed.
func NewFeed(repo Repository, hist HistoryRecorder, log *logger.Logger) *Feed {
	if log == nil {
		log = logger.Default()
	}
	return &Feed{
		repo:    repo,
		history: hist,
		log:     log.With(logger.Component("activity_feed")),
	}
}

// RecordCourseCompletion creates a course-completion feed entry and records
// the XP event into the history buckets.
func (f *Feed) RecordCourseCompletion(ctx context.Context, userID shared.UserID, c *course.Course, xpEarned int, snap history.Snapshot, now time.Time) (*Activity, error) {
	act := &Activity{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        TypeCourseCompletion,
		Title:       c.Title,
		Description: fmt.Sprintf("Completed the %s course", c.Title),
		XPEarned:    xpEarned,
		Metadata: map[string]any{
			"course_id":      c.ID,
			"sections_count": c.SectionCount(),
			"difficulty":     c.Difficulty,
		},
		CreatedAt: now,
	}
	return f.record(ctx, act, history.Source{
		Type:     TypeCourseCompletion.String(),
		Amount:   xpEarned,
		Title:    c.Title,
		SourceID: c.ID,
	}, snap, now)
}

// RecordSectionCompletion creates a section-completion feed entry and
// records the XP event into the history buckets.
func (f *Feed) RecordSectionCompletion(ctx context.Context, userID shared.UserID, c *course.Course, s *course.Section, xpEarned int, snap history.Snapshot, now time.Time) (*Activity, error) {
	act := &Activity{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        TypeSectionCompletion,
		Title:       s.Title,
		Description: fmt.Sprintf("Completed %s in %s", s.Title, c.Title),
		XPEarned:    xpEarned,
		Metadata: map[string]any{
			"course_id":    c.ID,
			"course_title": c.Title,
			"section_id":   s.ID,
		},
		CreatedAt: now,
	}
	return f.record(ctx, act, history.Source{
		Type:     TypeSectionCompletion.String(),
		Amount:   xpEarned,
		Title:    s.Title,
		SourceID: s.ID,
	}, snap, now)
}

// RecordQuizCompletion creates a quiz-completion feed entry and records the
// XP event into the history buckets.
func (f *Feed) RecordQuizCompletion(ctx context.Context, userID shared.UserID, quizID, quizTitle string, xpEarned int, snap history.Snapshot, now time.Time) (*Activity, error) {
	act := &Activity{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        TypeQuizCompletion,
		Title:       quizTitle,
		Description: fmt.Sprintf("Completed the %s quiz", quizTitle),
		XPEarned:    xpEarned,
		Metadata: map[string]any{
			"quiz_id": quizID,
		},
		CreatedAt: now,
	}
	return f.record(ctx, act, history.Source{
		Type:     TypeQuizCompletion.String(),
		Amount:   xpEarned,
		Title:    quizTitle,
		SourceID: quizID,
	}, snap, now)
}

// RecordLevelUp creates a level-up feed entry. Level-ups carry no XP of
// their own, so no history source is written.
func (f *Feed) RecordLevelUp(ctx context.Context, userID shared.UserID, newLevel int, now time.Time) (*Activity, error) {
	act := &Activity{
		ID:          uuid.New().String(),
		UserID:      userID,
		Type:        TypeLevelUp,
		Title:       fmt.Sprintf("Level %d", newLevel),
		Description: fmt.Sprintf("Reached Level %d", newLevel),
		XPEarned:    0,
		Metadata: map[string]any{
			"level": newLevel,
		},
		CreatedAt: now,
	}
	if err := f.repo.Create(ctx, act); err != nil {
		return nil, err
	}

	f.log.Info("activity recorded",
		logger.UserID(userID.String()),
		logger.ActivityID(act.ID),
		logger.ActionKind(act.Type.String()),
		logger.LevelField(newLevel),
	)
	return act, nil
}

func (f *Feed) record(ctx context.Context, act *Activity, source history.Source, snap history.Snapshot, now time.Time) (*Activity, error) {
	if err := f.repo.Create(ctx, act); err != nil {
		return nil, err
	}

	if act.XPEarned > 0 && f.history != nil {
		if err := f.history.RecordXPEvent(ctx, act.UserID, snap, act.XPEarned, source, now); err != nil {
			return nil, err
		}
	}

	f.log.Info("activity recorded",
		logger.UserID(act.UserID.String()),
		logger.ActivityID(act.ID),
		logger.ActionKind(act.Type.String()),
		logger.XPAmount(act.XPEarned),
	)
	return act, nil
}

// ToggleLike flips the user's like on an activity. Fails with NotFound when
// the activity does not exist; a repeated toggle simply flips the state
// back, it never errors.
func (f *Feed) ToggleLike(ctx context.Context, activityID string, userID shared.UserID, username string) (*Activity, error) {
	act, err := f.repo.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	liked := act.ToggleLike(userID, username, time.Now().UTC())
	if err := f.repo.Update(ctx, act); err != nil {
		return nil, err
	}

	f.log.Debug("like toggled",
		logger.ActivityID(activityID),
		logger.UserID(userID.String()),
		logger.Bool("liked", liked),
	)
	return act, nil
}

// AddComment appends a comment to an activity. The text invariant
// (non-empty, at most 500 characters) is enforced here as a hard rule.
func (f *Feed) AddComment(ctx context.Context, activityID string, userID shared.UserID, username, avatarRef, text string) (*Activity, error) {
	act, err := f.repo.GetByID(ctx, activityID)
	if err != nil {
		return nil, err
	}

	if err := act.AddComment(userID, username, avatarRef, text, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := f.repo.Update(ctx, act); err != nil {
		return nil, err
	}
	return act, nil
}

// GetUserActivities returns the user's own activities, newest first.
func (f *Feed) GetUserActivities(ctx context.Context, userID shared.UserID, page shared.Pagination) ([]*Activity, error) {
	return f.repo.ListByUser(ctx, userID, page.Normalize(shared.DefaultFeedLimit))
}

// GetActivityFeed returns the feed shown to the user. Today that is the
// user's own activities; follower fan-out is an extension point, not a
// feature of this feed.
func (f *Feed) GetActivityFeed(ctx context.Context, userID shared.UserID, page shared.Pagination) ([]*Activity, error) {
	return f.repo.ListByUser(ctx, userID, page.Normalize(shared.DefaultFeedLimit))
}
