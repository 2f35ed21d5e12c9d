// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/activity"
	"github.com/skilltrek/skilltrek-hub/internal/domain/course"
	"github.com/skilltrek/skilltrek-hub/internal/domain/history"
	"github.com/skilltrek/skilltrek-hub/internal/domain/progression"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE SECTION COMMAND
// The core write path: marks a section done, awards section XP, and when that
// was the course's last open section, awards the course-completion bonus in
// the same request. Every award fans out to the activity feed and the XP
// history buckets.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteSectionCommand contains the data to complete a course section.
type CompleteSectionCommand struct {
	// UserID is the learner completing the section.
	UserID string

	// CourseID identifies the course.
	CourseID string

	// SectionID identifies the section within the course.
	SectionID string

	// Timestamp is when the completion occurred (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c CompleteSectionCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("progression", "CompleteSection", shared.ErrEmptyValue, "user_id is required")
	}
	if c.CourseID == "" {
		return shared.NewDomainError("progression", "CompleteSection", shared.ErrEmptyValue, "course_id is required")
	}
	if c.SectionID == "" {
		return shared.NewDomainError("progression", "CompleteSection", shared.ErrEmptyValue, "section_id is required")
	}
	return nil
}

// CompleteSectionResult contains the outcome of a section completion.
type CompleteSectionResult struct {
	// UserID is the learner.
	UserID string

	// CourseID and SectionID echo the completed section.
	CourseID  string
	SectionID string

	// AlreadyCompleted is true when the section had been completed before;
	// no XP is awarded in that case.
	AlreadyCompleted bool

	// SectionXP is the XP awarded for the section itself.
	SectionXP int

	// CourseCompleted is true when this section closed out the course.
	CourseCompleted bool

	// CourseXP is the course-completion bonus (0 unless CourseCompleted).
	CourseXP int

	// TotalXP and Level are the learner's position after all awards.
	TotalXP int
	Level   int

	// XPToNextLevel and LevelProgressPercent describe progress through the
	// current level.
	XPToNextLevel        int
	LevelProgressPercent int

	// LeveledUp is true when any award in this request crossed a level
	// boundary.
	LeveledUp bool

	// CompletedAt is when the completion was recorded.
	CompletedAt time.Time
}

// CompleteSectionHandler handles the CompleteSectionCommand.
type CompleteSectionHandler struct {
	courses course.Repository
	ledger  *progression.Ledger
	feed    *activity.Feed
	log     *logger.Logger
}

// NewCompleteSectionHandler creates a new CompleteSectionHandler.
func NewCompleteSectionHandler(
	courses course.Repository,
	ledger *progression.Ledger,
	feed *activity.Feed,
	log *logger.Logger,
) *CompleteSectionHandler {
	if log == nil {
		log = logger.Default()
	}
	return &CompleteSectionHandler{
		courses: courses,
		ledger:  ledger,
		feed:    feed,
		log:     log.With(logger.Component("complete_section")),
	}
}

// Handle executes the complete section command.
func (h *CompleteSectionHandler) Handle(ctx context.Context, cmd CompleteSectionCommand) (*CompleteSectionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_section: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	result := &CompleteSectionResult{
		UserID:      cmd.UserID,
		CourseID:    cmd.CourseID,
		SectionID:   cmd.SectionID,
		CompletedAt: timestamp,
	}

	crs, err := h.courses.GetByID(ctx, userID, cmd.CourseID)
	if err != nil {
		return nil, fmt.Errorf("complete_section: failed to load course: %w", err)
	}

	sec := crs.Section(cmd.SectionID)
	if sec == nil {
		return nil, shared.NewDomainError("course", "CompleteSection", shared.ErrNotFound, "section not found in course")
	}

	if sec.IsCompleted {
		return h.snapshotResult(ctx, userID, result)
	}

	sectionKey := progression.EventKey(userID, cmd.CourseID, cmd.SectionID, progression.ActionSectionCompletion)
	sectionRes, err := h.ledger.AwardXP(ctx, userID, progression.ActionSectionCompletion, progression.AwardContext{
		EventKey: sectionKey,
	})
	if err != nil {
		// Another request claimed this event first: either a concurrent
		// completion, or an earlier attempt that awarded the XP and died
		// before the section row landed. Re-marking the row is idempotent
		// and converges both cases; the course bonus has its own fence.
		if shared.IsDuplicateEvent(err) {
			return h.repairAfterDuplicate(ctx, userID, result, timestamp)
		}
		return nil, err
	}

	// The durable completion marker lands only after the award persisted:
	// a failure between the two leaves a retryable request, not lost XP.
	crs, _, err = h.courses.MarkSectionCompleted(ctx, userID, cmd.CourseID, cmd.SectionID)
	if err != nil {
		return nil, fmt.Errorf("complete_section: failed to mark section: %w", err)
	}
	sec = crs.Section(cmd.SectionID)

	result.SectionXP = sectionRes.XPAwarded
	h.applyAward(result, sectionRes)

	snap := history.Snapshot{TotalXP: sectionRes.TotalXP, Level: sectionRes.Level}
	if _, err := h.feed.RecordSectionCompletion(ctx, userID, crs, sec, sectionRes.XPAwarded, snap, timestamp); err != nil {
		return nil, fmt.Errorf("complete_section: failed to record activity: %w", err)
	}

	if sectionRes.IsLevelUp {
		if _, err := h.feed.RecordLevelUp(ctx, userID, sectionRes.Level, timestamp); err != nil {
			return nil, fmt.Errorf("complete_section: failed to record level-up: %w", err)
		}
	}

	if crs.IsComplete() {
		if err := h.awardCourseCompletion(ctx, userID, crs, result, timestamp); err != nil {
			return nil, err
		}
	}

	h.log.Info("section completed",
		logger.UserID(cmd.UserID),
		logger.CourseID(cmd.CourseID),
		logger.SectionID(cmd.SectionID),
		logger.XPAmount(result.SectionXP+result.CourseXP),
		logger.Bool("course_completed", result.CourseCompleted),
	)

	return result, nil
}

// repairAfterDuplicate handles a section award whose event key was already
// claimed. It re-marks the section row (a no-op when the row exists) and,
// when that closes out the course, grants the fenced course bonus the dead
// attempt never reached. The response reports AlreadyCompleted either way.
func (h *CompleteSectionHandler) repairAfterDuplicate(
	ctx context.Context,
	userID shared.UserID,
	result *CompleteSectionResult,
	timestamp time.Time,
) (*CompleteSectionResult, error) {
	crs, _, err := h.courses.MarkSectionCompleted(ctx, userID, result.CourseID, result.SectionID)
	if err != nil {
		return nil, fmt.Errorf("complete_section: failed to mark section: %w", err)
	}

	if crs.IsComplete() {
		if err := h.awardCourseCompletion(ctx, userID, crs, result, timestamp); err != nil {
			return nil, err
		}
	}

	return h.snapshotResult(ctx, userID, result)
}

// awardCourseCompletion grants the course bonus when the final section just
// closed. A duplicate event key here means another request already granted
// the bonus; the section award still stands, so the result is returned
// without the bonus rather than failed.
func (h *CompleteSectionHandler) awardCourseCompletion(
	ctx context.Context,
	userID shared.UserID,
	crs *course.Course,
	result *CompleteSectionResult,
	timestamp time.Time,
) error {
	courseKey := progression.EventKey(userID, crs.ID, "", progression.ActionCourseCompletion)
	courseRes, err := h.ledger.AwardXP(ctx, userID, progression.ActionCourseCompletion, progression.AwardContext{
		EventKey: courseKey,
		Course:   crs,
	})
	if err != nil {
		if shared.IsDuplicateEvent(err) {
			return nil
		}
		return err
	}

	result.CourseCompleted = true
	result.CourseXP = courseRes.XPAwarded
	h.applyAward(result, courseRes)

	snap := history.Snapshot{TotalXP: courseRes.TotalXP, Level: courseRes.Level}
	if _, err := h.feed.RecordCourseCompletion(ctx, userID, crs, courseRes.XPAwarded, snap, timestamp); err != nil {
		return fmt.Errorf("complete_section: failed to record course activity: %w", err)
	}

	if courseRes.IsLevelUp {
		if _, err := h.feed.RecordLevelUp(ctx, userID, courseRes.Level, timestamp); err != nil {
			return fmt.Errorf("complete_section: failed to record level-up: %w", err)
		}
	}

	return nil
}

// applyAward copies the post-award position into the result.
func (h *CompleteSectionHandler) applyAward(result *CompleteSectionResult, res *progression.AwardResult) {
	result.TotalXP = res.TotalXP
	result.Level = res.Level
	result.XPToNextLevel = res.XPToNextLevel
	result.LevelProgressPercent = res.LevelProgressPercent
	if res.IsLevelUp {
		result.LeveledUp = true
	}
}

// snapshotResult fills the result with the learner's current position when
// nothing was awarded.
func (h *CompleteSectionHandler) snapshotResult(ctx context.Context, userID shared.UserID, result *CompleteSectionResult) (*CompleteSectionResult, error) {
	snap, err := h.ledger.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.AlreadyCompleted = true
	result.TotalXP = snap.TotalXP
	result.Level = snap.Level
	result.XPToNextLevel = snap.XPToNextLevel
	result.LevelProgressPercent = snap.LevelProgressPercent
	return result, nil
}
