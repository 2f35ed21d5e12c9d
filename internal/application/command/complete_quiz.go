package command

import (
	"context"
	"fmt"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/activity"
	"github.com/skilltrek/skilltrek-hub/internal/domain/history"
	"github.com/skilltrek/skilltrek-hub/internal/domain/progression"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE QUIZ COMMAND
// Awards the flat quiz XP, once per (user, quiz). Quizzes do not take part in
// course completion detection.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteQuizCommand contains the data to record a passed quiz.
type CompleteQuizCommand struct {
	// UserID is the learner who passed the quiz.
	UserID string

	// QuizID identifies the quiz.
	QuizID string

	// QuizTitle is the display title used for the feed entry.
	QuizTitle string

	// Timestamp is when the quiz was passed (defaults to now if zero).
	Timestamp time.Time
}

// Validate validates the command.
func (c CompleteQuizCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("progression", "CompleteQuiz", shared.ErrEmptyValue, "user_id is required")
	}
	if c.QuizID == "" {
		return shared.NewDomainError("progression", "CompleteQuiz", shared.ErrEmptyValue, "quiz_id is required")
	}
	return nil
}

// CompleteQuizResult contains the outcome of a quiz completion.
type CompleteQuizResult struct {
	UserID string
	QuizID string

	// AlreadyCompleted is true when the quiz was awarded before.
	AlreadyCompleted bool

	// XPAwarded is the quiz XP (0 when AlreadyCompleted).
	XPAwarded int

	TotalXP              int
	Level                int
	XPToNextLevel        int
	LevelProgressPercent int
	LeveledUp            bool

	CompletedAt time.Time
}

// CompleteQuizHandler handles the CompleteQuizCommand.
type CompleteQuizHandler struct {
	ledger *progression.Ledger
	feed   *activity.Feed
	log    *logger.Logger
}

// NewCompleteQuizHandler creates a new CompleteQuizHandler.
func NewCompleteQuizHandler(ledger *progression.Ledger, feed *activity.Feed, log *logger.Logger) *CompleteQuizHandler {
	if log == nil {
		log = logger.Default()
	}
	return &CompleteQuizHandler{
		ledger: ledger,
		feed:   feed,
		log:    log.With(logger.Component("complete_quiz")),
	}
}

// Handle executes the complete quiz command.
func (h *CompleteQuizHandler) Handle(ctx context.Context, cmd CompleteQuizCommand) (*CompleteQuizResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("complete_quiz: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	timestamp := cmd.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	result := &CompleteQuizResult{
		UserID:      cmd.UserID,
		QuizID:      cmd.QuizID,
		CompletedAt: timestamp,
	}

	quizKey := progression.EventKey(userID, "", cmd.QuizID, progression.ActionQuizCompletion)
	res, err := h.ledger.AwardXP(ctx, userID, progression.ActionQuizCompletion, progression.AwardContext{
		EventKey: quizKey,
	})
	if err != nil {
		if shared.IsDuplicateEvent(err) {
			snap, snapErr := h.ledger.Snapshot(ctx, userID)
			if snapErr != nil {
				return nil, snapErr
			}
			result.AlreadyCompleted = true
			result.TotalXP = snap.TotalXP
			result.Level = snap.Level
			result.XPToNextLevel = snap.XPToNextLevel
			result.LevelProgressPercent = snap.LevelProgressPercent
			return result, nil
		}
		return nil, err
	}

	result.XPAwarded = res.XPAwarded
	result.TotalXP = res.TotalXP
	result.Level = res.Level
	result.XPToNextLevel = res.XPToNextLevel
	result.LevelProgressPercent = res.LevelProgressPercent
	result.LeveledUp = res.IsLevelUp

	title := cmd.QuizTitle
	if title == "" {
		title = cmd.QuizID
	}
	snap := history.Snapshot{TotalXP: res.TotalXP, Level: res.Level}
	if _, err := h.feed.RecordQuizCompletion(ctx, userID, cmd.QuizID, title, res.XPAwarded, snap, timestamp); err != nil {
		return nil, fmt.Errorf("complete_quiz: failed to record activity: %w", err)
	}

	if res.IsLevelUp {
		if _, err := h.feed.RecordLevelUp(ctx, userID, res.Level, timestamp); err != nil {
			return nil, fmt.Errorf("complete_quiz: failed to record level-up: %w", err)
		}
	}

	h.log.Info("quiz completed",
		logger.UserID(cmd.UserID),
		logger.String("quiz_id", cmd.QuizID),
		logger.XPAmount(res.XPAwarded),
	)

	return result, nil
}
