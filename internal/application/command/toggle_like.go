package command

import (
	"context"
	"fmt"

	"github.com/skilltrek/skilltrek-hub/internal/domain/activity"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// TOGGLE LIKE COMMAND
// Flips the caller's like on an activity. Safe to repeat: each call flips the
// state, it never errors on a re-toggle.
// ══════════════════════════════════════════════════════════════════════════════

// ToggleLikeCommand contains the data to toggle a like.
type ToggleLikeCommand struct {
	// UserID is the user toggling the like.
	UserID string

	// ActivityID is the target activity.
	ActivityID string
}

// Validate validates the command.
func (c ToggleLikeCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("activity", "ToggleLike", shared.ErrEmptyValue, "user_id is required")
	}
	if c.ActivityID == "" {
		return shared.NewDomainError("activity", "ToggleLike", shared.ErrEmptyValue, "activity_id is required")
	}
	return nil
}

// ToggleLikeResult reports the new like state.
type ToggleLikeResult struct {
	ActivityID string

	// Liked is true when the toggle ended in a like, false on an un-like.
	Liked bool

	// LikeCount is the activity's like count after the toggle.
	LikeCount int
}

// ToggleLikeHandler handles the ToggleLikeCommand.
type ToggleLikeHandler struct {
	users user.Repository
	feed  *activity.Feed
	log   *logger.Logger
}

// NewToggleLikeHandler creates a new ToggleLikeHandler.
func NewToggleLikeHandler(users user.Repository, feed *activity.Feed, log *logger.Logger) *ToggleLikeHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ToggleLikeHandler{
		users: users,
		feed:  feed,
		log:   log.With(logger.Component("toggle_like")),
	}
}

// Handle executes the toggle like command.
func (h *ToggleLikeHandler) Handle(ctx context.Context, cmd ToggleLikeCommand) (*ToggleLikeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("toggle_like: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	profile, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("toggle_like: failed to get user: %w", err)
	}

	act, err := h.feed.ToggleLike(ctx, cmd.ActivityID, userID, profile.Username)
	if err != nil {
		return nil, err
	}

	return &ToggleLikeResult{
		ActivityID: act.ID,
		Liked:      act.LikedBy(userID),
		LikeCount:  act.LikeCount(),
	}, nil
}
