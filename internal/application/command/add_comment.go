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
// ADD COMMENT COMMAND
// Appends a comment to an activity. The text rule (non-empty, at most 500
// characters) is a hard invariant enforced in the domain.
// ══════════════════════════════════════════════════════════════════════════════

// AddCommentCommand contains the data to comment on an activity.
type AddCommentCommand struct {
	// UserID is the commenting user.
	UserID string

	// ActivityID is the target activity.
	ActivityID string

	// Text is the comment body.
	Text string
}

// Validate validates the command.
func (c AddCommentCommand) Validate() error {
	if c.UserID == "" {
		return shared.NewDomainError("activity", "AddComment", shared.ErrEmptyValue, "user_id is required")
	}
	if c.ActivityID == "" {
		return shared.NewDomainError("activity", "AddComment", shared.ErrEmptyValue, "activity_id is required")
	}
	return activity.ValidateCommentText(c.Text)
}

// AddCommentResult reports the appended comment.
type AddCommentResult struct {
	ActivityID   string
	CommentCount int
	Comment      activity.Comment
}

// AddCommentHandler handles the AddCommentCommand.
type AddCommentHandler struct {
	users user.Repository
	feed  *activity.Feed
	log   *logger.Logger
}

// NewAddCommentHandler creates a new AddCommentHandler.
func NewAddCommentHandler(users user.Repository, feed *activity.Feed, log *logger.Logger) *AddCommentHandler {
	if log == nil {
		log = logger.Default()
	}
	return &AddCommentHandler{
		users: users,
		feed:  feed,
		log:   log.With(logger.Component("add_comment")),
	}
}

// Handle executes the add comment command.
func (h *AddCommentHandler) Handle(ctx context.Context, cmd AddCommentCommand) (*AddCommentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_comment: validation failed: %w", err)
	}

	userID, err := shared.NewUserID(cmd.UserID)
	if err != nil {
		return nil, err
	}

	profile, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("add_comment: failed to get user: %w", err)
	}

	act, err := h.feed.AddComment(ctx, cmd.ActivityID, userID, profile.Username, profile.AvatarRef, cmd.Text)
	if err != nil {
		return nil, err
	}

	var appended activity.Comment
	for i := len(act.Comments) - 1; i >= 0; i-- {
		if act.Comments[i].UserID == userID {
			appended = act.Comments[i]
			break
		}
	}

	h.log.Debug("comment added",
		logger.ActivityID(cmd.ActivityID),
		logger.UserID(cmd.UserID),
	)

	return &AddCommentResult{
		ActivityID:   act.ID,
		CommentCount: act.CommentCount(),
		Comment:      appended,
	}, nil
}
