package query

import (
	"context"
	"fmt"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/activity"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ACTIVITY FEED QUERY
// Returns a page of the user's feed entries, newest first, with likes and
// comments inlined.
// ══════════════════════════════════════════════════════════════════════════════

// GetActivityFeedQuery contains the feed page parameters.
type GetActivityFeedQuery struct {
	// UserID is the feed owner.
	UserID string

	// Skip and Limit paginate the feed. Limit defaults to 20, capped at 100.
	Skip  int
	Limit int
}

// Validate validates the query.
func (q GetActivityFeedQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetActivityFeed", shared.ErrEmptyValue, "user_id is required")
	}
	if q.Skip < 0 {
		return shared.NewDomainError("query", "GetActivityFeed", shared.ErrNegativeValue, "skip cannot be negative")
	}
	if q.Limit < 0 {
		return shared.NewDomainError("query", "GetActivityFeed", shared.ErrNegativeValue, "limit cannot be negative")
	}
	return nil
}

// LikeDTO is one like on a feed entry.
type LikeDTO struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentDTO is one comment on a feed entry.
type CommentDTO struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	AvatarRef string    `json:"avatar_ref,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ActivityDTO is one feed entry.
type ActivityDTO struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	XPEarned    int            `json:"xp_earned"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Likes       []LikeDTO      `json:"likes"`
	Comments    []CommentDTO   `json:"comments"`
	LikeCount   int            `json:"like_count"`
	CreatedAt   time.Time      `json:"created_at"`
}

// GetActivityFeedResult is a feed page.
type GetActivityFeedResult struct {
	Entries []ActivityDTO `json:"entries"`
	Skip    int           `json:"skip"`
	Limit   int           `json:"limit"`
}

// GetActivityFeedHandler handles feed reads.
type GetActivityFeedHandler struct {
	feed *activity.Feed
}

// NewGetActivityFeedHandler creates a new GetActivityFeedHandler.
func NewGetActivityFeedHandler(feed *activity.Feed) *GetActivityFeedHandler {
	return &GetActivityFeedHandler{feed: feed}
}

// Handle executes the query.
func (h *GetActivityFeedHandler) Handle(ctx context.Context, q GetActivityFeedQuery) (*GetActivityFeedResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, err
	}

	page := shared.Pagination{Skip: q.Skip, Limit: q.Limit}.Normalize(shared.DefaultFeedLimit)

	acts, err := h.feed.GetActivityFeed(ctx, userID, page)
	if err != nil {
		return nil, fmt.Errorf("get_activity_feed: %w", err)
	}

	entries := make([]ActivityDTO, 0, len(acts))
	for _, act := range acts {
		entries = append(entries, toActivityDTO(act))
	}

	return &GetActivityFeedResult{
		Entries: entries,
		Skip:    page.Skip,
		Limit:   page.Limit,
	}, nil
}

func toActivityDTO(act *activity.Activity) ActivityDTO {
	likes := make([]LikeDTO, 0, len(act.Likes))
	for _, l := range act.Likes {
		likes = append(likes, LikeDTO{
			UserID:    l.UserID.String(),
			Username:  l.Username,
			CreatedAt: l.CreatedAt,
		})
	}

	comments := make([]CommentDTO, 0, len(act.Comments))
	for _, c := range act.Comments {
		comments = append(comments, CommentDTO{
			UserID:    c.UserID.String(),
			Username:  c.Username,
			AvatarRef: c.AvatarRef,
			Text:      c.Text,
			CreatedAt: c.CreatedAt,
		})
	}

	return ActivityDTO{
		ID:          act.ID,
		UserID:      act.UserID.String(),
		Type:        act.Type.String(),
		Title:       act.Title,
		Description: act.Description,
		XPEarned:    act.XPEarned,
		Metadata:    act.Metadata,
		Likes:       likes,
		Comments:    comments,
		LikeCount:   act.LikeCount(),
		CreatedAt:   act.CreatedAt,
	}
}
