// Package activity contains the social feed entities and business logic:
// one record per gamification event, plus the likes and comments attached
// to it. Records are append-mostly - after creation only engagement changes.
package activity

import (
	"strings"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// Type classifies a feed entry.
type Type string

const (
	TypeCourseCompletion  Type = "course_completion"
	TypeSectionCompletion Type = "section_completion"
	TypeLevelUp           Type = "level_up"
	TypeQuizCompletion    Type = "quiz_completion"
	TypeAchievement       Type = "achievement"
)

// IsValid checks if the type is one of the known feed entry types.
func (t Type) IsValid() bool {
	switch t {
	case TypeCourseCompletion, TypeSectionCompletion, TypeLevelUp, TypeQuizCompletion, TypeAchievement:
		return true
	}
	return false
}

// String returns the string representation.
func (t Type) String() string {
	return string(t)
}

// MaxCommentLength is the hard upper bound for comment text.
const MaxCommentLength = 500

// Like is one user's like on an activity. Unique per user within a record.
type Like struct {
	UserID    shared.UserID `json:"user_id"`
	Username  string        `json:"username"`
	CreatedAt time.Time     `json:"created_at"`
}

// Comment is one comment on an activity.
type Comment struct {
	UserID    shared.UserID `json:"user_id"`
	Username  string        `json:"username"`
	AvatarRef string        `json:"avatar_ref,omitempty"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
}

// ValidateCommentText enforces the comment invariant: non-empty after
// trimming and at most MaxCommentLength characters.
func ValidateCommentText(text string) error {
	if strings.TrimSpace(text) == "" {
		return shared.ErrEmptyComment
	}
	if len([]rune(text)) > MaxCommentLength {
		return shared.ErrCommentTooLong
	}
	return nil
}

// Activity is one persisted feed entry. Created once per qualifying event;
// never mutated afterwards except to flip a like or append a comment.
type Activity struct {
	ID          string
	UserID      shared.UserID
	Type        Type
	Title       string
	Description string

	// XPEarned is the XP the event granted (0 for level-ups).
	XPEarned int

	// Metadata carries free-form event context: course and section
	// identifiers, difficulty, counts.
	Metadata map[string]any

	Likes     []Like
	Comments  []Comment
	CreatedAt time.Time
}

// LikedBy reports whether the user already likes this activity.
func (a *Activity) LikedBy(userID shared.UserID) bool {
	for _, l := range a.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// ToggleLike flips the user's like: removes it when present, appends it
// otherwise. Returns true when the result is a like, false when it is an
// un-like. Toggling twice restores the original like set.
func (a *Activity) ToggleLike(userID shared.UserID, username string, now time.Time) bool {
	for i, l := range a.Likes {
		if l.UserID == userID {
			a.Likes = append(a.Likes[:i], a.Likes[i+1:]...)
			return false
		}
	}
	a.Likes = append(a.Likes, Like{UserID: userID, Username: username, CreatedAt: now})
	return true
}

// AddComment validates and appends a comment.
func (a *Activity) AddComment(userID shared.UserID, username, avatarRef, text string, now time.Time) error {
	if err := ValidateCommentText(text); err != nil {
		return err
	}
	a.Comments = append(a.Comments, Comment{
		UserID:    userID,
		Username:  username,
		AvatarRef: avatarRef,
		Text:      text,
		CreatedAt: now,
	})
	return nil
}

// LikeCount returns the number of likes.
func (a *Activity) LikeCount() int { return len(a.Likes) }

// CommentCount returns the number of comments.
func (a *Activity) CommentCount() int { return len(a.Comments) }
