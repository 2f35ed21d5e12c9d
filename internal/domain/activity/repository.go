package activity

import (
	"context"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// Repository persists feed entries and their engagement.
type Repository interface {
	// Create persists a new activity record.
	Create(ctx context.Context, act *Activity) error

	// GetByID returns an activity, or a NotFound error.
	GetByID(ctx context.Context, activityID string) (*Activity, error)

	// Update persists engagement changes (likes, comments) on an existing
	// record.
	Update(ctx context.Context, act *Activity) error

	// ListByUser returns the user's activities ordered by CreatedAt
	// descending, paginated by skip/limit.
	ListByUser(ctx context.Context, userID shared.UserID, page shared.Pagination) ([]*Activity, error)
}
