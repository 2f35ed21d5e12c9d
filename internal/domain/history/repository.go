package history

import (
	"context"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/timeutil"
)

// Repository persists history buckets.
type Repository interface {
	// FindBucket returns the record for (userID, period, periodStart), or
	// a NotFound error when the window has no record yet.
	FindBucket(ctx context.Context, userID shared.UserID, period timeutil.Period, periodStart time.Time) (*Record, error)

	// Create persists a new bucket record.
	Create(ctx context.Context, rec *Record) error

	// Update persists snapshot and source changes on an existing bucket.
	Update(ctx context.Context, rec *Record) error

	// List returns up to limit records for the period, most recent first.
	List(ctx context.Context, userID shared.UserID, period timeutil.Period, limit int) ([]*Record, error)
}
