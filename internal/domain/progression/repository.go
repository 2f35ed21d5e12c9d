package progression

import (
	"context"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// Record is one user's persisted progression state: the lifetime XP total
// and the level derived from it. Level is never stored inconsistently -
// every write recomputes it from TotalXP.
type Record struct {
	// UserID identifies the owning user.
	UserID shared.UserID

	// Username is carried for feed and leaderboard denormalization.
	Username shared.Username

	// TotalXP is the lifetime XP total. Monotonically non-decreasing:
	// awards only add.
	TotalXP int

	// Level is derived from TotalXP via the level curve.
	Level int

	// UpdatedAt is the time of the last progression write.
	UpdatedAt time.Time
}

// Store is the narrow view of the user profile store the ledger needs:
// get-by-key plus one atomic progression update.
type Store interface {
	// GetProgression returns the progression record for a user, or a
	// NotFound error when no such user exists.
	GetProgression(ctx context.Context, userID shared.UserID) (*Record, error)

	// SaveProgression persists the new (totalXP, level) pair as a single
	// atomic update.
	SaveProgression(ctx context.Context, userID shared.UserID, totalXP, level int) error
}

// IdempotencyStore remembers award event keys for a bounded window so a
// retried request cannot double-award the same logical event.
type IdempotencyStore interface {
	// MarkOnce records the key and reports whether this call was the first
	// to do so within the window.
	MarkOnce(ctx context.Context, key string) (bool, error)

	// Unmark releases a key so a later call can claim it again. Used to
	// compensate when the award behind a freshly-marked key failed to
	// persist.
	Unmark(ctx context.Context, key string) error
}
