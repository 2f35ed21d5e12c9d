// Package user holds the account profile: identity, credentials and the
// denormalized XP totals shown on leaderboards.
package user

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// Profile is a registered account. TotalXP and Level mirror the progression
// store so that profile and leaderboard reads need no join.
type Profile struct {
	ID           shared.UserID
	Email        string
	Username     string
	PasswordHash string
	AvatarRef    string
	TotalXP      int
	Level        int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks the profile's own invariants. The password hash is set by
// the application layer and is not validated here.
func (p *Profile) Validate() error {
	if !p.ID.IsValid() {
		return shared.NewDomainError("user", "Validate", shared.ErrInvalidID, "invalid user ID format")
	}
	if err := ValidateEmail(p.Email); err != nil {
		return err
	}
	if !shared.Username(p.Username).IsValid() {
		return shared.NewDomainError("user", "Validate", shared.ErrInvalidFormat, "username must be 1-30 characters")
	}
	return nil
}

// ValidateEmail checks the address is non-empty and parseable.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return shared.NewDomainError("user", "ValidateEmail", shared.ErrEmptyValue, "email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return shared.NewDomainError("user", "ValidateEmail", shared.ErrInvalidFormat, "invalid email address")
	}
	return nil
}

// LeaderboardEntry is one row of the XP ranking.
type LeaderboardEntry struct {
	Rank     int
	UserID   shared.UserID
	Username string
	TotalXP  int
	Level    int
}

// LeaderboardCache holds a short-lived copy of the computed ranking so the
// hot leaderboard read does not hit the primary store on every request.
// Get returns a NotFound error on a cache miss.
type LeaderboardCache interface {
	Get(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	Set(ctx context.Context, entries []LeaderboardEntry, ttl time.Duration) error
}

// Repository persists profiles.
type Repository interface {
	// Create persists a new profile. Returns an AlreadyExists error when
	// the email or username is taken.
	Create(ctx context.Context, p *Profile) error

	// GetByID returns a profile, or a NotFound error.
	GetByID(ctx context.Context, userID shared.UserID) (*Profile, error)

	// GetByEmail returns a profile by email, or a NotFound error.
	GetByEmail(ctx context.Context, email string) (*Profile, error)

	// TopByXP returns up to limit profiles ordered by TotalXP descending.
	TopByXP(ctx context.Context, limit int) ([]*Profile, error)
}
