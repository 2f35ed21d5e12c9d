// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/progression"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROGRESSION QUERY
// Returns a user's position on the level curve: level, XP inside the level,
// and how far the next level is. All curve figures are derived fresh from the
// stored lifetime total.
// ══════════════════════════════════════════════════════════════════════════════

// GetProgressionQuery contains the parameters for a progression lookup.
type GetProgressionQuery struct {
	// UserID is the user to look up.
	UserID string
}

// Validate validates the query.
func (q GetProgressionQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetProgression", shared.ErrEmptyValue, "user_id is required")
	}
	return nil
}

// ProgressionDTO is the progression read model.
type ProgressionDTO struct {
	// UserID is the user.
	UserID string `json:"user_id"`

	// Username is the display name.
	Username string `json:"username"`

	// TotalXP is the lifetime XP total.
	TotalXP int `json:"total_xp"`

	// Level is the current level derived from TotalXP.
	Level int `json:"level"`

	// CurrentLevelXP is the XP accumulated inside the current level.
	CurrentLevelXP int `json:"current_level_xp"`

	// XPToNextLevel is the XP still needed to reach the next level.
	XPToNextLevel int `json:"xp_to_next_level"`

	// TotalXPForNextLevel is the full cost of the next level.
	TotalXPForNextLevel int `json:"total_xp_for_next_level"`

	// ProgressPercent is progress through the current level, 0-100.
	ProgressPercent int `json:"progress_percent"`

	// GeneratedAt is when this read model was built.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetProgressionHandler handles progression lookups.
type GetProgressionHandler struct {
	users user.Repository
}

// NewGetProgressionHandler creates a new GetProgressionHandler.
func NewGetProgressionHandler(users user.Repository) *GetProgressionHandler {
	return &GetProgressionHandler{users: users}
}

// Handle executes the query.
func (h *GetProgressionHandler) Handle(ctx context.Context, q GetProgressionQuery) (*ProgressionDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, err
	}

	profile, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get_progression: failed to get user: %w", err)
	}

	totalXP := profile.TotalXP
	if totalXP < 0 {
		totalXP = 0
	}
	progress := progression.LevelFromTotalXP(totalXP)

	return &ProgressionDTO{
		UserID:              profile.ID.String(),
		Username:            profile.Username,
		TotalXP:             totalXP,
		Level:               progress.Level,
		CurrentLevelXP:      progress.CurrentLevelXP,
		XPToNextLevel:       progress.XPToNextLevel(),
		TotalXPForNextLevel: progress.TotalXPForNextLevel,
		ProgressPercent:     progress.ProgressPercent(),
		GeneratedAt:         time.Now().UTC(),
	}, nil
}
