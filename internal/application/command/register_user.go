package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
	"github.com/skilltrek/skilltrek-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER USER COMMAND
// Creates a profile at level 1 with zero XP. Passwords are hashed with bcrypt
// before anything touches storage.
// ══════════════════════════════════════════════════════════════════════════════

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// RegisterUserCommand contains the data to register a new user.
type RegisterUserCommand struct {
	Email    string
	Username string
	Password string

	// AvatarRef is an optional avatar reference (URL or storage key).
	AvatarRef string
}

// Validate validates the command.
func (c RegisterUserCommand) Validate() error {
	if err := user.ValidateEmail(c.Email); err != nil {
		return err
	}
	if _, err := shared.NewUsername(c.Username); err != nil {
		return err
	}
	if len(c.Password) < MinPasswordLength {
		return shared.NewDomainError("user", "Register", shared.ErrValidation,
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// RegisterUserResult contains the created profile's public fields.
type RegisterUserResult struct {
	UserID    string
	Email     string
	Username  string
	TotalXP   int
	Level     int
	CreatedAt time.Time
}

// RegisterUserHandler handles the RegisterUserCommand.
type RegisterUserHandler struct {
	users user.Repository
	log   *logger.Logger

	// bcryptCost lets tests lower the work factor.
	bcryptCost int
}

// NewRegisterUserHandler creates a new RegisterUserHandler.
func NewRegisterUserHandler(users user.Repository, log *logger.Logger) *RegisterUserHandler {
	if log == nil {
		log = logger.Default()
	}
	return &RegisterUserHandler{
		users:      users,
		log:        log.With(logger.Component("register_user")),
		bcryptCost: bcrypt.DefaultCost,
	}
}

// Handle executes the register user command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("register_user: validation failed: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))

	if _, err := h.users.GetByEmail(ctx, email); err == nil {
		return nil, shared.ErrUserExists
	} else if !shared.IsNotFound(err) {
		return nil, fmt.Errorf("register_user: failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), h.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("register_user: failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	profile := &user.Profile{
		ID:           shared.UserID(uuid.New().String()),
		Email:        email,
		Username:     strings.TrimSpace(cmd.Username),
		PasswordHash: string(hash),
		AvatarRef:    cmd.AvatarRef,
		TotalXP:      0,
		Level:        1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.users.Create(ctx, profile); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.ErrUserExists
		}
		return nil, fmt.Errorf("register_user: failed to create profile: %w", err)
	}

	h.log.Info("user registered",
		logger.UserID(profile.ID.String()),
		logger.String("username", profile.Username),
	)

	return &RegisterUserResult{
		UserID:    profile.ID.String(),
		Email:     profile.Email,
		Username:  profile.Username,
		TotalXP:   profile.TotalXP,
		Level:     profile.Level,
		CreatedAt: profile.CreatedAt,
	}, nil
}
