package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/progression"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/internal/domain/user"
)

// UserRepository persists profiles in the users table. The same table holds
// the denormalized XP totals, so this type also implements the progression
// store: SaveProgression is one UPDATE against the profile row.
type UserRepository struct {
	conn *Connection
}

// Compile-time interface checks.
var (
	_ user.Repository   = (*UserRepository)(nil)
	_ progression.Store = (*UserRepository)(nil)
)

// NewUserRepository creates a new UserRepository.
func NewUserRepository(conn *Connection) *UserRepository {
	return &UserRepository{conn: conn}
}

// Create persists a new profile.
func (r *UserRepository) Create(ctx context.Context, p *user.Profile) error {
	query := `
		INSERT INTO users (id, email, username, password_hash, avatar_ref, total_xp, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		p.ID.String(),
		strings.ToLower(p.Email),
		p.Username,
		p.PasswordHash,
		p.AvatarRef,
		p.TotalXP,
		p.Level,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrUserExists
		}
		return shared.WrapError("user", "Create", shared.ErrPersistence, "failed to insert profile", err)
	}

	return nil
}

// GetByID returns a profile by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID shared.UserID) (*user.Profile, error) {
	return r.getByField(ctx, "id", userID.String())
}

// GetByEmail returns a profile by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.Profile, error) {
	return r.getByField(ctx, "email", strings.ToLower(email))
}

func (r *UserRepository) getByField(ctx context.Context, field, value string) (*user.Profile, error) {
	query := fmt.Sprintf(`
		SELECT id, email, username, password_hash, avatar_ref, total_xp, level, created_at, updated_at
		FROM users
		WHERE %s = $1
	`, field)

	var p user.Profile
	var id string
	err := r.conn.QueryRow(ctx, query, value).Scan(
		&id,
		&p.Email,
		&p.Username,
		&p.PasswordHash,
		&p.AvatarRef,
		&p.TotalXP,
		&p.Level,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, shared.WrapError("user", "Get", shared.ErrPersistence, "failed to query profile", err)
	}

	p.ID = shared.UserID(id)
	return &p, nil
}

// TopByXP returns up to limit profiles ordered by lifetime XP descending.
func (r *UserRepository) TopByXP(ctx context.Context, limit int) ([]*user.Profile, error) {
	query := `
		SELECT id, email, username, password_hash, avatar_ref, total_xp, level, created_at, updated_at
		FROM users
		ORDER BY total_xp DESC, created_at ASC
		LIMIT $1
	`

	rows, err := r.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, shared.WrapError("user", "TopByXP", shared.ErrPersistence, "failed to query leaderboard", err)
	}
	defer rows.Close()

	var out []*user.Profile
	for rows.Next() {
		var p user.Profile
		var id string
		if err := rows.Scan(
			&id,
			&p.Email,
			&p.Username,
			&p.PasswordHash,
			&p.AvatarRef,
			&p.TotalXP,
			&p.Level,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, shared.WrapError("user", "TopByXP", shared.ErrPersistence, "failed to scan profile", err)
		}
		p.ID = shared.UserID(id)
		out = append(out, &p)
	}

	return out, rows.Err()
}

// GetProgression reads the XP pair off the profile row.
func (r *UserRepository) GetProgression(ctx context.Context, userID shared.UserID) (*progression.Record, error) {
	query := `
		SELECT id, username, total_xp, level, updated_at
		FROM users
		WHERE id = $1
	`

	var rec progression.Record
	var id string
	err := r.conn.QueryRow(ctx, query, userID.String()).Scan(
		&id,
		&rec.Username,
		&rec.TotalXP,
		&rec.Level,
		&rec.UpdatedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrUserNotFound
		}
		return nil, shared.WrapError("progression", "GetProgression", shared.ErrPersistence, "failed to query progression", err)
	}

	rec.UserID = shared.UserID(id)
	return &rec, nil
}

// SaveProgression writes the new XP pair. Exactly one UPDATE; the award
// transaction never retries.
func (r *UserRepository) SaveProgression(ctx context.Context, userID shared.UserID, totalXP, level int) error {
	query := `
		UPDATE users
		SET total_xp = $2, level = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, userID.String(), totalXP, level, time.Now().UTC())
	if err != nil {
		return shared.WrapError("progression", "SaveProgression", shared.ErrPersistence, "failed to update progression", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrUserNotFound
	}

	return nil
}
