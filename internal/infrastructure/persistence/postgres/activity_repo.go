package postgres

import (
	"context"
	"encoding/json"

	"github.com/skilltrek/skilltrek-hub/internal/domain/activity"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// ActivityRepository persists feed entries. Likes, comments, and metadata
// live as JSONB documents on the activity row: engagement is always read
// and written together with its entry, never queried on its own.
type ActivityRepository struct {
	conn *Connection
}

var _ activity.Repository = (*ActivityRepository)(nil)

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(conn *Connection) *ActivityRepository {
	return &ActivityRepository{conn: conn}
}

// Create persists a new activity record.
func (r *ActivityRepository) Create(ctx context.Context, act *activity.Activity) error {
	metadata, likes, comments, err := marshalEngagement(act)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO activities (id, user_id, type, title, description, xp_earned, metadata, likes, comments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.conn.Exec(ctx, query,
		act.ID,
		act.UserID.String(),
		act.Type.String(),
		act.Title,
		act.Description,
		act.XPEarned,
		metadata,
		likes,
		comments,
		act.CreatedAt,
	)
	if err != nil {
		return shared.WrapError("activity", "Create", shared.ErrPersistence, "failed to insert activity", err)
	}

	return nil
}

// GetByID returns an activity with its engagement.
func (r *ActivityRepository) GetByID(ctx context.Context, activityID string) (*activity.Activity, error) {
	query := `
		SELECT id, user_id, type, title, description, xp_earned, metadata, likes, comments, created_at
		FROM activities
		WHERE id = $1
	`

	act, err := scanActivity(r.conn.QueryRow(ctx, query, activityID))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrActivityNotFound
		}
		return nil, shared.WrapError("activity", "GetByID", shared.ErrPersistence, "failed to query activity", err)
	}

	return act, nil
}

// Update persists engagement changes on an existing record.
func (r *ActivityRepository) Update(ctx context.Context, act *activity.Activity) error {
	_, likes, comments, err := marshalEngagement(act)
	if err != nil {
		return err
	}

	query := `
		UPDATE activities
		SET likes = $2, comments = $3
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, act.ID, likes, comments)
	if err != nil {
		return shared.WrapError("activity", "Update", shared.ErrPersistence, "failed to update activity", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrActivityNotFound
	}

	return nil
}

// ListByUser returns the user's activities newest first.
func (r *ActivityRepository) ListByUser(ctx context.Context, userID shared.UserID, page shared.Pagination) ([]*activity.Activity, error) {
	query := `
		SELECT id, user_id, type, title, description, xp_earned, metadata, likes, comments, created_at
		FROM activities
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), page.Limit, page.Skip)
	if err != nil {
		return nil, shared.WrapError("activity", "ListByUser", shared.ErrPersistence, "failed to query activities", err)
	}
	defer rows.Close()

	var out []*activity.Activity
	for rows.Next() {
		act, err := scanActivity(rows)
		if err != nil {
			return nil, shared.WrapError("activity", "ListByUser", shared.ErrPersistence, "failed to scan activity", err)
		}
		out = append(out, act)
	}

	return out, rows.Err()
}

// rowScanner is satisfied by pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanActivity(row rowScanner) (*activity.Activity, error) {
	var act activity.Activity
	var userID, actType string
	var metadata, likes, comments []byte

	if err := row.Scan(
		&act.ID,
		&userID,
		&actType,
		&act.Title,
		&act.Description,
		&act.XPEarned,
		&metadata,
		&likes,
		&comments,
		&act.CreatedAt,
	); err != nil {
		return nil, err
	}

	act.UserID = shared.UserID(userID)
	act.Type = activity.Type(actType)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &act.Metadata); err != nil {
			return nil, err
		}
	}
	if len(likes) > 0 {
		if err := json.Unmarshal(likes, &act.Likes); err != nil {
			return nil, err
		}
	}
	if len(comments) > 0 {
		if err := json.Unmarshal(comments, &act.Comments); err != nil {
			return nil, err
		}
	}

	return &act, nil
}

func marshalEngagement(act *activity.Activity) (metadata, likes, comments []byte, err error) {
	meta := act.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if metadata, err = json.Marshal(meta); err != nil {
		return nil, nil, nil, shared.WrapError("activity", "Marshal", shared.ErrPersistence, "failed to marshal metadata", err)
	}

	likeList := act.Likes
	if likeList == nil {
		likeList = []activity.Like{}
	}
	if likes, err = json.Marshal(likeList); err != nil {
		return nil, nil, nil, shared.WrapError("activity", "Marshal", shared.ErrPersistence, "failed to marshal likes", err)
	}

	commentList := act.Comments
	if commentList == nil {
		commentList = []activity.Comment{}
	}
	if comments, err = json.Marshal(commentList); err != nil {
		return nil, nil, nil, shared.WrapError("activity", "Marshal", shared.ErrPersistence, "failed to marshal comments", err)
	}

	return metadata, likes, comments, nil
}
