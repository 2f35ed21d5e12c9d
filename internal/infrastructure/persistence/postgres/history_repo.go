package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/history"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/timeutil"
)

// HistoryRepository persists XP history buckets. The unique constraint on
// (user_id, period, period_start) backs the one-bucket-per-window rule.
type HistoryRepository struct {
	conn *Connection
}

var _ history.Repository = (*HistoryRepository)(nil)

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(conn *Connection) *HistoryRepository {
	return &HistoryRepository{conn: conn}
}

// FindBucket returns the record for one window.
func (r *HistoryRepository) FindBucket(ctx context.Context, userID shared.UserID, period timeutil.Period, periodStart time.Time) (*history.Record, error) {
	query := `
		SELECT id, user_id, xp, level, period, period_start, sources, updated_at
		FROM xp_history
		WHERE user_id = $1 AND period = $2 AND period_start = $3
	`

	rec, err := scanHistoryRecord(r.conn.QueryRow(ctx, query, userID.String(), period.String(), periodStart))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("history", "FindBucket", shared.ErrNotFound, "history bucket not found")
		}
		return nil, shared.WrapError("history", "FindBucket", shared.ErrPersistence, "failed to query bucket", err)
	}

	return rec, nil
}

// Create persists a new bucket record.
func (r *HistoryRepository) Create(ctx context.Context, rec *history.Record) error {
	sources, err := marshalSources(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO xp_history (id, user_id, xp, level, period, period_start, sources, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.conn.Exec(ctx, query,
		rec.ID,
		rec.UserID.String(),
		rec.XP,
		rec.Level,
		rec.Period.String(),
		rec.PeriodStart,
		sources,
		rec.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			// A concurrent event created the bucket first.
			return shared.NewDomainError("history", "Create", shared.ErrAlreadyExists, "history bucket already exists")
		}
		return shared.WrapError("history", "Create", shared.ErrPersistence, "failed to insert bucket", err)
	}

	return nil
}

// Update persists snapshot and source changes on an existing bucket.
func (r *HistoryRepository) Update(ctx context.Context, rec *history.Record) error {
	sources, err := marshalSources(rec)
	if err != nil {
		return err
	}

	query := `
		UPDATE xp_history
		SET xp = $2, level = $3, sources = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := r.conn.Exec(ctx, query, rec.ID, rec.XP, rec.Level, sources, rec.UpdatedAt)
	if err != nil {
		return shared.WrapError("history", "Update", shared.ErrPersistence, "failed to update bucket", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.NewDomainError("history", "Update", shared.ErrNotFound, "history bucket not found")
	}

	return nil
}

// List returns up to limit records for the period, most recent first.
func (r *HistoryRepository) List(ctx context.Context, userID shared.UserID, period timeutil.Period, limit int) ([]*history.Record, error) {
	query := `
		SELECT id, user_id, xp, level, period, period_start, sources, updated_at
		FROM xp_history
		WHERE user_id = $1 AND period = $2
		ORDER BY period_start DESC
		LIMIT $3
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), period.String(), limit)
	if err != nil {
		return nil, shared.WrapError("history", "List", shared.ErrPersistence, "failed to query buckets", err)
	}
	defer rows.Close()

	var out []*history.Record
	for rows.Next() {
		rec, err := scanHistoryRecord(rows)
		if err != nil {
			return nil, shared.WrapError("history", "List", shared.ErrPersistence, "failed to scan bucket", err)
		}
		out = append(out, rec)
	}

	return out, rows.Err()
}

func scanHistoryRecord(row rowScanner) (*history.Record, error) {
	var rec history.Record
	var userID, period string
	var sources []byte

	if err := row.Scan(
		&rec.ID,
		&userID,
		&rec.XP,
		&rec.Level,
		&period,
		&rec.PeriodStart,
		&sources,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rec.UserID = shared.UserID(userID)
	rec.Period = timeutil.Period(period)

	if len(sources) > 0 {
		if err := json.Unmarshal(sources, &rec.Sources); err != nil {
			return nil, err
		}
	}

	return &rec, nil
}

func marshalSources(rec *history.Record) ([]byte, error) {
	sources := rec.Sources
	if sources == nil {
		sources = []history.Source{}
	}
	out, err := json.Marshal(sources)
	if err != nil {
		return nil, shared.WrapError("history", "Marshal", shared.ErrPersistence, "failed to marshal sources", err)
	}
	return out, nil
}
