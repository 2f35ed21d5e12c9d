package query

import (
	"context"
	"fmt"
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/history"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET XP HISTORY QUERY
// Returns the bucketed XP chart for one period type, most recent bucket
// first. Buckets exist only for windows that saw at least one event.
// ══════════════════════════════════════════════════════════════════════════════

// GetXPHistoryQuery contains the history chart parameters.
type GetXPHistoryQuery struct {
	// UserID is the user whose history to read.
	UserID string

	// Period selects the bucketing window: daily, weekly, or monthly.
	Period string

	// Limit is the number of buckets to return (default 12).
	Limit int
}

// Validate validates the query.
func (q GetXPHistoryQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewDomainError("query", "GetXPHistory", shared.ErrEmptyValue, "user_id is required")
	}
	if _, err := timeutil.ParsePeriod(q.Period); err != nil {
		return err
	}
	return nil
}

// XPSourceDTO is one contribution inside a bucket.
type XPSourceDTO struct {
	Type     string `json:"type"`
	Amount   int    `json:"amount"`
	Title    string `json:"title,omitempty"`
	SourceID string `json:"id,omitempty"`
}

// XPHistoryBucketDTO is one chart point.
type XPHistoryBucketDTO struct {
	// PeriodStart is the canonical start of the bucket's window.
	PeriodStart time.Time `json:"period_start"`

	// XP and Level are the lifetime snapshot as of the last event in the
	// window.
	XP    int `json:"xp"`
	Level int `json:"level"`

	// EarnedInWindow is the XP earned inside this window.
	EarnedInWindow int `json:"earned_in_window"`

	// Sources lists the contributions, in arrival order.
	Sources []XPSourceDTO `json:"sources"`

	// UpdatedAt is the last write into this bucket.
	UpdatedAt time.Time `json:"updated_at"`
}

// GetXPHistoryResult is the history chart.
type GetXPHistoryResult struct {
	UserID  string               `json:"user_id"`
	Period  string               `json:"period"`
	Buckets []XPHistoryBucketDTO `json:"buckets"`
}

// GetXPHistoryHandler handles history chart reads.
type GetXPHistoryHandler struct {
	tracker *history.Tracker
}

// NewGetXPHistoryHandler creates a new GetXPHistoryHandler.
func NewGetXPHistoryHandler(tracker *history.Tracker) *GetXPHistoryHandler {
	return &GetXPHistoryHandler{tracker: tracker}
}

// Handle executes the query.
func (h *GetXPHistoryHandler) Handle(ctx context.Context, q GetXPHistoryQuery) (*GetXPHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	userID, err := shared.NewUserID(q.UserID)
	if err != nil {
		return nil, err
	}

	period, err := timeutil.ParsePeriod(q.Period)
	if err != nil {
		return nil, err
	}

	records, err := h.tracker.GetXPHistory(ctx, userID, period, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_xp_history: %w", err)
	}

	buckets := make([]XPHistoryBucketDTO, 0, len(records))
	for _, rec := range records {
		sources := make([]XPSourceDTO, 0, len(rec.Sources))
		for _, s := range rec.Sources {
			sources = append(sources, XPSourceDTO{
				Type:     s.Type,
				Amount:   s.Amount,
				Title:    s.Title,
				SourceID: s.SourceID,
			})
		}
		buckets = append(buckets, XPHistoryBucketDTO{
			PeriodStart:    rec.PeriodStart,
			XP:             rec.XP,
			Level:          rec.Level,
			EarnedInWindow: rec.EarnedInWindow(),
			Sources:        sources,
			UpdatedAt:      rec.UpdatedAt,
		})
	}

	return &GetXPHistoryResult{
		UserID:  q.UserID,
		Period:  period.String(),
		Buckets: buckets,
	}, nil
}
