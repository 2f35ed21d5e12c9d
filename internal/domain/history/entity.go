// Package history maintains the time-bucketed XP projections: one record
// per (user, period, period start) holding a snapshot of the user's total
// XP and level plus the list of sources that contributed inside the window.
package history

import (
	"time"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
	"github.com/skilltrek/skilltrek-hub/pkg/timeutil"
)

// Source is one XP contribution inside a bucket's window.
type Source struct {
	// Type is the action that earned the XP (section_completion, ...).
	Type string `json:"type"`

	// Amount is the XP earned by this contribution.
	Amount int `json:"amount"`

	// Title names the course, section, or quiz that produced the XP.
	Title string `json:"title,omitempty"`

	// SourceID references the producing entity.
	SourceID string `json:"id,omitempty"`
}

// Record is one persisted history bucket. At most one record exists per
// (user, period, period start); it is created lazily on the first award
// inside the window and updated in place until the window rolls over.
type Record struct {
	ID     string
	UserID shared.UserID

	// XP is the user's total XP as of the last update in this window.
	XP int

	// Level is the level snapshot matching XP.
	Level int

	// Period is the bucketing window type.
	Period timeutil.Period

	// PeriodStart is the canonical start of the window this record covers.
	PeriodStart time.Time

	// Sources lists contributions in arrival order.
	Sources []Source

	// UpdatedAt is the time of the last snapshot write.
	UpdatedAt time.Time
}

// AppendSource records one more contribution in this bucket.
func (r *Record) AppendSource(s Source) {
	r.Sources = append(r.Sources, s)
}

// EarnedInWindow sums the source amounts, i.e. the XP earned inside this
// bucket's window (as opposed to XP, the lifetime snapshot).
func (r *Record) EarnedInWindow() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Amount
	}
	return total
}
