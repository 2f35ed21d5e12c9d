// Package course holds the read model of authored courses consumed by the
// progression ledger: an ordered section list with completion flags. The
// authoring side owns everything else about a course; this package only
// decides completion.
package course

import (
	"context"

	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// Section is one unit of a course.
type Section struct {
	// ID is the section identifier within the course.
	ID string

	// Title is the section's display title.
	Title string

	// IsCompleted flips false to true exactly once when the learner
	// finishes the section.
	IsCompleted bool
}

// Course is an ordered list of sections plus display attributes.
type Course struct {
	// ID is the course identifier.
	ID string

	// Title is the course's display title.
	Title string

	// Difficulty is a free-form difficulty label from the authoring side.
	Difficulty string

	// Sections is the ordered section list.
	Sections []Section
}

// SectionCount returns the number of sections in the course.
func (c *Course) SectionCount() int {
	return len(c.Sections)
}

// Section returns the section with the given ID, or nil.
func (c *Course) Section(sectionID string) *Section {
	for i := range c.Sections {
		if c.Sections[i].ID == sectionID {
			return &c.Sections[i]
		}
	}
	return nil
}

// IsComplete reports whether every section of the course is completed.
// A course with no sections is never complete: completion cannot be
// vacuously satisfied.
func (c *Course) IsComplete() bool {
	if c == nil || len(c.Sections) == 0 {
		return false
	}
	for _, s := range c.Sections {
		if !s.IsCompleted {
			return false
		}
	}
	return true
}

// Repository is the narrow view of the course-authoring store this service
// needs: fetch a user's copy of a course and persist one section flag.
type Repository interface {
	// GetByID returns the course as enrolled for the given user.
	GetByID(ctx context.Context, userID shared.UserID, courseID string) (*Course, error)

	// MarkSectionCompleted flips the section's completion flag and returns
	// the updated course plus whether the section was already completed
	// before this call.
	MarkSectionCompleted(ctx context.Context, userID shared.UserID, courseID, sectionID string) (*Course, bool, error)
}
