package progression

import (
	"fmt"
	"strings"

	"github.com/skilltrek/skilltrek-hub/internal/domain/course"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// ActionKind is the closed set of XP-earning actions. Every kind carries its
// own award rule in AwardAmount; an unknown kind is an error, never a silent
// zero.
type ActionKind string

const (
	// ActionSectionCompletion - learner finished one course section.
	ActionSectionCompletion ActionKind = "section_completion"

	// ActionQuizCompletion - learner passed a quiz. Awards the same flat
	// amount as a section by policy; kept as a distinct kind because the
	// two do not coincide in every flow.
	ActionQuizCompletion ActionKind = "quiz_completion"

	// ActionCourseCompletion - every section of a course is complete.
	ActionCourseCompletion ActionKind = "course_completion"

	// ActionLevelUp - informational only, emitted when a level crossing is
	// detected. Awards no XP itself.
	ActionLevelUp ActionKind = "level_up"
)

// Flat award amounts and the course-completion bonus parameters.
const (
	XPSectionCompletion = 250
	XPQuizCompletion    = 250

	CourseCompletionBaseXP       = 500
	CourseCompletionXPPerSection = 100
)

// IsValid checks if the action kind is one of the closed set.
func (a ActionKind) IsValid() bool {
	switch a {
	case ActionSectionCompletion, ActionQuizCompletion, ActionCourseCompletion, ActionLevelUp:
		return true
	}
	return false
}

// String returns the string representation.
func (a ActionKind) String() string {
	return string(a)
}

// ParseActionKind parses a string into an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	a := ActionKind(strings.TrimSpace(s))
	if !a.IsValid() {
		return "", shared.ErrUnknownAction
	}
	return a, nil
}

// AwardContext carries action-specific data for an award. Course completion
// needs the full course so the bonus is computed fresh from the section
// count on every call.
type AwardContext struct {
	// EventKey uniquely identifies the logical event being awarded
	// (user+course+section+action). When set, the ledger refuses to award
	// the same key twice within the dedup window.
	EventKey string

	// Course is required for ActionCourseCompletion.
	Course *course.Course
}

// EventKey builds the canonical idempotency key for an award event.
func EventKey(userID shared.UserID, courseID, sectionID string, action ActionKind) string {
	return fmt.Sprintf("%s:%s:%s:%s", userID, courseID, sectionID, action)
}

// AwardAmount returns the XP delta for an action. The switch is exhaustive
// over the closed kind set; anything else is rejected.
func AwardAmount(action ActionKind, awardCtx AwardContext) (int, error) {
	switch action {
	case ActionSectionCompletion:
		return XPSectionCompletion, nil
	case ActionQuizCompletion:
		return XPQuizCompletion, nil
	case ActionCourseCompletion:
		if awardCtx.Course == nil {
			return 0, shared.ErrMissingCourse
		}
		return CourseCompletionBaseXP + CourseCompletionXPPerSection*awardCtx.Course.SectionCount(), nil
	case ActionLevelUp:
		return 0, nil
	default:
		return 0, shared.ErrUnknownAction
	}
}
