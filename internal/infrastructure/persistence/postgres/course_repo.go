package postgres

import (
	"context"
	"encoding/json"

	"github.com/skilltrek/skilltrek-hub/internal/domain/course"
	"github.com/skilltrek/skilltrek-hub/internal/domain/shared"
)

// CourseRepository reads the course catalog and tracks per-user section
// progress. The catalog row stores its section list as a JSONB document;
// per-user completion lives in section_progress, one row per completed
// section, keyed (user, course, section).
type CourseRepository struct {
	conn *Connection
}

var _ course.Repository = (*CourseRepository)(nil)

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(conn *Connection) *CourseRepository {
	return &CourseRepository{conn: conn}
}

// courseSection is the JSONB shape of one catalog section.
type courseSection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// SaveCourse upserts a catalog entry. Used by catalog seeding and admin
// tooling; learner flows never write the catalog.
func (r *CourseRepository) SaveCourse(ctx context.Context, c *course.Course) error {
	sections := make([]courseSection, 0, len(c.Sections))
	for _, s := range c.Sections {
		sections = append(sections, courseSection{ID: s.ID, Title: s.Title})
	}
	blob, err := json.Marshal(sections)
	if err != nil {
		return shared.WrapError("course", "SaveCourse", shared.ErrPersistence, "failed to marshal sections", err)
	}

	query := `
		INSERT INTO courses (id, title, difficulty, sections)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, difficulty = EXCLUDED.difficulty, sections = EXCLUDED.sections
	`

	if _, err := r.conn.Exec(ctx, query, c.ID, c.Title, c.Difficulty, blob); err != nil {
		return shared.WrapError("course", "SaveCourse", shared.ErrPersistence, "failed to upsert course", err)
	}
	return nil
}

// GetByID returns the course with the user's completion flags applied.
func (r *CourseRepository) GetByID(ctx context.Context, userID shared.UserID, courseID string) (*course.Course, error) {
	crs, err := r.loadCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := r.applyProgress(ctx, userID, crs); err != nil {
		return nil, err
	}
	return crs, nil
}

// MarkSectionCompleted records the section as done for the user. The insert
// is idempotent: a repeat reports alreadyCompleted=true and changes nothing.
func (r *CourseRepository) MarkSectionCompleted(ctx context.Context, userID shared.UserID, courseID, sectionID string) (*course.Course, bool, error) {
	crs, err := r.loadCourse(ctx, courseID)
	if err != nil {
		return nil, false, err
	}
	if crs.Section(sectionID) == nil {
		return nil, false, shared.NewDomainError("course", "MarkSectionCompleted", shared.ErrNotFound, "section not found in course")
	}

	query := `
		INSERT INTO section_progress (user_id, course_id, section_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, course_id, section_id) DO NOTHING
	`

	tag, err := r.conn.Exec(ctx, query, userID.String(), courseID, sectionID)
	if err != nil {
		return nil, false, shared.WrapError("course", "MarkSectionCompleted", shared.ErrPersistence, "failed to record progress", err)
	}
	alreadyCompleted := tag.RowsAffected() == 0

	if err := r.applyProgress(ctx, userID, crs); err != nil {
		return nil, false, err
	}
	return crs, alreadyCompleted, nil
}

func (r *CourseRepository) loadCourse(ctx context.Context, courseID string) (*course.Course, error) {
	query := `
		SELECT id, title, difficulty, sections
		FROM courses
		WHERE id = $1
	`

	var crs course.Course
	var blob []byte
	err := r.conn.QueryRow(ctx, query, courseID).Scan(&crs.ID, &crs.Title, &crs.Difficulty, &blob)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.NewDomainError("course", "GetByID", shared.ErrNotFound, "course not found")
		}
		return nil, shared.WrapError("course", "GetByID", shared.ErrPersistence, "failed to query course", err)
	}

	var sections []courseSection
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, &sections); err != nil {
			return nil, shared.WrapError("course", "GetByID", shared.ErrPersistence, "failed to unmarshal sections", err)
		}
	}
	crs.Sections = make([]course.Section, 0, len(sections))
	for _, s := range sections {
		crs.Sections = append(crs.Sections, course.Section{ID: s.ID, Title: s.Title})
	}

	return &crs, nil
}

func (r *CourseRepository) applyProgress(ctx context.Context, userID shared.UserID, crs *course.Course) error {
	query := `
		SELECT section_id
		FROM section_progress
		WHERE user_id = $1 AND course_id = $2
	`

	rows, err := r.conn.Query(ctx, query, userID.String(), crs.ID)
	if err != nil {
		return shared.WrapError("course", "Progress", shared.ErrPersistence, "failed to query progress", err)
	}
	defer rows.Close()

	completed := make(map[string]bool)
	for rows.Next() {
		var sectionID string
		if err := rows.Scan(&sectionID); err != nil {
			return shared.WrapError("course", "Progress", shared.ErrPersistence, "failed to scan progress", err)
		}
		completed[sectionID] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range crs.Sections {
		crs.Sections[i].IsCompleted = completed[crs.Sections[i].ID]
	}
	return nil
}
