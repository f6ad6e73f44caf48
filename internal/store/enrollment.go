package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coursegate/coursegate/internal/model"
)

// GetEnrollment returns the enrollment for a (student, course) pair, or
// ErrNotFound.
func (s *Store) GetEnrollment(ctx context.Context, studentID, courseID string) (*model.Enrollment, error) {
	const q = `SELECT id, student_id, course_id, status, current_phase, progress, created_at, updated_at
		FROM enrollments WHERE student_id = ? AND course_id = ?`

	var e model.Enrollment
	err := s.db.GetContext(ctx, &e, s.rebind(q), studentID, courseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEnrollment inserts a new enrollment row. A uniqueness violation on
// (student_id, course_id) comes back as ErrDuplicate; it is the canonical
// duplicate signal when two requests race past the pre-check.
func (s *Store) CreateEnrollment(ctx context.Context, e *model.Enrollment) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	const q = `INSERT INTO enrollments (id, student_id, course_id, status, current_phase, progress, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.rebind(q),
		e.ID, e.StudentID, e.CourseID, e.Status, e.CurrentPhase, e.Progress, e.CreatedAt, e.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// CountAttemptsSince returns how many enrollment attempts the identity has
// logged since the given time. This is the only read path for the attempt
// log.
func (s *Store) CountAttemptsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	const q = `SELECT COUNT(*) FROM enrollment_attempts WHERE user_id = ? AND attempted_at >= ?`

	var n int
	if err := s.db.GetContext(ctx, &n, s.rebind(q), userID, since); err != nil {
		return 0, err
	}
	return n, nil
}

// LogAttempt appends an enrollment attempt to the audit log. Failed and
// rate-limited attempts are logged too, which keeps the limit
// self-reinforcing once tripped.
func (s *Store) LogAttempt(ctx context.Context, userID, courseID string, success bool) error {
	const q = `INSERT INTO enrollment_attempts (user_id, course_id, success, attempted_at) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.rebind(q), userID, courseID, success, time.Now().UTC())
	return err
}

// EnrollmentWithCourse pairs an enrollment with a summary of its course for
// the self-scoped dashboard view.
type EnrollmentWithCourse struct {
	model.Enrollment
	CourseTitle    string  `json:"course_title" db:"course_title"`
	CourseCategory string  `json:"course_category" db:"course_category"`
	CourseImageURL *string `json:"course_image_url" db:"course_image_url"`
}

// ListEnrollmentsByStudent returns the student's enrollments joined with
// course summaries, newest first.
func (s *Store) ListEnrollmentsByStudent(ctx context.Context, studentID string) ([]EnrollmentWithCourse, error) {
	const q = `SELECT e.id, e.student_id, e.course_id, e.status, e.current_phase, e.progress,
			e.created_at, e.updated_at,
			c.title AS course_title, c.category AS course_category, c.image_url AS course_image_url
		FROM enrollments e
		JOIN courses c ON c.id = e.course_id
		WHERE e.student_id = ?
		ORDER BY e.created_at DESC`

	out := make([]EnrollmentWithCourse, 0)
	if err := s.db.SelectContext(ctx, &out, s.rebind(q), studentID); err != nil {
		return nil, err
	}
	return out, nil
}
