package store

import (
	"context"
	"strings"

	"github.com/coursegate/coursegate/internal/model"
)

// ListLessons returns lessons, optionally scoped to a course and phase,
// in delivery order. Zero phase means all phases.
func (s *Store) ListLessons(ctx context.Context, courseID string, phase int) ([]model.Lesson, error) {
	var (
		where []string
		args  []interface{}
	)
	if courseID != "" {
		where = append(where, "course_id = ?")
		args = append(args, courseID)
	}
	if phase > 0 {
		where = append(where, "phase_number = ?")
		args = append(args, phase)
	}

	q := `SELECT id, course_id, phase_number, order_index, title, content, created_at FROM lessons`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY order_index"

	out := make([]model.Lesson, 0)
	if err := s.db.SelectContext(ctx, &out, s.rebind(q), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAssignments returns assignments, optionally scoped to a course.
func (s *Store) ListAssignments(ctx context.Context, courseID string) ([]model.Assignment, error) {
	q := `SELECT id, course_id, title, description, due_at, created_at FROM assignments`
	var args []interface{}
	if courseID != "" {
		q += " WHERE course_id = ?"
		args = append(args, courseID)
	}
	q += " ORDER BY created_at"

	out := make([]model.Assignment, 0)
	if err := s.db.SelectContext(ctx, &out, s.rebind(q), args...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListSubmissionsByStudent returns the student's assignment submissions.
func (s *Store) ListSubmissionsByStudent(ctx context.Context, studentID string) ([]model.Submission, error) {
	const q = `SELECT id, assignment_id, student_id, content, grade, submitted_at
		FROM assignment_submissions WHERE student_id = ? ORDER BY submitted_at DESC`

	out := make([]model.Submission, 0)
	if err := s.db.SelectContext(ctx, &out, s.rebind(q), studentID); err != nil {
		return nil, err
	}
	return out, nil
}

// ListLessonProgressByStudent returns the student's completed lessons.
func (s *Store) ListLessonProgressByStudent(ctx context.Context, studentID string) ([]model.LessonProgress, error) {
	const q = `SELECT id, student_id, lesson_id, completed_at
		FROM lesson_progress WHERE student_id = ? ORDER BY completed_at DESC`

	out := make([]model.LessonProgress, 0)
	if err := s.db.SelectContext(ctx, &out, s.rebind(q), studentID); err != nil {
		return nil, err
	}
	return out, nil
}
