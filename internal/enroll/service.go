// Package enroll implements the idempotent course-enrollment workflow:
// input validation, existence checks, duplicate prevention, rate limiting,
// and conditional status assignment for paid courses.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/store"
)

// Rate limiting: at most maxAttempts logged attempts per identity within
// the trailing window. Rejections are logged as failed attempts too, so
// the limit is self-reinforcing once tripped.
const (
	attemptWindow = time.Hour
	maxAttempts   = 10
)

var (
	// ErrBadCourseID means the course identifier is not a well-formed UUID.
	ErrBadCourseID = errors.New("invalid course id")
	// ErrCourseNotFound covers both missing and inactive courses; callers
	// cannot distinguish the two.
	ErrCourseNotFound = errors.New("course not found")
	// ErrRateLimited means the identity exceeded the attempt ceiling.
	ErrRateLimited = errors.New("too many attempts")
)

// DuplicateError signals an existing enrollment. PendingPayment lets the
// client render "finish your payment" instead of a generic duplicate.
type DuplicateError struct {
	PendingPayment bool
}

func (e *DuplicateError) Error() string {
	if e.PendingPayment {
		return "enrollment pending payment"
	}
	return "already enrolled"
}

// Result is returned on successful enrollment.
type Result struct {
	EnrollmentID   string
	PendingPayment bool
}

// Service orchestrates enrollment creation. It is the only component that
// creates enrollments; the generic gateway's insert path is intentionally
// not an alternative, because creation must pass through the rate limiter
// and duplicate checks.
type Service struct {
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates the enrollment service.
func NewService(s *store.Store, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger, now: time.Now}
}

// Enroll runs the enrollment workflow for (studentID, courseID). The
// duplicate pre-check is a fast path; the (student_id, course_id) unique
// index is the backstop for requests that race past it.
func (s *Service) Enroll(ctx context.Context, studentID, courseID string) (*Result, error) {
	if !validCourseID(courseID) {
		return nil, ErrBadCourseID
	}

	course, err := s.store.GetActiveCourse(ctx, courseID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCourseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}

	if existing, err := s.store.GetEnrollment(ctx, studentID, courseID); err == nil {
		return nil, &DuplicateError{PendingPayment: existing.Status == model.EnrollmentPendingPayment}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check enrollment: %w", err)
	}

	count, err := s.store.CountAttemptsSince(ctx, studentID, s.now().Add(-attemptWindow))
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if count >= maxAttempts {
		if err := s.store.LogAttempt(ctx, studentID, courseID, false); err != nil {
			s.logger.Warn("failed to log rate-limited attempt", "user", studentID, "error", err)
		}
		return nil, ErrRateLimited
	}

	pending := course.Paid()
	status := model.EnrollmentActive
	if pending {
		status = model.EnrollmentPendingPayment
	}

	enrollment := &model.Enrollment{
		StudentID:    studentID,
		CourseID:     courseID,
		Status:       status,
		CurrentPhase: 1,
		Progress:     0,
	}
	err = s.store.CreateEnrollment(ctx, enrollment)
	if errors.Is(err, store.ErrDuplicate) {
		// Lost the race to a concurrent request; report it exactly like
		// the fast-path duplicate.
		pendingNow := false
		if existing, readErr := s.store.GetEnrollment(ctx, studentID, courseID); readErr == nil {
			pendingNow = existing.Status == model.EnrollmentPendingPayment
		}
		return nil, &DuplicateError{PendingPayment: pendingNow}
	}
	if err != nil {
		return nil, fmt.Errorf("create enrollment: %w", err)
	}

	if err := s.store.LogAttempt(ctx, studentID, courseID, true); err != nil {
		s.logger.Warn("failed to log successful attempt", "user", studentID, "error", err)
	}

	return &Result{EnrollmentID: enrollment.ID, PendingPayment: pending}, nil
}

// validCourseID requires the canonical 36-character UUID form.
func validCourseID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
