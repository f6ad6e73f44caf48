// Package model defines the domain entities shared across Coursegate's
// storage, gateway, and HTTP layers, along with the JSON response envelopes.
package model

import "time"

// Role is the closed set of access levels an identity can hold.
// Exactly one active assignment exists per identity; absence means
// "no access" in privileged contexts.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
)

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleTutor:
		return true
	}
	return false
}

// EnrollmentStatus tracks where a (student, course) pair sits in its
// lifecycle. Only the transition out of "absent" is owned by the enroll
// service; later transitions belong to payment confirmation, progress
// tracking, and admin overrides.
type EnrollmentStatus string

const (
	EnrollmentActive         EnrollmentStatus = "active"
	EnrollmentPendingPayment EnrollmentStatus = "pending_payment"
	EnrollmentCompleted      EnrollmentStatus = "completed"
	EnrollmentPaused         EnrollmentStatus = "paused"
)

// Course is a catalog entry. Price presence and nonzero-ness is the sole
// determinant of "paid" status; price is stored in the smallest currency
// unit and may be NULL for free courses.
type Course struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Category    string    `json:"category" db:"category"`
	Description string    `json:"description" db:"description"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	Price       *int64    `json:"price" db:"price"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Paid reports whether enrolling in the course requires payment.
func (c Course) Paid() bool {
	return c.Price != nil && *c.Price > 0
}

// Enrollment links a student identity to a course. Unique per
// (student_id, course_id); duplicates are rejected, never overwritten.
type Enrollment struct {
	ID           string           `json:"id" db:"id"`
	StudentID    string           `json:"student_id" db:"student_id"`
	CourseID     string           `json:"course_id" db:"course_id"`
	Status       EnrollmentStatus `json:"status" db:"status"`
	CurrentPhase int              `json:"current_phase" db:"current_phase"`
	Progress     int              `json:"progress" db:"progress"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// EnrollmentAttempt is an append-only audit record used only for
// time-windowed rate-limit counts and forensics.
type EnrollmentAttempt struct {
	ID          int64     `json:"id" db:"id"`
	UserID      string    `json:"user_id" db:"user_id"`
	CourseID    string    `json:"course_id" db:"course_id"`
	Success     bool      `json:"success" db:"success"`
	AttemptedAt time.Time `json:"attempted_at" db:"attempted_at"`
}

// Profile mirrors the identity provider's user record. The user_id is the
// provider's opaque subject identifier and is never generated locally.
type Profile struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	FullName  string    `json:"full_name" db:"full_name"`
	AvatarURL *string   `json:"avatar_url" db:"avatar_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RoleAssignment maps an identity to its single active role.
type RoleAssignment struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Lesson is course content within a phase, delivered to enrolled students.
type Lesson struct {
	ID          string    `json:"id" db:"id"`
	CourseID    string    `json:"course_id" db:"course_id"`
	PhaseNumber int       `json:"phase_number" db:"phase_number"`
	OrderIndex  int       `json:"order_index" db:"order_index"`
	Title       string    `json:"title" db:"title"`
	Content     string    `json:"content" db:"content"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Assignment is graded coursework attached to a course.
type Assignment struct {
	ID          string     `json:"id" db:"id"`
	CourseID    string     `json:"course_id" db:"course_id"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	DueAt       *time.Time `json:"due_at" db:"due_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Submission is a student's answer to an assignment, unique per
// (assignment, student).
type Submission struct {
	ID           string    `json:"id" db:"id"`
	AssignmentID string    `json:"assignment_id" db:"assignment_id"`
	StudentID    string    `json:"student_id" db:"student_id"`
	Content      string    `json:"content" db:"content"`
	Grade        *int      `json:"grade" db:"grade"`
	SubmittedAt  time.Time `json:"submitted_at" db:"submitted_at"`
}

// LessonProgress marks a lesson as completed by a student.
type LessonProgress struct {
	ID          int64     `json:"id" db:"id"`
	StudentID   string    `json:"student_id" db:"student_id"`
	LessonID    string    `json:"lesson_id" db:"lesson_id"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}
