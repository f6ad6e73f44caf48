package store

import (
	"context"
	"fmt"
)

// Migrate applies the schema. Statements are idempotent; the two dialects
// differ only in UUID defaults and timestamp types.
func (s *Store) Migrate(ctx context.Context) error {
	var stmts []string
	if s.driver == "pgx" {
		stmts = postgresMigrations
	} else {
		stmts = sqliteMigrations
	}

	for i, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var postgresMigrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id TEXT PRIMARY KEY,
		role TEXT NOT NULL CHECK (role IN ('admin', 'student', 'tutor')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS role_change_audit (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		old_role TEXT,
		new_role TEXT NOT NULL,
		changed_by TEXT NOT NULL,
		changed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS courses (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		price BIGINT,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS course_phases (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		phase_number INTEGER NOT NULL,
		title TEXT NOT NULL,
		UNIQUE (course_id, phase_number)
	)`,

	`CREATE TABLE IF NOT EXISTS tutor_courses (
		tutor_id TEXT NOT NULL,
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		PRIMARY KEY (tutor_id, course_id)
	)`,

	`CREATE TABLE IF NOT EXISTS enrollments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		student_id TEXT NOT NULL,
		course_id UUID NOT NULL REFERENCES courses(id),
		status TEXT NOT NULL CHECK (status IN ('active', 'pending_payment', 'completed', 'paused')),
		current_phase INTEGER NOT NULL DEFAULT 1,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// Backstop for the check-then-insert race: two near-simultaneous
	// requests can both pass the duplicate pre-check, but only one insert
	// survives this index.
	`CREATE UNIQUE INDEX IF NOT EXISTS enrollments_student_course_uniq
		ON enrollments (student_id, course_id)`,

	`CREATE TABLE IF NOT EXISTS enrollment_attempts (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		success BOOLEAN NOT NULL,
		attempted_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS enrollment_attempts_user_time
		ON enrollment_attempts (user_id, attempted_at)`,

	`CREATE TABLE IF NOT EXISTS lessons (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		phase_number INTEGER NOT NULL DEFAULT 1,
		order_index INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS lesson_materials (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		lesson_id UUID NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		url TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS lesson_progress (
		id BIGSERIAL PRIMARY KEY,
		student_id TEXT NOT NULL,
		lesson_id UUID NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
		completed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (student_id, lesson_id)
	)`,

	`CREATE TABLE IF NOT EXISTS assignments (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		course_id UUID NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS assignment_submissions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		assignment_id UUID NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		student_id TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		grade INTEGER,
		submitted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (assignment_id, student_id)
	)`,
}

var sqliteMigrations = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		full_name TEXT NOT NULL DEFAULT '',
		avatar_url TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id TEXT PRIMARY KEY,
		role TEXT NOT NULL CHECK (role IN ('admin', 'student', 'tutor')),
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS role_change_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		old_role TEXT,
		new_role TEXT NOT NULL,
		changed_by TEXT NOT NULL,
		changed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS courses (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT,
		price INTEGER,
		is_active INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS course_phases (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		phase_number INTEGER NOT NULL,
		title TEXT NOT NULL,
		UNIQUE (course_id, phase_number)
	)`,

	`CREATE TABLE IF NOT EXISTS tutor_courses (
		tutor_id TEXT NOT NULL,
		course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		PRIMARY KEY (tutor_id, course_id)
	)`,

	`CREATE TABLE IF NOT EXISTS enrollments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		course_id TEXT NOT NULL REFERENCES courses(id),
		status TEXT NOT NULL CHECK (status IN ('active', 'pending_payment', 'completed', 'paused')),
		current_phase INTEGER NOT NULL DEFAULT 1,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE UNIQUE INDEX IF NOT EXISTS enrollments_student_course_uniq
		ON enrollments (student_id, course_id)`,

	`CREATE TABLE IF NOT EXISTS enrollment_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		course_id TEXT NOT NULL,
		success INTEGER NOT NULL,
		attempted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE INDEX IF NOT EXISTS enrollment_attempts_user_time
		ON enrollment_attempts (user_id, attempted_at)`,

	`CREATE TABLE IF NOT EXISTS lessons (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		phase_number INTEGER NOT NULL DEFAULT 1,
		order_index INTEGER NOT NULL DEFAULT 0,
		title TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS lesson_materials (
		id TEXT PRIMARY KEY,
		lesson_id TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		url TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS lesson_progress (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id TEXT NOT NULL,
		lesson_id TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
		completed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (student_id, lesson_id)
	)`,

	`CREATE TABLE IF NOT EXISTS assignments (
		id TEXT PRIMARY KEY,
		course_id TEXT NOT NULL REFERENCES courses(id) ON DELETE CASCADE,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		due_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS assignment_submissions (
		id TEXT PRIMARY KEY,
		assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
		student_id TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		grade INTEGER,
		submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (assignment_id, student_id)
	)`,
}
