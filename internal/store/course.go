package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/coursegate/coursegate/internal/model"
)

// GetActiveCourse returns the course only if it exists and is active.
// Inactive and missing courses are indistinguishable to callers.
func (s *Store) GetActiveCourse(ctx context.Context, id string) (*model.Course, error) {
	const q = `SELECT id, title, category, description, image_url, price, is_active, created_at, updated_at
		FROM courses WHERE id = ? AND is_active = ?`

	var c model.Course
	err := s.db.GetContext(ctx, &c, s.rebind(q), id, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCourse inserts a course, generating an ID when absent. Used by the
// role/seed tooling and tests; admin course management goes through the
// gateway.
func (s *Store) CreateCourse(ctx context.Context, c *model.Course) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	const q = `INSERT INTO courses (id, title, category, description, image_url, price, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.rebind(q),
		c.ID, c.Title, c.Category, c.Description, c.ImageURL, c.Price, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
