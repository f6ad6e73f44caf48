package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coursegate/coursegate/internal/model"
)

// GetProfile returns the profile for an identity, or ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	const q = `SELECT user_id, email, full_name, avatar_url, created_at, updated_at
		FROM profiles WHERE user_id = ?`

	var p model.Profile
	err := s.db.GetContext(ctx, &p, s.rebind(q), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertProfile creates or updates the identity's profile record. The
// user_id is always the provider's subject identifier, never generated
// here.
func (s *Store) UpsertProfile(ctx context.Context, p *model.Profile) error {
	now := time.Now().UTC()
	const q = `INSERT INTO profiles (user_id, email, full_name, avatar_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			email = excluded.email,
			full_name = excluded.full_name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at`
	_, err := s.db.ExecContext(ctx, s.rebind(q), p.UserID, p.Email, p.FullName, p.AvatarURL, now, now)
	return err
}

// DeleteProfile removes the identity's profile record.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	const q = `DELETE FROM profiles WHERE user_id = ?`
	_, err := s.db.ExecContext(ctx, s.rebind(q), userID)
	return err
}

// GetRole returns the identity's single active role assignment, or
// ErrNotFound when none exists. Callers decide whether absence means
// rejection (privileged paths) or a default (non-privileged display).
func (s *Store) GetRole(ctx context.Context, userID string) (model.Role, error) {
	const q = `SELECT role FROM user_roles WHERE user_id = ?`

	var role model.Role
	err := s.db.GetContext(ctx, &role, s.rebind(q), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// UpsertRole assigns a role to an identity, recording the change in the
// audit table. changedBy names the actor (a subject ID, "webhook", or
// "cli").
func (s *Store) UpsertRole(ctx context.Context, userID string, role model.Role, changedBy string) error {
	old, err := s.GetRole(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	now := time.Now().UTC()
	const q = `INSERT INTO user_roles (user_id, role, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			role = excluded.role,
			updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, s.rebind(q), userID, role, now, now); err != nil {
		return err
	}

	var oldRole interface{}
	if old != "" {
		oldRole = string(old)
	}
	const audit = `INSERT INTO role_change_audit (user_id, old_role, new_role, changed_by, changed_at)
		VALUES (?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, s.rebind(audit), userID, oldRole, role, changedBy, now)
	return err
}

// DeleteRole removes the identity's role assignment.
func (s *Store) DeleteRole(ctx context.Context, userID string) error {
	const q = `DELETE FROM user_roles WHERE user_id = ?`
	_, err := s.db.ExecContext(ctx, s.rebind(q), userID)
	return err
}

// ListRoleAssignments returns all role assignments, for operator tooling.
func (s *Store) ListRoleAssignments(ctx context.Context) ([]model.RoleAssignment, error) {
	const q = `SELECT user_id, role, created_at, updated_at FROM user_roles ORDER BY user_id`

	out := make([]model.RoleAssignment, 0)
	if err := s.db.SelectContext(ctx, &out, s.rebind(q)); err != nil {
		return nil, err
	}
	return out, nil
}
