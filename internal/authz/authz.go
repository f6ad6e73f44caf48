// Package authz resolves a verified identity to its role and enforces
// minimum-privilege checks before privileged data operations proceed.
package authz

import (
	"context"
	"errors"

	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/store"
)

// ErrForbidden is returned when a verified identity lacks the required
// role. Absence of any assignment is rejection, not a default grant.
var ErrForbidden = errors.New("forbidden")

// Principal is the authenticated identity attached to a request context
// after token verification. UserID is the provider's subject claim.
type Principal struct {
	UserID string
}

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal attaches the principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom extracts the authenticated principal. The second return is
// false for an unauthenticated context.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// Gate performs role lookups against the authoritative store. It never
// caches assignments across requests; every check reads through.
type Gate struct {
	store *store.Store
}

// NewGate creates a Gate over the authoritative role store.
func NewGate(s *store.Store) *Gate {
	return &Gate{store: s}
}

// RequireAdmin rejects unless the identity's role assignment equals
// exactly "admin". It must run before any gateway operation is
// interpreted.
func (g *Gate) RequireAdmin(ctx context.Context, userID string) error {
	role, err := g.store.GetRole(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if role != model.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// ResolveRole returns the identity's role for non-privileged display
// contexts, defaulting to student when the authoritative store has no
// record. The default is never written back.
func (g *Gate) ResolveRole(ctx context.Context, userID string) (model.Role, error) {
	role, err := g.store.GetRole(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return model.RoleStudent, nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}
