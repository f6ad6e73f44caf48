package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/store"
)

func newTestGate(t *testing.T) (*Gate, *store.Store) {
	t.Helper()
	st, err := store.Open("sqlite", "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewGate(st), st
}

func TestRequireAdmin(t *testing.T) {
	gate, st := newTestGate(t)
	ctx := context.Background()

	if err := st.UpsertRole(ctx, "admin_user", model.RoleAdmin, "cli"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := st.UpsertRole(ctx, "student_user", model.RoleStudent, "cli"); err != nil {
		t.Fatalf("seed student: %v", err)
	}
	if err := st.UpsertRole(ctx, "tutor_user", model.RoleTutor, "cli"); err != nil {
		t.Fatalf("seed tutor: %v", err)
	}

	if err := gate.RequireAdmin(ctx, "admin_user"); err != nil {
		t.Errorf("admin rejected: %v", err)
	}
	for _, user := range []string{"student_user", "tutor_user", "no_role_user"} {
		if err := gate.RequireAdmin(ctx, user); !errors.Is(err, ErrForbidden) {
			t.Errorf("%s: got %v, want ErrForbidden", user, err)
		}
	}
}

func TestResolveRole(t *testing.T) {
	gate, st := newTestGate(t)
	ctx := context.Background()

	if err := st.UpsertRole(ctx, "tutor_user", model.RoleTutor, "cli"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	role, err := gate.ResolveRole(ctx, "tutor_user")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if role != model.RoleTutor {
		t.Errorf("role = %q, want tutor", role)
	}

	// Absence defaults to student for display purposes, without writing a
	// row.
	role, err = gate.ResolveRole(ctx, "unknown_user")
	if err != nil {
		t.Fatalf("resolve unknown: %v", err)
	}
	if role != model.RoleStudent {
		t.Errorf("role = %q, want student default", role)
	}
	if _, err := st.GetRole(ctx, "unknown_user"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("default role was persisted: %v", err)
	}
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()

	if _, ok := PrincipalFrom(ctx); ok {
		t.Error("principal found in empty context")
	}

	ctx = WithPrincipal(ctx, Principal{UserID: "user_1"})
	p, ok := PrincipalFrom(ctx)
	if !ok || p.UserID != "user_1" {
		t.Errorf("got %+v, ok=%v", p, ok)
	}
}
