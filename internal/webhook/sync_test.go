package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/store"
)

func newTestReceiver(t *testing.T) (*Receiver, *store.Store) {
	t.Helper()
	st, err := store.Open("sqlite", "")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewReceiver(st, slog.New(slog.DiscardHandler)), st
}

func event(t *testing.T, typ string, data any) *Event {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal event data: %v", err)
	}
	return &Event{Type: typ, Data: raw}
}

func TestApplyUserCreated(t *testing.T) {
	r, st := newTestReceiver(t)
	ctx := context.Background()

	evt := event(t, EventUserCreated, map[string]any{
		"id":              "user_1",
		"email_addresses": []map[string]string{{"email_address": "ada@example.com"}},
		"first_name":      "Ada",
		"last_name":       "Lovelace",
		"image_url":       "https://img.example.com/ada.png",
	})
	if err := r.Apply(ctx, evt); err != nil {
		t.Fatalf("apply: %v", err)
	}

	p, err := st.GetProfile(ctx, "user_1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.Email != "ada@example.com" || p.FullName != "Ada Lovelace" {
		t.Errorf("profile = %+v", p)
	}
	if p.AvatarURL == nil || *p.AvatarURL != "https://img.example.com/ada.png" {
		t.Errorf("avatar = %v", p.AvatarURL)
	}

	role, err := st.GetRole(ctx, "user_1")
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role != model.RoleStudent {
		t.Errorf("role = %q, want student", role)
	}
}

func TestApplyUserCreatedFallsBackToEmailName(t *testing.T) {
	r, st := newTestReceiver(t)
	ctx := context.Background()

	evt := event(t, EventUserCreated, map[string]any{
		"id":              "user_1",
		"email_addresses": []map[string]string{{"email_address": "x@example.com"}},
	})
	if err := r.Apply(ctx, evt); err != nil {
		t.Fatalf("apply: %v", err)
	}

	p, err := st.GetProfile(ctx, "user_1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if p.FullName != "x@example.com" {
		t.Errorf("full name = %q, want email fallback", p.FullName)
	}
}

func TestApplyUserUpdated(t *testing.T) {
	r, st := newTestReceiver(t)
	ctx := context.Background()

	if err := r.Apply(ctx, event(t, EventUserCreated, map[string]any{"id": "user_1", "first_name": "Ada"})); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Update without role metadata leaves the assignment alone.
	if err := r.Apply(ctx, event(t, EventUserUpdated, map[string]any{"id": "user_1", "first_name": "Grace"})); err != nil {
		t.Fatalf("update: %v", err)
	}
	role, err := st.GetRole(ctx, "user_1")
	if err != nil {
		t.Fatalf("get role: %v", err)
	}
	if role != model.RoleStudent {
		t.Errorf("role changed without metadata: %q", role)
	}
	p, _ := st.GetProfile(ctx, "user_1")
	if p.FullName != "Grace" {
		t.Errorf("full name = %q", p.FullName)
	}

	// Update with an explicit valid role applies it.
	evt := event(t, EventUserUpdated, map[string]any{
		"id":              "user_1",
		"first_name":      "Grace",
		"public_metadata": map[string]string{"role": "tutor"},
	})
	if err := r.Apply(ctx, evt); err != nil {
		t.Fatalf("role update: %v", err)
	}
	role, _ = st.GetRole(ctx, "user_1")
	if role != model.RoleTutor {
		t.Errorf("role = %q, want tutor", role)
	}

	// An invalid role in metadata is ignored.
	evt = event(t, EventUserUpdated, map[string]any{
		"id":              "user_1",
		"public_metadata": map[string]string{"role": "superuser"},
	})
	if err := r.Apply(ctx, evt); err != nil {
		t.Fatalf("bogus role update: %v", err)
	}
	role, _ = st.GetRole(ctx, "user_1")
	if role != model.RoleTutor {
		t.Errorf("invalid role overwrote assignment: %q", role)
	}
}

func TestApplyUserDeleted(t *testing.T) {
	r, st := newTestReceiver(t)
	ctx := context.Background()

	if err := r.Apply(ctx, event(t, EventUserCreated, map[string]any{"id": "user_1"})); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := r.Apply(ctx, event(t, EventUserDeleted, map[string]any{"id": "user_1"})); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := st.GetProfile(ctx, "user_1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("profile still present: %v", err)
	}
	if _, err := st.GetRole(ctx, "user_1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("role still present: %v", err)
	}
}

func TestApplyUnknownEventTypeIgnored(t *testing.T) {
	r, _ := newTestReceiver(t)

	if err := r.Apply(context.Background(), event(t, "session.created", map[string]any{"id": "sess_1"})); err != nil {
		t.Fatalf("unknown event type should be ignored: %v", err)
	}
}

func TestApplyMissingSubjectID(t *testing.T) {
	r, _ := newTestReceiver(t)

	if err := r.Apply(context.Background(), event(t, EventUserCreated, map[string]any{"first_name": "Ada"})); err == nil {
		t.Fatal("expected error for missing subject id")
	}
	if err := r.Apply(context.Background(), event(t, EventUserDeleted, map[string]any{})); err == nil {
		t.Fatal("expected error for missing subject id on delete")
	}
}
