package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/store"
)

// Provider event types handled by the receiver.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is the provider's webhook payload.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// subjectData is the provider's user object, decoded only as far as the
// sync needs.
type subjectData struct {
	ID             string `json:"id"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	PublicMetadata struct {
		Role string `json:"role"`
	} `json:"public_metadata"`
}

// Receiver applies verified provider events to the local store. It is the
// only component that creates Identity and Role Assignment records.
type Receiver struct {
	store  *store.Store
	logger *slog.Logger
}

// NewReceiver creates a Receiver over the given store.
func NewReceiver(s *store.Store, logger *slog.Logger) *Receiver {
	return &Receiver{store: s, logger: logger}
}

// Apply processes a verified event. Unknown event types are ignored
// successfully; the provider sends more lifecycle events than we track.
func (r *Receiver) Apply(ctx context.Context, evt *Event) error {
	switch evt.Type {
	case EventUserCreated, EventUserUpdated:
		return r.applyUpsert(ctx, evt)
	case EventUserDeleted:
		return r.applyDelete(ctx, evt)
	default:
		r.logger.Debug("ignoring webhook event", "type", evt.Type)
		return nil
	}
}

func (r *Receiver) applyUpsert(ctx context.Context, evt *Event) error {
	var data subjectData
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return fmt.Errorf("decode event data: %w", err)
	}
	if data.ID == "" {
		return fmt.Errorf("event data missing subject id")
	}

	email := ""
	if len(data.EmailAddresses) > 0 {
		email = data.EmailAddresses[0].EmailAddress
	}
	fullName := strings.TrimSpace(strings.Join(nonEmpty(data.FirstName, data.LastName), " "))
	if fullName == "" {
		fullName = email
	}
	var avatarURL *string
	if data.ImageURL != "" {
		avatarURL = &data.ImageURL
	}

	profile := &model.Profile{
		UserID:    data.ID,
		Email:     email,
		FullName:  fullName,
		AvatarURL: avatarURL,
	}
	if err := r.store.UpsertProfile(ctx, profile); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}

	switch evt.Type {
	case EventUserCreated:
		// New identities default to student.
		if err := r.store.UpsertRole(ctx, data.ID, model.RoleStudent, "webhook"); err != nil {
			return fmt.Errorf("assign default role: %w", err)
		}
		r.logger.Info("synced new identity", "user", data.ID)
	case EventUserUpdated:
		// Role changes only when the provider explicitly supplies a valid
		// one; silence leaves the authoritative assignment untouched.
		if role := model.Role(data.PublicMetadata.Role); role.Valid() {
			if err := r.store.UpsertRole(ctx, data.ID, role, "webhook"); err != nil {
				return fmt.Errorf("update role: %w", err)
			}
		}
		r.logger.Info("updated identity", "user", data.ID)
	}
	return nil
}

func (r *Receiver) applyDelete(ctx context.Context, evt *Event) error {
	var data struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(evt.Data, &data); err != nil {
		return fmt.Errorf("decode event data: %w", err)
	}
	if data.ID == "" {
		return fmt.Errorf("event data missing subject id")
	}

	if err := r.store.DeleteRole(ctx, data.ID); err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if err := r.store.DeleteProfile(ctx, data.ID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	r.logger.Info("deleted identity", "user", data.ID)
	return nil
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
