package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/coursegate/coursegate/internal/server/middleware"
	"github.com/coursegate/coursegate/internal/webhook"
)

// WebhookHandler receives identity lifecycle events from the identity
// provider. The endpoint is unauthenticated in the bearer-token sense;
// trust comes entirely from the HMAC signature over the raw body.
type WebhookHandler struct {
	receiver *webhook.Receiver
	secret   string
	logger   *slog.Logger
	now      func() time.Time
}

// NewWebhookHandler builds the handler.
func NewWebhookHandler(receiver *webhook.Receiver, secret string, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		receiver: receiver,
		secret:   secret,
		logger:   logger,
		now:      time.Now,
	}
}

type webhookAccepted struct {
	Success bool `json:"success"`
}

// ServeHTTP handles POST /api/v1/webhooks/identity.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil || len(body) > maxBodyBytes {
		writeError(w, http.StatusBadRequest, "Invalid body")
		return
	}

	err = webhook.VerifySignature(body,
		r.Header.Get("svix-id"),
		r.Header.Get("svix-timestamp"),
		r.Header.Get("svix-signature"),
		h.secret,
		h.now(),
	)
	if err != nil {
		h.logger.Warn("webhook signature rejected",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
		writeError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}

	var event webhook.Event
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid event payload")
		return
	}

	if err := h.receiver.Apply(r.Context(), &event); err != nil {
		h.logger.Error("webhook processing failed",
			"error", err,
			"event_type", event.Type,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}

	writeJSON(w, http.StatusOK, webhookAccepted{Success: true})
}
