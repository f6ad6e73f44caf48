package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coursegate/coursegate/internal/authz"
	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/obs"
)

// TokenVerifier checks a compact serialized token and returns the subject
// identity it asserts.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (string, error)
}

// Authenticate returns an HTTP middleware that requires a valid bearer
// token. On success the resolved principal is attached to the request
// context; on failure the request is rejected with 401 and a generic
// message. The reason for rejection is logged, never returned to the
// caller.
func Authenticate(verifier TokenVerifier, metrics *obs.Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				unauthorized(w, "Unauthorized")
				return
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				unauthorized(w, "Unauthorized")
				return
			}

			userID, err := verifier.Verify(r.Context(), raw)
			if err != nil {
				if metrics != nil {
					metrics.ObserveTokenFailure()
				}
				logger.Warn("token rejected",
					"error", err,
					"request_id", GetRequestID(r.Context()),
					"remote_addr", r.RemoteAddr,
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			ctx := authz.WithPrincipal(r.Context(), authz.Principal{UserID: userID})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(model.ErrorResponse{Error: msg})
}
