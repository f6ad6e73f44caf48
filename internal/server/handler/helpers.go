// Package handler implements the HTTP endpoints of the authorization
// boundary: the admin data gateway, enrollment, the identity webhook, and
// the per-user data reads.
package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/coursegate/coursegate/internal/model"
)

// maxBodyBytes caps request bodies. Gateway payloads and webhook events
// are small; anything larger is abuse.
const maxBodyBytes = 1 << 20

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a JSON error envelope. The message must already be
// safe for external eyes; internal detail belongs in the log line.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

// readJSON decodes the request body into v, rejecting oversized bodies.
func readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("parse body: %w", err)
	}
	return nil
}
