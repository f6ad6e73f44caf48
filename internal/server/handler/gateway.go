package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/coursegate/coursegate/internal/authz"
	"github.com/coursegate/coursegate/internal/gateway"
	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/server/middleware"
)

// GatewayHandler serves the admin-only generic CRUD endpoint. The caller
// must already be authenticated; this handler enforces the admin role
// before touching the request body.
type GatewayHandler struct {
	gate     *authz.Gate
	executor *gateway.Gateway
	validate *validator.Validate
	logger   *slog.Logger
}

// NewGatewayHandler builds the handler.
func NewGatewayHandler(gate *authz.Gate, executor *gateway.Gateway, logger *slog.Logger) *GatewayHandler {
	return &GatewayHandler{
		gate:     gate,
		executor: executor,
		validate: validator.New(),
		logger:   logger,
	}
}

// ServeHTTP handles POST /api/v1/admin/crud.
func (h *GatewayHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// Role check precedes body parsing: non-admins learn nothing about
	// what the endpoint accepts.
	if err := h.gate.RequireAdmin(r.Context(), principal.UserID); err != nil {
		if errors.Is(err, authz.ErrForbidden) {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		h.logger.Error("role lookup failed", "error", err, "request_id", middleware.GetRequestID(r.Context()))
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	var req gateway.Request
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Action and table are required")
		return
	}

	op, err := req.Compile()
	if err != nil {
		h.logger.Warn("gateway request rejected",
			"error", err,
			"action", req.Action,
			"user_id", principal.UserID,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.executor.Execute(r.Context(), op)
	if err != nil {
		h.logger.Error("gateway execution failed",
			"error", err,
			"action", req.Action,
			"table", op.TableName(),
			"user_id", principal.UserID,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		// The database rejecting the query (constraint violation, type
		// mismatch) is the caller's problem, not an internal fault.
		var qe *gateway.QueryError
		if errors.As(err, &qe) {
			writeError(w, http.StatusBadRequest, "Database operation failed")
			return
		}
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, model.DataResponse{Data: rows})
}
