package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coursegate/coursegate/internal/authz"
	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/server/middleware"
	"github.com/coursegate/coursegate/internal/store"
)

// UserDataHandler serves authenticated self-scoped reads. Every query is
// keyed on the verified token subject; the caller cannot read anyone
// else's rows regardless of what the request says.
type UserDataHandler struct {
	store  *store.Store
	gate   *authz.Gate
	logger *slog.Logger
}

// NewUserDataHandler builds the handler.
func NewUserDataHandler(st *store.Store, gate *authz.Gate, logger *slog.Logger) *UserDataHandler {
	return &UserDataHandler{store: st, gate: gate, logger: logger}
}

// ServeHTTP handles GET /api/v1/me/{resource}.
func (h *UserDataHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var (
		data any
		err  error
	)
	switch resource := chi.URLParam(r, "resource"); resource {
	case "profile":
		data, err = h.profile(r, principal.UserID)
	case "role":
		data, err = h.role(r, principal.UserID)
	case "enrollments":
		data, err = h.store.ListEnrollmentsByStudent(r.Context(), principal.UserID)
	case "lessons":
		data, err = h.lessons(r)
	case "assignments":
		data, err = h.store.ListAssignments(r.Context(), r.URL.Query().Get("courseId"))
	case "submissions":
		data, err = h.store.ListSubmissionsByStudent(r.Context(), principal.UserID)
	case "lesson-progress":
		data, err = h.store.ListLessonProgressByStudent(r.Context(), principal.UserID)
	default:
		writeError(w, http.StatusBadRequest, "Unknown resource")
		return
	}

	if err != nil {
		var bad *badParamError
		if errors.As(err, &bad) {
			writeError(w, http.StatusBadRequest, bad.msg)
			return
		}
		h.logger.Error("user data read failed",
			"error", err,
			"user_id", principal.UserID,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, model.DataResponse{Data: data})
}

// profile returns the caller's profile, or null when no profile row
// exists yet (the webhook may not have landed).
func (h *UserDataHandler) profile(r *http.Request, userID string) (any, error) {
	p, err := h.store.GetProfile(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

type roleResponse struct {
	Role model.Role `json:"role"`
}

func (h *UserDataHandler) role(r *http.Request, userID string) (any, error) {
	role, err := h.gate.ResolveRole(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return roleResponse{Role: role}, nil
}

func (h *UserDataHandler) lessons(r *http.Request) (any, error) {
	courseID := r.URL.Query().Get("courseId")
	if courseID != "" {
		if _, err := uuid.Parse(courseID); err != nil {
			return nil, &badParamError{msg: "Invalid courseId format"}
		}
	}

	phase := 0
	if raw := r.URL.Query().Get("phase"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, &badParamError{msg: "Invalid phase"}
		}
		phase = n
	}

	return h.store.ListLessons(r.Context(), courseID, phase)
}

type badParamError struct {
	msg string
}

func (e *badParamError) Error() string { return e.msg }
