package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/coursegate/coursegate/internal/authz"
	"github.com/coursegate/coursegate/internal/enroll"
	"github.com/coursegate/coursegate/internal/model"
	"github.com/coursegate/coursegate/internal/obs"
	"github.com/coursegate/coursegate/internal/server/middleware"
)

// EnrollHandler serves the self-service enrollment endpoint.
type EnrollHandler struct {
	svc     *enroll.Service
	metrics *obs.Metrics
	logger  *slog.Logger
}

// NewEnrollHandler builds the handler.
func NewEnrollHandler(svc *enroll.Service, metrics *obs.Metrics, logger *slog.Logger) *EnrollHandler {
	return &EnrollHandler{svc: svc, metrics: metrics, logger: logger}
}

type enrollRequest struct {
	CourseID string `json:"courseId"`
}

// ServeHTTP handles POST /api/v1/enroll. The enrolling student is always
// the authenticated caller; the payload cannot designate someone else.
func (h *EnrollHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	principal, ok := authz.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req enrollRequest
	if err := readJSON(r, &req); err != nil || req.CourseID == "" {
		writeError(w, http.StatusBadRequest, "courseId is required")
		return
	}

	result, err := h.svc.Enroll(r.Context(), principal.UserID, req.CourseID)
	if err != nil {
		h.respondError(w, r, principal.UserID, err)
		return
	}

	h.observe("created")
	writeJSON(w, http.StatusOK, model.EnrollResponse{
		Success:        true,
		EnrollmentID:   result.EnrollmentID,
		PendingPayment: result.PendingPayment,
	})
}

func (h *EnrollHandler) respondError(w http.ResponseWriter, r *http.Request, userID string, err error) {
	var dup *enroll.DuplicateError
	switch {
	case errors.Is(err, enroll.ErrBadCourseID):
		h.observe("rejected")
		writeError(w, http.StatusBadRequest, "Invalid courseId format")
	case errors.Is(err, enroll.ErrCourseNotFound):
		h.observe("rejected")
		writeError(w, http.StatusNotFound, "Course not found or not active")
	case errors.As(err, &dup):
		h.observe("duplicate")
		writeJSON(w, http.StatusConflict, model.ConflictResponse{
			Error:          dup.Error(),
			PendingPayment: dup.PendingPayment,
		})
	case errors.Is(err, enroll.ErrRateLimited):
		h.observe("rate_limited")
		writeError(w, http.StatusTooManyRequests, "Too many enrollment attempts. Try again later.")
	default:
		h.observe("error")
		h.logger.Error("enrollment failed",
			"error", err,
			"user_id", userID,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (h *EnrollHandler) observe(result string) {
	if h.metrics != nil {
		h.metrics.ObserveEnrollment(result)
	}
}
