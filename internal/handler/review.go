package handler

import (
	"log/slog"
	"net/http"

	"fiducia/internal/domain/models"
	"fiducia/internal/domain/services"
	"fiducia/internal/httputil"
)

// ReviewHandler handles the comptable's upload validation workflow
type ReviewHandler struct {
	reviews services.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews services.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		logger:  logger,
	}
}

// Queue returns the review queue, optionally filtered by status
// GET /api/uploads?status=
func (h *ReviewHandler) Queue(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	var status *models.StatusUpload
	if v := r.URL.Query().Get("status"); v != "" {
		s := models.StatusUpload(v)
		switch s {
		case models.UploadEnRevision, models.UploadValide, models.UploadRefuse:
			status = &s
		default:
			httputil.RespondError(w, http.StatusBadRequest, "invalid status filter")
			return
		}
	}

	uploads, err := h.reviews.UploadsByStatus(r.Context(), principal.ID, status)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, uploads)
}

// Pending lists uploads awaiting a decision
// GET /api/uploads/pending
func (h *ReviewHandler) Pending(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	uploads, err := h.reviews.PendingReviews(r.Context(), principal.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, uploads)
}

// Review applies one VALIDE/REFUSE decision
// POST /api/uploads/{id}/review
func (h *ReviewHandler) Review(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	var req services.ReviewUploadRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.UploadID = r.PathValue("id")
	req.ComptableID = principal.ID

	result, err := h.reviews.ReviewUpload(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// BulkReview applies one decision to several uploads
// POST /api/uploads/review
func (h *ReviewHandler) BulkReview(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	var req services.BulkReviewRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ComptableID = principal.ID

	result, err := h.reviews.BulkReview(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
