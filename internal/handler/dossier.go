package handler

import (
	"log/slog"
	"net/http"

	"fiducia/internal/domain/models"
	"fiducia/internal/domain/services"
	"fiducia/internal/httputil"
)

// DossierHandler handles the comptable-facing dossier lifecycle requests
type DossierHandler struct {
	dossiers services.DossierService
	logger   *slog.Logger
}

// NewDossierHandler creates a new dossier handler
func NewDossierHandler(dossiers services.DossierService, logger *slog.Logger) *DossierHandler {
	return &DossierHandler{
		dossiers: dossiers,
		logger:   logger,
	}
}

// CreateBatch creates one dossier per client from the request templates
// POST /api/dossiers/batch
func (h *DossierHandler) CreateBatch(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	var req services.CreateBatchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ComptableID = principal.ID

	result, err := h.dossiers.CreateBatch(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

// Duplicate clones a dossier's structure to other clients
// POST /api/dossiers/{id}/duplicate
func (h *DossierHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	var req services.DuplicateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.DossierID = r.PathValue("id")
	req.ComptableID = principal.ID

	result, err := h.dossiers.Duplicate(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}

// Progress summarizes the comptable's dossiers
// GET /api/dossiers/progress?batch_id=
func (h *DossierHandler) Progress(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	var batchID *string
	if v := r.URL.Query().Get("batch_id"); v != "" {
		batchID = &v
	}

	summary, err := h.dossiers.Progress(r.Context(), principal.ID, batchID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, summary)
}

// Details returns the full dossier view
// GET /api/dossiers/{id}
func (h *DossierHandler) Details(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	detail, err := h.dossiers.Details(r.Context(), r.PathValue("id"), principal.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, detail)
}

// Validate is the complete-dossier sign-off
// POST /api/dossiers/{id}/validate
func (h *DossierHandler) Validate(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	var req services.SignOffRequest
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	req.DossierID = r.PathValue("id")
	req.ComptableID = principal.ID

	result, err := h.dossiers.ValidateComplete(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// Archive archives a complete dossier
// POST /api/dossiers/{id}/archive
func (h *DossierHandler) Archive(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	result, err := h.dossiers.Archive(r.Context(), r.PathValue("id"), principal.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// BatchSummary returns a batch with per-dossier progress
// GET /api/batches/{id}
func (h *DossierHandler) BatchSummary(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleComptable)
	if !ok {
		return
	}

	summary, err := h.dossiers.BatchSummary(r.Context(), r.PathValue("id"), principal.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, summary)
}
