package handler

import (
	"log/slog"
	"net/http"

	"fiducia/internal/domain/models"
	"fiducia/internal/domain/services"
	"fiducia/internal/httputil"
)

// ClientHandler serves the client portal: dossier listings and document intake
type ClientHandler struct {
	intake services.IntakeService
	logger *slog.Logger
}

// NewClientHandler creates a new client handler
func NewClientHandler(intake services.IntakeService, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{
		intake: intake,
		logger: logger,
	}
}

// Dossiers lists the client's dossiers with recomputed progress
// GET /api/client/dossiers
func (h *ClientHandler) Dossiers(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleClient)
	if !ok {
		return
	}

	list, err := h.intake.Dossiers(r.Context(), principal.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, list)
}

// DossierDetails returns one dossier from the client's point of view
// GET /api/client/dossiers/{id}
func (h *ClientHandler) DossierDetails(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleClient)
	if !ok {
		return
	}

	detail, err := h.intake.DossierDetails(r.Context(), r.PathValue("id"), principal.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, detail)
}

// Upload records submitted file metadata against a document request
// POST /api/client/dossiers/{id}/requests/{requestID}/uploads
func (h *ClientHandler) Upload(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleClient)
	if !ok {
		return
	}

	var req services.IntakeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.DossierID = r.PathValue("id")
	req.RequestID = r.PathValue("requestID")
	req.ClientID = principal.ID

	result, err := h.intake.Upload(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, result)
}
