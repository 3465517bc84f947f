package handler

import (
	"log/slog"
	"net/http"

	"fiducia/internal/domain/models"
	"fiducia/internal/domain/services"
	"fiducia/internal/httputil"
)

// StatsHandler serves the dashboard statistics for both roles
type StatsHandler struct {
	dossiers services.DossierService
	intake   services.IntakeService
	logger   *slog.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(dossiers services.DossierService, intake services.IntakeService, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{
		dossiers: dossiers,
		intake:   intake,
		logger:   logger,
	}
}

// Statistics dispatches on the caller's role
// GET /api/stats
func (h *StatsHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	principal := httputil.GetPrincipal(r)
	if principal == nil {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch principal.Role {
	case models.RoleComptable:
		stats, err := h.dossiers.Statistics(r.Context(), principal.ID)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, stats)
	case models.RoleClient:
		stats, err := h.intake.Statistics(r.Context(), principal.ID)
		if err != nil {
			handleError(w, err)
			return
		}
		httputil.RespondJSON(w, http.StatusOK, stats)
	default:
		httputil.RespondError(w, http.StatusForbidden, "insufficient role")
	}
}
