package handler

import (
	"errors"
	"net/http"

	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	var authErr *domain.AuthorizationError
	var conflictErr *domain.ConflictError
	var httpErr domain.HTTPError

	switch {
	case errors.As(err, &authErr):
		httputil.RespondErrorWithExtras(w, authErr.StatusCode(), authErr.Message, map[string]interface{}{
			"invalid_ids": authErr.InvalidIDs,
		})
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &conflictErr):
		httputil.RespondError(w, http.StatusConflict, conflictErr.Error())
	case errors.As(err, &httpErr):
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requireRole extracts the principal and enforces its role. Writes the error
// response itself; callers bail out when ok is false.
func requireRole(w http.ResponseWriter, r *http.Request, role models.Role) (*models.Principal, bool) {
	principal := httputil.GetPrincipal(r)
	if principal == nil {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	if principal.Role != role {
		httputil.RespondError(w, http.StatusForbidden, "insufficient role")
		return nil, false
	}
	return principal, true
}

// HealthCheck reports liveness
// GET /health
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
