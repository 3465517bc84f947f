package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"fiducia/internal/domain/models"
	"fiducia/internal/domain/services"
	"fiducia/internal/httputil"
)

// NotificationHandler serves the client notification feed
type NotificationHandler struct {
	notifications services.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notifications services.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

// List returns a page of the client's notifications
// GET /api/client/notifications?limit=&offset=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleClient)
	if !ok {
		return
	}

	limit := parseQueryInt(r, "limit", 0)
	offset := parseQueryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	page, err := h.notifications.List(r.Context(), principal.ID, limit, offset)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// MarkRead marks one notification as read
// POST /api/client/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := requireRole(w, r, models.RoleClient)
	if !ok {
		return
	}

	notification, err := h.notifications.MarkRead(r.Context(), r.PathValue("id"), principal.ID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, notification)
}

func parseQueryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
