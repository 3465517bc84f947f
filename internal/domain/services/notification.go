package services

import (
	"context"

	"fiducia/internal/domain/models"
)

// NotificationService exposes the client's notification feed. Enqueueing happens
// inside the lifecycle operations; delivery is an external collaborator.
type NotificationService interface {
	List(ctx context.Context, clientID string, limit, offset int) (*NotificationPage, error)
	MarkRead(ctx context.Context, notificationID, clientID string) (*models.Notification, error)
}

// NotificationPage is one page of a client's feed.
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	TotalCount    int                   `json:"total_count"`
	UnreadCount   int                   `json:"unread_count"`
	HasMore       bool                  `json:"has_more"`
}
