package repositories

import (
	"context"

	"fiducia/internal/domain/models"
)

// NotificationRepository is the enqueue side of the notification collaborator plus
// the client-facing read endpoints.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByClient(ctx context.Context, clientID string, limit, offset int) ([]models.Notification, error)
	CountByClient(ctx context.Context, clientID string) (int, error)
	CountUnreadByClient(ctx context.Context, clientID string) (int, error)

	// MarkRead flips lu for a notification owned by clientID; a foreign or missing
	// id is domain.ErrNotFound.
	MarkRead(ctx context.Context, id, clientID string) (*models.Notification, error)
}
