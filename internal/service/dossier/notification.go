package dossier

import (
	"context"
	"fmt"
	"log/slog"

	"fiducia/internal/config"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/repositories"
	"fiducia/internal/domain/services"
)

// notificationService implements the NotificationService interface
type notificationService struct {
	notifications repositories.NotificationRepository
	logger        *slog.Logger
}

// NewNotificationService creates the client notification feed service.
func NewNotificationService(notifications repositories.NotificationRepository, logger *slog.Logger) services.NotificationService {
	return &notificationService{notifications: notifications, logger: logger}
}

// List returns one page of a client's notifications, newest first.
func (s *notificationService) List(ctx context.Context, clientID string, limit, offset int) (*services.NotificationPage, error) {
	if limit <= 0 || limit > config.MaxNotificationLimit {
		limit = config.DefaultNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.notifications.ListByClient(ctx, clientID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.notifications.CountByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	unread, err := s.notifications.CountUnreadByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	return &services.NotificationPage{
		Notifications: notifications,
		TotalCount:    total,
		UnreadCount:   unread,
		HasMore:       offset+len(notifications) < total,
	}, nil
}

// MarkRead marks one of the client's notifications as read.
func (s *notificationService) MarkRead(ctx context.Context, notificationID, clientID string) (*models.Notification, error) {
	notification, err := s.notifications.MarkRead(ctx, notificationID, clientID)
	if err != nil {
		return nil, fmt.Errorf("notification %s: %w", notificationID, err)
	}
	return notification, nil
}
