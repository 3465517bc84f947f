package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fiducia/internal/domain"
	"fiducia/internal/domain/models"
	"fiducia/internal/domain/repositories"
)

// PostgresNotificationRepository implements the NotificationRepository interface
type PostgresNotificationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(config *RepositoryConfig) repositories.NotificationRepository {
	return &PostgresNotificationRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create enqueues one notification
func (r *PostgresNotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		INSERT INTO %s (id, titre, message, type, client_id, comptable_id, lu, date_lecture, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.tables.Notifications)

	_, err := executor.Exec(ctx, query,
		notification.ID,
		notification.Titre,
		notification.Message,
		notification.Type,
		notification.ClientID,
		notification.ComptableID,
		notification.Lu,
		notification.DateLecture,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	return nil
}

// ListByClient returns one page of a client's notifications, newest first
func (r *PostgresNotificationRepository) ListByClient(ctx context.Context, clientID string, limit, offset int) ([]models.Notification, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		SELECT id, titre, message, type, client_id, comptable_id, lu, date_lecture, created_at
		FROM %s
		WHERE client_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, r.tables.Notifications)

	rows, err := executor.Query(ctx, query, clientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.ID,
			&n.Titre,
			&n.Message,
			&n.Type,
			&n.ClientID,
			&n.ComptableID,
			&n.Lu,
			&n.DateLecture,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}

// CountByClient counts all of a client's notifications
func (r *PostgresNotificationRepository) CountByClient(ctx context.Context, clientID string) (int, error) {
	return r.count(ctx, "client_id = $1", clientID)
}

// CountUnreadByClient counts the unread ones
func (r *PostgresNotificationRepository) CountUnreadByClient(ctx context.Context, clientID string) (int, error) {
	return r.count(ctx, "client_id = $1 AND lu = false", clientID)
}

func (r *PostgresNotificationRepository) count(ctx context.Context, where string, args ...interface{}) (int, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.tables.Notifications, where)

	var count int
	if err := executor.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips lu for a notification owned by clientID
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id, clientID string) (*models.Notification, error) {
	executor := GetExecutor(ctx, r.pool)
	query := fmt.Sprintf(`
		UPDATE %s
		SET lu = true, date_lecture = $1
		WHERE id = $2 AND client_id = $3
		RETURNING id, titre, message, type, client_id, comptable_id, lu, date_lecture, created_at
	`, r.tables.Notifications)

	var n models.Notification
	err := executor.QueryRow(ctx, query, time.Now(), id, clientID).Scan(
		&n.ID,
		&n.Titre,
		&n.Message,
		&n.Type,
		&n.ClientID,
		&n.ComptableID,
		&n.Lu,
		&n.DateLecture,
		&n.CreatedAt,
	)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}

	return &n, nil
}
