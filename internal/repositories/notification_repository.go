package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"venue_pos_backend/internal/models"
)

// NotificationRepository is the sink notifications are delivered to.
type NotificationRepository interface {
	// CreateNotification is idempotent on the notification id so redelivery is harmless.
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotifications(ctx context.Context, filters models.NotificationFilters) ([]models.Notification, error)
	// MarkNotificationRead stamps read_at on a notification addressed to the given role or user.
	MarkNotificationRead(ctx context.Context, id string, role models.Role, userID int64, at time.Time) error
}

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := executor(ctx, r.db).ExecContext(ctx,
		`INSERT INTO notifications (id, target_role, target_user_id, message, related_entity_type, related_entity_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
		n.ID, n.TargetRole, n.TargetUserID, n.Message, n.RelatedEntityType, n.RelatedEntityID, n.CreatedAt,
	)
	if err != nil {
		return mapPQError(err, fmt.Sprintf("storing notification %s", n.ID))
	}
	return nil
}

func (r *notificationRepository) GetNotifications(ctx context.Context, filters models.NotificationFilters) ([]models.Notification, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := executor(ctx, r.db).QueryContext(ctx,
		`SELECT id, target_role, target_user_id, message, related_entity_type, related_entity_id, created_at, read_at
		 FROM notifications
		 WHERE (target_role = $1 OR target_user_id = $2) AND ($3 = FALSE OR read_at IS NULL)
		 ORDER BY created_at DESC
		 LIMIT $4`,
		filters.Role, filters.UserID, filters.UnreadOnly, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: getting notifications: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.TargetRole, &n.TargetUserID, &n.Message, &n.RelatedEntityType, &n.RelatedEntityID, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("%w: scanning notification: %v", ErrDatabaseError, err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *notificationRepository) MarkNotificationRead(ctx context.Context, id string, role models.Role, userID int64, at time.Time) error {
	result, err := executor(ctx, r.db).ExecContext(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, $1)
		 WHERE id = $2 AND (target_role = $3 OR target_user_id = $4)`,
		at, id, role, userID,
	)
	if err != nil {
		return fmt.Errorf("%w: marking notification %s read: %v", ErrDatabaseError, id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected for notification %s: %v", ErrDatabaseError, id, err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
