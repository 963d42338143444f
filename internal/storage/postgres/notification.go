package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-api/internal/domain/notification"
)

const (
	notificationColumns = `id, user_id, message, type, is_read, COALESCE(related_id, ''), created_at`

	insertNotificationSQL = `INSERT INTO notifications (id, user_id, message, type, related_id)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))`

	listNotificationsSQL = `SELECT ` + notificationColumns + ` FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`

	countUnreadSQL = `SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read`

	getNotificationSQL = `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	markReadSQL = `UPDATE notifications SET is_read = TRUE WHERE id = $1
		RETURNING ` + notificationColumns

	markAllReadSQL = `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`
)

var _ notification.Repository = (*NotificationRepository)(nil)

// NotificationRepository implements notification.Repository backed by
// PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository that uses the
// given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// InsertMany appends the given notifications in one batched round trip.
func (r *NotificationRepository) InsertMany(ctx context.Context, notifications []notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range notifications {
		batch.Queue(insertNotificationSQL, n.ID, n.UserID, n.Message, n.Type, n.RelatedID)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("inserting %d notifications: %w", len(notifications), err)
	}
	return nil
}

// ListByUser returns up to limit of a user's notifications newest-first,
// plus the unread count.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]notification.Notification, int, error) {
	rows, err := r.pool.Query(ctx, listNotificationsSQL, userID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications for %q: %w", userID, err)
	}
	notifications, err := pgx.CollectRows(rows, scanNotification)
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications for %q: %w", userID, err)
	}

	var unread int
	if err := r.pool.QueryRow(ctx, countUnreadSQL, userID).Scan(&unread); err != nil {
		return nil, 0, fmt.Errorf("counting unread notifications for %q: %w", userID, err)
	}
	return notifications, unread, nil
}

// GetByID returns a single notification.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	rows, err := r.pool.Query(ctx, getNotificationSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting notification %q: %w", id, err)
	}

	n, err := pgx.CollectExactlyOneRow(rows, scanNotification)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("getting notification %q: %w", id, err)
	}
	return &n, nil
}

// MarkRead flips a notification's read flag and returns the updated row.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	rows, err := r.pool.Query(ctx, markReadSQL, id)
	if err != nil {
		return nil, fmt.Errorf("marking notification %q read: %w", id, err)
	}

	n, err := pgx.CollectExactlyOneRow(rows, scanNotification)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("marking notification %q read: %w", id, err)
	}
	return &n, nil
}

// MarkAllRead flips every unread notification for the user.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, markAllReadSQL, userID); err != nil {
		return fmt.Errorf("marking all notifications read for %q: %w", userID, err)
	}
	return nil
}

func scanNotification(row pgx.CollectableRow) (notification.Notification, error) {
	var n notification.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.IsRead, &n.RelatedID, &n.CreatedAt)
	return n, err
}
