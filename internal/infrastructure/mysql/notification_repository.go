package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"notification-system/internal/domain"

	_ "github.com/go-sql-driver/mysql"
)

type MySQLNotificationRepository struct {
	db *sql.DB
}

func NewMySQLNotificationRepository(db *sql.DB) *MySQLNotificationRepository {
	return &MySQLNotificationRepository{db: db}
}

// EnsureSchema creates the notifications table if it does not exist yet.
func (r *MySQLNotificationRepository) EnsureSchema(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS notifications (
            id         CHAR(36)     NOT NULL,
            user_id    VARCHAR(64)  NOT NULL,
            message    TEXT         NOT NULL,
            is_read    TINYINT(1)   NOT NULL DEFAULT 0,
            created_at DATETIME(6)  NOT NULL,
            PRIMARY KEY (id),
            KEY idx_notifications_user_created (user_id, created_at)
        )
    `
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}
	return nil
}

func (r *MySQLNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	query := `
        INSERT INTO notifications (id, user_id, message, is_read, created_at)
        VALUES (?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		notification.ID, notification.UserID, notification.Message,
		notification.Read, notification.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (r *MySQLNotificationRepository) ListByRecipient(ctx context.Context, userID string, limit int) ([]*domain.Notification, error) {
	query := `
        SELECT id, user_id, message, is_read, created_at
        FROM notifications
        WHERE user_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (r *MySQLNotificationRepository) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	query := `
        UPDATE notifications SET is_read = 1
        WHERE id = ? AND user_id = ?
    `
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	// An update that touched nothing means either already read or missing;
	// the follow-up read distinguishes the two and returns the record.
	selectQuery := `
        SELECT id, user_id, message, is_read, created_at
        FROM notifications
        WHERE id = ? AND user_id = ?
    `
	var n domain.Notification
	err := r.db.QueryRowContext(ctx, selectQuery, id, userID).
		Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load notification: %w", err)
	}

	return &n, nil
}
