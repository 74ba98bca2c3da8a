package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/tagwright/tagwright-server/internal/domain"
	"github.com/tagwright/tagwright-server/internal/store"
)

// CreateNotification inserts a notification and sets n.ID.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, from_user_id, title, body, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		n.UserID, nullString(n.FromUserID), n.Title, n.Body, formatTime(n.CreatedAt))
	if err != nil {
		return err
	}
	n.ID, err = res.LastInsertId()
	return err
}

// ListNotifications returns a user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, params store.PaginationParams) ([]*domain.Notification, error) {
	params.Validate()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, from_user_id, title, body, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY id DESC LIMIT ? OFFSET ?`,
		userID, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*domain.Notification{}
	for rows.Next() {
		var (
			n         domain.Notification
			from      sql.NullString
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &from, &n.Title, &n.Body, &createdAt); err != nil {
			return nil, err
		}
		n.FromUserID = from.String
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}
