package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/theLastOfCats/storefront/internal/model"
)

func (db *DB) ListNotifications(userID string, f ListFilter) ([]model.Notification, model.Pagination, int, error) {
	var total, unread int
	err := db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0) FROM notifications WHERE user_id = ?`, userID).
		Scan(&total, &unread)
	if err != nil {
		return nil, model.Pagination{}, 0, err
	}
	page := model.NewPagination(f.Page, f.Limit, total)

	rows, err := db.Query(`SELECT id, user_id, title, body, is_read, created_at FROM notifications
		WHERE user_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`, userID, page.Limit, page.Offset())
	if err != nil {
		return nil, model.Pagination{}, 0, err
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, model.Pagination{}, 0, err
		}
		notifications = append(notifications, n)
	}
	return notifications, page, unread, rows.Err()
}

func (db *DB) CreateNotification(userID, title, body string) (*model.Notification, error) {
	n := &model.Notification{ID: uuid.NewString(), UserID: userID, Title: title, Body: body, CreatedAt: time.Now().UnixMilli()}
	_, err := db.Exec(`INSERT INTO notifications (id, user_id, title, body, is_read, created_at) VALUES (?, ?, ?, ?, 0, ?)`,
		n.ID, n.UserID, n.Title, n.Body, n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// MarkNotificationRead returns ErrNotFound when the notification is not the user's.
func (db *DB) MarkNotificationRead(userID, id string) error {
	res, err := db.Exec(`UPDATE notifications SET is_read = 1 WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return err
	}
	// MySQL reports zero affected rows for an already-read row, so confirm existence.
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := db.QueryRow(`SELECT EXISTS(SELECT 1 FROM notifications WHERE user_id = ? AND id = ?)`, userID, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (db *DB) MarkAllNotificationsRead(userID string) error {
	_, err := db.Exec(`UPDATE notifications SET is_read = 1 WHERE user_id = ?`, userID)
	return err
}
