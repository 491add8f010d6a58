package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"pet-adoption-hub/internal/domain/notifications"
)

const notificationColumns = `id, user_id, user_model, type, title, message, metadata, read, created_at`

type NotificationsRepo struct {
	db *sql.DB
}

func NewNotificationsRepo(db *sql.DB) *NotificationsRepo {
	return &NotificationsRepo{db: db}
}

func (r *NotificationsRepo) Create(ctx context.Context, n notifications.Notification) error {
	var meta []byte
	if len(n.Metadata) > 0 {
		b, err := json.Marshal(n.Metadata)
		if err != nil {
			return err
		}
		meta = b
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		n.ID,
		n.UserID,
		string(n.UserModel),
		string(n.Type),
		n.Title,
		n.Message,
		meta,
		n.Read,
		n.CreatedAt,
	)
	return err
}

func (r *NotificationsRepo) ListByUser(ctx context.Context, userID string, limit int) ([]notifications.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]notifications.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationsRepo) MarkRead(ctx context.Context, userID, id string) (notifications.Notification, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE notifications SET read = TRUE
		WHERE id = $1 AND user_id = $2
		RETURNING `+notificationColumns,
		id, userID,
	)
	n, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return notifications.Notification{}, notifications.ErrNotFound
	}
	return n, err
}

func scanNotification(row scanner) (notifications.Notification, error) {
	var (
		n         notifications.Notification
		userModel string
		typ       string
		meta      []byte
	)
	if err := row.Scan(&n.ID, &n.UserID, &userModel, &typ, &n.Title, &n.Message, &meta, &n.Read, &n.CreatedAt); err != nil {
		return notifications.Notification{}, err
	}
	n.UserModel = notifications.UserModel(userModel)
	n.Type = notifications.Type(typ)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return notifications.Notification{}, err
		}
	}
	return n, nil
}
