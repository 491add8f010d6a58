package notifications

import "context"

type Repository interface {
	Create(ctx context.Context, n Notification) error
	// ListByUser devuelve las más recientes primero; limit <= 0 = sin límite.
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	// MarkRead debe devolver error si la notificación no es del usuario.
	MarkRead(ctx context.Context, userID, id string) (Notification, error)
}
