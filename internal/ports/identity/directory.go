package identity

import "context"

// Directory resuelve nombres visibles de usuarios (owners y shelters).
// Solo se usa para el texto de las notificaciones, nunca para lógica.
type Directory interface {
	GetDisplayName(ctx context.Context, userID string) (string, error)
}
