package rooms

import "context"

type Repository interface {
	// Create inserta si no existe una sala con la misma Key. Si ya existe
	// devuelve la existente con created=false (sin modificarla).
	Create(ctx context.Context, r Room) (stored Room, created bool, err error)
	FindByKey(ctx context.Context, key Key) (Room, error)

	// CompareAndUpdate escribe next solo si la sala sigue en prevStatus y
	// apunta a prevApplicationID. ok=false si otro request la cambió antes.
	CompareAndUpdate(ctx context.Context, next Room, prevStatus Status, prevApplicationID string) (ok bool, err error)

	AppendMessage(ctx context.Context, m Message) error
	ListMessages(ctx context.Context, roomID string) ([]Message, error)
}
