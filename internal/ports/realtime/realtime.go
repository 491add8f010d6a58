package realtime

import (
	"context"
	"encoding/json"
)

// Eventos emitidos hacia los clientes conectados.
const (
	EventNotificationNew          = "notification:new"
	EventRoomChatStatus           = "room:chat:status"
	EventRoomMeetingStatus        = "room:meeting:status"
	EventApplicationStatusUpdated = "application:status:updated"
	EventApplicationDeleted       = "application:deleted"
	EventApplicationArchived      = "application:archived"
	EventDashboardUpdate          = "dashboard:update"
)

// Publisher es fire-and-forget: entrega at-most-once.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// Message es lo que recibe un suscriptor.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Subscriber entrega los mensajes de un canal hasta que se llama a cancel
// o se cancela ctx. El canal devuelto se cierra al terminar.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan Message, func(), error)
}

// UserChannel es el canal por usuario ("user:{id}").
func UserChannel(userID string) string {
	return "user:" + userID
}
