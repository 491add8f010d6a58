package memory

import (
	"sync"

	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/domain/archive"
	"pet-adoption-hub/internal/domain/locks"
	"pet-adoption-hub/internal/domain/notifications"
	"pet-adoption-hub/internal/domain/rooms"
)

// Store guarda todo el working set en un solo estado protegido por un mutex.
// Los repos son vistas sobre el mismo Store, así las operaciones que tocan
// varias tablas (withdraw, archive) son atómicas igual que en Postgres.
type Store struct {
	mu sync.RWMutex
	st state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

type state struct {
	locks         map[string]locks.PetLock
	apps          map[string]applications.Application
	archived      map[string]archive.ArchivedApplication
	rooms         map[string]rooms.Room
	roomsByKey    map[rooms.Key]string
	messages      map[string][]rooms.Message
	notifications map[string]notifications.Notification
}

func newState() state {
	return state{
		locks:         make(map[string]locks.PetLock),
		apps:          make(map[string]applications.Application),
		archived:      make(map[string]archive.ArchivedApplication),
		rooms:         make(map[string]rooms.Room),
		roomsByKey:    make(map[rooms.Key]string),
		messages:      make(map[string][]rooms.Message),
		notifications: make(map[string]notifications.Notification),
	}
}

// clone copia los mapas para que una transacción trabaje aislada.
func (s state) clone() state {
	out := newState()
	for k, v := range s.locks {
		out.locks[k] = v
	}
	for k, v := range s.apps {
		out.apps[k] = v
	}
	for k, v := range s.archived {
		out.archived[k] = v
	}
	for k, v := range s.rooms {
		out.rooms[k] = v
	}
	for k, v := range s.roomsByKey {
		out.roomsByKey[k] = v
	}
	for k, v := range s.messages {
		out.messages[k] = append([]rooms.Message(nil), v...)
	}
	for k, v := range s.notifications {
		out.notifications[k] = v
	}
	return out
}
