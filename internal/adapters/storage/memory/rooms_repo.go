package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"pet-adoption-hub/internal/domain/rooms"
)

type roomRepo struct {
	s *Store
}

func NewRoomRepo(s *Store) rooms.Repository {
	return &roomRepo{s: s}
}

func (r *roomRepo) Create(ctx context.Context, room rooms.Room) (rooms.Room, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(room.ID) == "" {
		return rooms.Room{}, false, errors.New("room id required")
	}
	if id, ok := r.s.st.roomsByKey[room.Key()]; ok {
		return r.s.st.rooms[id], false, nil
	}
	r.s.st.rooms[room.ID] = room
	r.s.st.roomsByKey[room.Key()] = room.ID
	return room, true, nil
}

func (r *roomRepo) FindByKey(ctx context.Context, key rooms.Key) (rooms.Room, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.st.findRoom(key)
}

func (r *roomRepo) CompareAndUpdate(ctx context.Context, next rooms.Room, prevStatus rooms.Status, prevApplicationID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.st.rooms[next.ID]
	if !ok || cur.Status != prevStatus || cur.ApplicationID != prevApplicationID {
		return false, nil
	}
	r.s.st.rooms[next.ID] = next
	return true, nil
}

func (r *roomRepo) AppendMessage(ctx context.Context, m rooms.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.appendMessage(m)
}

func (r *roomRepo) ListMessages(ctx context.Context, roomID string) ([]rooms.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := append([]rooms.Message(nil), r.s.st.messages[roomID]...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (st state) findRoom(key rooms.Key) (rooms.Room, error) {
	id, ok := st.roomsByKey[key]
	if !ok {
		return rooms.Room{}, rooms.ErrNotFound
	}
	return st.rooms[id], nil
}

func (st state) appendMessage(m rooms.Message) error {
	if _, ok := st.rooms[m.RoomID]; !ok {
		return rooms.ErrNotFound
	}
	st.messages[m.RoomID] = append(st.messages[m.RoomID], m)
	return nil
}
