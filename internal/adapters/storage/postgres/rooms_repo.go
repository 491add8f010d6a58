package postgres

import (
	"context"
	"database/sql"
	"errors"

	"pet-adoption-hub/internal/domain/rooms"
)

const roomColumns = `id, kind, owner_id, shelter_id, pet_id, application_id, status, created_at, updated_at, closed_at`

type RoomsRepo struct {
	db *sql.DB
}

func NewRoomsRepo(db *sql.DB) *RoomsRepo {
	return &RoomsRepo{db: db}
}

// Create se apoya en el UNIQUE (kind, owner, shelter, pet): si otro request
// la creó primero, devuelve esa sala sin tocarla.
func (r *RoomsRepo) Create(ctx context.Context, room rooms.Room) (rooms.Room, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (kind, owner_id, shelter_id, pet_id) DO NOTHING
		RETURNING `+roomColumns,
		room.ID,
		string(room.Kind),
		room.OwnerID,
		room.ShelterID,
		room.PetID,
		room.ApplicationID,
		string(room.Status),
		room.CreatedAt,
		room.UpdatedAt,
		toNullTime(room.ClosedAt),
	)
	stored, err := scanRoom(row)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return rooms.Room{}, false, err
	}

	existing, err := r.FindByKey(ctx, room.Key())
	if err != nil {
		return rooms.Room{}, false, err
	}
	return existing, false, nil
}

func (r *RoomsRepo) FindByKey(ctx context.Context, key rooms.Key) (rooms.Room, error) {
	return findRoom(ctx, r.db, key)
}

func (r *RoomsRepo) CompareAndUpdate(ctx context.Context, next rooms.Room, prevStatus rooms.Status, prevApplicationID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE rooms
		SET application_id = $2, status = $3, updated_at = $4, closed_at = $5
		WHERE id = $1 AND status = $6 AND application_id = $7
	`,
		next.ID,
		next.ApplicationID,
		string(next.Status),
		next.UpdatedAt,
		toNullTime(next.ClosedAt),
		string(prevStatus),
		prevApplicationID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RoomsRepo) AppendMessage(ctx context.Context, m rooms.Message) error {
	return appendMessage(ctx, r.db, m)
}

func (r *RoomsRepo) ListMessages(ctx context.Context, roomID string) ([]rooms.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, room_id, sender_id, sender_model, body, created_at
		FROM room_messages
		WHERE room_id = $1
		ORDER BY created_at ASC
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]rooms.Message, 0)
	for rows.Next() {
		var m rooms.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.SenderModel, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func findRoom(ctx context.Context, q querier, key rooms.Key) (rooms.Room, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+roomColumns+`
		FROM rooms
		WHERE kind = $1 AND owner_id = $2 AND shelter_id = $3 AND pet_id = $4
	`, string(key.Kind), key.OwnerID, key.ShelterID, key.PetID)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return rooms.Room{}, rooms.ErrNotFound
	}
	return room, err
}

func appendMessage(ctx context.Context, q querier, m rooms.Message) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO room_messages (id, room_id, sender_id, sender_model, body, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, m.ID, m.RoomID, m.SenderID, m.SenderModel, m.Body, m.CreatedAt)
	return err
}

func scanRoom(row scanner) (rooms.Room, error) {
	var (
		room   rooms.Room
		kind   string
		status string
		closed sql.NullTime
	)
	if err := row.Scan(
		&room.ID,
		&kind,
		&room.OwnerID,
		&room.ShelterID,
		&room.PetID,
		&room.ApplicationID,
		&status,
		&room.CreatedAt,
		&room.UpdatedAt,
		&closed,
	); err != nil {
		return rooms.Room{}, err
	}
	room.Kind = rooms.Kind(kind)
	room.Status = rooms.Status(status)
	room.ClosedAt = fromNullTime(closed)
	return room, nil
}
