package rooms

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-adoption-hub/internal/domain/notifications"
	"pet-adoption-hub/internal/platform/apperr"
	"pet-adoption-hub/internal/platform/logger"
	"pet-adoption-hub/internal/platform/metrics"
	"pet-adoption-hub/internal/ports/realtime"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput  = apperr.New(apperr.CodeValidation, "invalid input")
	ErrNotFound      = apperr.New(apperr.CodeNotFound, "room not found")
	ErrBlocked       = apperr.New(apperr.CodeBlocked, "room is blocked")
	ErrAlreadyClosed = apperr.New(apperr.CodeAlreadyClosed, "room is already closed")
	ErrContended     = apperr.New(apperr.CodeConflict, "room changed concurrently, retry")

	ErrApplicationActive = apperr.New(apperr.CodeApplicationActive, "room can only be closed once the application is rejected")
	ErrNotCurrentOwner   = apperr.New(apperr.CodeNotCurrentOwner, "room belongs to another application")
)

// maxUpdateAttempts acota los reintentos del compare-and-update.
const maxUpdateAttempts = 3

// Notifier es el fan-out de notificaciones (notifications.Service).
type Notifier interface {
	Notify(ctx context.Context, in notifications.NotifyInput) (notifications.Notification, error)
	Push(ctx context.Context, userID, event string, payload any)
}

type Service struct {
	repo     Repository
	notifier Notifier
	log      logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

type OpenResult struct {
	Room   Room
	Action Action
}

type statusPayload struct {
	RoomID        string `json:"roomId"`
	Kind          Kind   `json:"kind"`
	Status        Status `json:"status"`
	Action        Action `json:"action"`
	PetID         string `json:"petId"`
	ApplicationID string `json:"applicationId"`
}

// CreateOrReopen es idempotente: se dispara automáticamente al pasar a
// review y también desde el botón del shelter para la misma solicitud.
//
//   - no existe: se crea open (created)
//   - blocked: ErrBlocked
//   - closed: pasa a open, repunta applicationId y deja mensaje de sistema (reopened)
//   - open con otra solicitud: repunta y deja mensaje de sistema (already_exists)
//   - open con la misma solicitud: sin efectos (already_exists)
func (s *Service) CreateOrReopen(ctx context.Context, kind Kind, p Participants) (OpenResult, error) {
	if err := validate(kind, p); err != nil {
		return OpenResult{}, err
	}
	key := p.Key(kind)

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		existing, err := s.repo.FindByKey(ctx, key)
		if errors.Is(err, ErrNotFound) {
			now := s.now()
			stored, created, err := s.repo.Create(ctx, Room{
				ID:            uuid.NewString(),
				Kind:          kind,
				OwnerID:       p.OwnerID,
				ShelterID:     p.ShelterID,
				PetID:         p.PetID,
				ApplicationID: p.ApplicationID,
				Status:        StatusOpen,
				CreatedAt:     now,
				UpdatedAt:     now,
			})
			if err != nil {
				return OpenResult{}, err
			}
			if created {
				s.pushStatus(ctx, stored, ActionCreated)
				return OpenResult{Room: stored, Action: ActionCreated}, nil
			}
			// otro request la creó primero; seguimos con las reglas normales
			existing = stored
		} else if err != nil {
			return OpenResult{}, err
		}

		switch existing.Status {
		case StatusBlocked:
			return OpenResult{Room: existing}, ErrBlocked

		case StatusClosed:
			next := existing
			next.Status = StatusOpen
			next.ApplicationID = p.ApplicationID
			next.ClosedAt = nil
			next.UpdatedAt = s.now()

			ok, err := s.repo.CompareAndUpdate(ctx, next, existing.Status, existing.ApplicationID)
			if err != nil {
				return OpenResult{}, err
			}
			if !ok {
				continue
			}
			s.appendSystemMessage(ctx, next, "New application attempt started. This "+string(kind)+" was reopened.")
			s.pushStatus(ctx, next, ActionReopened)
			return OpenResult{Room: next, Action: ActionReopened}, nil

		default:
			if existing.ApplicationID == p.ApplicationID {
				return OpenResult{Room: existing, Action: ActionAlreadyExists}, nil
			}

			next := existing
			next.ApplicationID = p.ApplicationID
			next.UpdatedAt = s.now()

			ok, err := s.repo.CompareAndUpdate(ctx, next, existing.Status, existing.ApplicationID)
			if err != nil {
				return OpenResult{}, err
			}
			if !ok {
				continue
			}
			s.appendSystemMessage(ctx, next, "New application attempt started.")
			s.pushStatus(ctx, next, ActionAlreadyExists)
			return OpenResult{Room: next, Action: ActionAlreadyExists}, nil
		}
	}
	return OpenResult{}, ErrContended
}

// Close exige que la solicitud ya no esté activa y que sea la dueña actual de la sala.
func (s *Service) Close(ctx context.Context, kind Kind, p Participants) (Room, error) {
	if err := validate(kind, p); err != nil {
		return Room{}, err
	}
	if p.ApplicationActive {
		return Room{}, ErrApplicationActive
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		existing, err := s.repo.FindByKey(ctx, p.Key(kind))
		if err != nil {
			return Room{}, err
		}
		if existing.ApplicationID != p.ApplicationID {
			return Room{}, ErrNotCurrentOwner
		}
		switch existing.Status {
		case StatusClosed:
			return existing, ErrAlreadyClosed
		case StatusBlocked:
			return existing, ErrBlocked
		}

		now := s.now()
		next := existing
		next.Status = StatusClosed
		next.ClosedAt = &now
		next.UpdatedAt = now

		ok, err := s.repo.CompareAndUpdate(ctx, next, existing.Status, existing.ApplicationID)
		if err != nil {
			return Room{}, err
		}
		if !ok {
			continue
		}

		s.appendSystemMessage(ctx, next, "The shelter closed this "+string(kind)+".")
		s.pushStatus(ctx, next, ActionClosed)
		if s.notifier != nil {
			_, _ = s.notifier.Notify(ctx, notifications.NotifyInput{
				UserID:    next.OwnerID,
				UserModel: notifications.UserOwner,
				Type:      notifications.TypeRoomClosed,
				Title:     kindLabel(kind) + " closed",
				Message:   "The shelter closed the " + string(kind) + " for " + petLabel(p) + ".",
				Metadata: map[string]any{
					"roomId":        next.ID,
					"kind":          string(kind),
					"petId":         next.PetID,
					"applicationId": next.ApplicationID,
				},
			})
		}
		return next, nil
	}
	return Room{}, ErrContended
}

// Block es administrativo y terminal. Bloquear una sala ya bloqueada no es error.
func (s *Service) Block(ctx context.Context, kind Kind, p Participants) (Room, error) {
	if err := validate(kind, p); err != nil {
		return Room{}, err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		existing, err := s.repo.FindByKey(ctx, p.Key(kind))
		if err != nil {
			return Room{}, err
		}
		if existing.ApplicationID != p.ApplicationID {
			return Room{}, ErrNotCurrentOwner
		}
		if existing.Status == StatusBlocked {
			return existing, nil
		}

		next := existing
		next.Status = StatusBlocked
		next.UpdatedAt = s.now()

		ok, err := s.repo.CompareAndUpdate(ctx, next, existing.Status, existing.ApplicationID)
		if err != nil {
			return Room{}, err
		}
		if !ok {
			continue
		}
		s.pushStatus(ctx, next, ActionBlocked)
		return next, nil
	}
	return Room{}, ErrContended
}

// NotifyOpened avisa al owner que el shelter abrió (o reabrió) una sala.
func (s *Service) NotifyOpened(ctx context.Context, res OpenResult, p Participants) {
	if s.notifier == nil || res.Action == ActionAlreadyExists {
		return
	}
	_, _ = s.notifier.Notify(ctx, notifications.NotifyInput{
		UserID:    res.Room.OwnerID,
		UserModel: notifications.UserOwner,
		Type:      notifications.TypeRoomOpened,
		Title:     kindLabel(res.Room.Kind) + " available",
		Message:   "The shelter opened a " + string(res.Room.Kind) + " about " + petLabel(p) + ".",
		Metadata: map[string]any{
			"roomId":        res.Room.ID,
			"kind":          string(res.Room.Kind),
			"action":        string(res.Action),
			"petId":         res.Room.PetID,
			"applicationId": res.Room.ApplicationID,
		},
	})
}

func (s *Service) Status(ctx context.Context, kind Kind, p Participants) (Room, error) {
	if err := validate(kind, p); err != nil {
		return Room{}, err
	}
	return s.repo.FindByKey(ctx, p.Key(kind))
}

func (s *Service) Messages(ctx context.Context, kind Kind, p Participants) ([]Message, error) {
	room, err := s.Status(ctx, kind, p)
	if err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, room.ID)
}

// NewSystemMessage arma un mensaje de sistema para una sala.
func NewSystemMessage(roomID, body string, now time.Time) Message {
	return Message{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		SenderID:    SenderSystem,
		SenderModel: SenderSystem,
		Body:        body,
		CreatedAt:   now,
	}
}

// StatusEvent devuelve el evento realtime correspondiente al tipo de sala.
func StatusEvent(kind Kind) string {
	if kind == KindMeeting {
		return realtime.EventRoomMeetingStatus
	}
	return realtime.EventRoomChatStatus
}

// Las salas son estado derivado: si falla el mensaje de sistema se loguea
// y la transición se mantiene.
func (s *Service) appendSystemMessage(ctx context.Context, r Room, body string) {
	if err := s.repo.AppendMessage(ctx, NewSystemMessage(r.ID, body, s.now())); err != nil {
		s.log.Warn("room system message failed", map[string]any{
			"room_id":        r.ID,
			"application_id": r.ApplicationID,
			"error":          err,
		})
	}
}

func (s *Service) pushStatus(ctx context.Context, r Room, action Action) {
	metrics.RoomActions.WithLabelValues(string(r.Kind), string(action)).Inc()
	if s.notifier == nil {
		return
	}
	payload := statusPayload{
		RoomID:        r.ID,
		Kind:          r.Kind,
		Status:        r.Status,
		Action:        action,
		PetID:         r.PetID,
		ApplicationID: r.ApplicationID,
	}
	event := StatusEvent(r.Kind)
	s.notifier.Push(ctx, r.OwnerID, event, payload)
	s.notifier.Push(ctx, r.ShelterID, event, payload)
}

func validate(kind Kind, p Participants) error {
	if !kind.Valid() {
		return ErrInvalidInput
	}
	if strings.TrimSpace(p.OwnerID) == "" || strings.TrimSpace(p.ShelterID) == "" || strings.TrimSpace(p.PetID) == "" {
		return ErrInvalidInput
	}
	return nil
}

func kindLabel(kind Kind) string {
	if kind == KindMeeting {
		return "Meeting"
	}
	return "Chat"
}

func petLabel(p Participants) string {
	if strings.TrimSpace(p.PetName) != "" {
		return p.PetName
	}
	return "this pet"
}
