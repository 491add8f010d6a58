package notifications

import (
	"context"
	"strings"
	"time"

	"pet-adoption-hub/internal/platform/apperr"
	"pet-adoption-hub/internal/platform/logger"
	"pet-adoption-hub/internal/platform/metrics"
	"pet-adoption-hub/internal/ports/realtime"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = apperr.New(apperr.CodeValidation, "invalid input")
	ErrNotFound     = apperr.New(apperr.CodeNotFound, "notification not found")
)

const defaultListLimit = 50

// Service implementa el fan-out: escritura durable primero y después un push
// best-effort al canal user:{id}. Un push fallido nunca falla la escritura.
type Service struct {
	repo Repository
	pub  realtime.Publisher
	log  logger.Logger
	now  func() time.Time
}

func NewService(repo Repository, pub realtime.Publisher, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo: repo,
		pub:  pub,
		log:  log,
		now:  time.Now,
	}
}

type NotifyInput struct {
	UserID    string
	UserModel UserModel
	Type      Type
	Title     string
	Message   string
	Metadata  map[string]any
}

type newNotificationPayload struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Type     Type           `json:"type"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Notify persiste la notificación y la empuja como notification:new.
// Solo devuelve error si falla la escritura durable; los llamadores del
// workflow lo ignoran (ya quedó logueado).
func (s *Service) Notify(ctx context.Context, in NotifyInput) (Notification, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" || strings.TrimSpace(in.Title) == "" {
		return Notification{}, ErrInvalidInput
	}

	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		UserModel: in.UserModel,
		Type:      in.Type,
		Title:     strings.TrimSpace(in.Title),
		Message:   strings.TrimSpace(in.Message),
		Metadata:  in.Metadata,
		Read:      false,
		CreatedAt: s.now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		metrics.NotificationWriteFailures.Inc()
		s.log.Error("notification write failed", map[string]any{
			"user_id": userID,
			"type":    string(in.Type),
			"error":   err,
		})
		return Notification{}, err
	}

	s.Push(ctx, userID, realtime.EventNotificationNew, newNotificationPayload{
		ID:       n.ID,
		Title:    n.Title,
		Message:  n.Message,
		Type:     n.Type,
		Metadata: n.Metadata,
	})
	return n, nil
}

// Push publica un evento sin persistir nada. Los errores se loguean y se tragan.
func (s *Service) Push(ctx context.Context, userID, event string, payload any) {
	if s.pub == nil || strings.TrimSpace(userID) == "" {
		return
	}
	if err := s.pub.Publish(ctx, realtime.UserChannel(userID), event, payload); err != nil {
		metrics.RealtimePushFailures.WithLabelValues(event).Inc()
		s.log.Warn("realtime push failed", map[string]any{
			"user_id": userID,
			"event":   event,
			"error":   err,
		})
	}
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 || limit > 200 {
		limit = defaultListLimit
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	userID = strings.TrimSpace(userID)
	id = strings.TrimSpace(id)
	if userID == "" || id == "" {
		return Notification{}, ErrInvalidInput
	}
	n, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return Notification{}, ErrNotFound
	}
	return n, nil
}
