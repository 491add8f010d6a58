package archive

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/domain/notifications"
	"pet-adoption-hub/internal/domain/rooms"
	"pet-adoption-hub/internal/platform/apperr"
	"pet-adoption-hub/internal/platform/logger"
	"pet-adoption-hub/internal/platform/metrics"
	"pet-adoption-hub/internal/ports/realtime"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput               = apperr.New(apperr.CodeValidation, "invalid input")
	ErrNotArchivable              = apperr.New(apperr.CodeNotArchivable, "only rejected applications can be archived")
	ErrNotFoundOrAlreadyProcessed = apperr.New(apperr.CodeNotFoundOrAlreadyProcessed, "application not found or already processed")
	ErrTransactionFailed          = apperr.New(apperr.CodeTransactionFailed, "archive transaction failed")

	// ErrNotFound lo devuelven los repos para archivos inexistentes.
	ErrNotFound = apperr.New(apperr.CodeNotFound, "archived application not found")
)

const archivedChatMessage = "This application was archived by the shelter."

type Notifier interface {
	Notify(ctx context.Context, in notifications.NotifyInput) (notifications.Notification, error)
	Push(ctx context.Context, userID, event string, payload any)
}

type Service struct {
	uow      UnitOfWork
	repo     Repository
	notifier Notifier
	exporter Exporter
	log      logger.Logger
	now      func() time.Time
}

// NewService: exporter puede ser nil (sin copia fría).
func NewService(uow UnitOfWork, repo Repository, notifier Notifier, exporter Exporter, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		uow:      uow,
		repo:     repo,
		notifier: notifier,
		exporter: exporter,
		log:      log,
		now:      time.Now,
	}
}

// ArchiveRejected mueve una solicitud rechazada al archivo. Lectura, copia,
// borrado, liberación del lock y mensaje de chat van en una sola transacción;
// notificaciones y export ocurren después del commit y no lo revierten.
func (s *Service) ArchiveRejected(ctx context.Context, shelterID, applicationID string) (ArchivedApplication, error) {
	shelterID = strings.TrimSpace(shelterID)
	applicationID = strings.TrimSpace(applicationID)
	if shelterID == "" || applicationID == "" {
		return ArchivedApplication{}, ErrInvalidInput
	}

	start := s.now()
	now := start
	var out ArchivedApplication

	err := s.uow.WithinTx(ctx, func(tx Tx) error {
		a, err := tx.GetApplication(ctx, applicationID)
		if err != nil {
			if errors.Is(err, applications.ErrNotFound) {
				return ErrNotFoundOrAlreadyProcessed
			}
			return err
		}
		if a.ShelterID != shelterID {
			return ErrNotFoundOrAlreadyProcessed
		}
		if a.Status != applications.StatusRejected {
			return ErrNotArchivable
		}

		out = snapshot(uuid.NewString(), a, now)
		if err := tx.InsertArchived(ctx, out); err != nil {
			return err
		}
		if err := tx.DeleteApplication(ctx, a.ID); err != nil {
			return err
		}
		if _, err := tx.ReleaseLock(ctx, a.PetID, a.ID, now); err != nil {
			return err
		}

		chat, err := tx.FindRoom(ctx, applications.ParticipantsOf(a).Key(rooms.KindChat))
		if errors.Is(err, rooms.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.AppendMessage(ctx, rooms.NewSystemMessage(chat.ID, archivedChatMessage, now))
	})
	metrics.ArchiveDuration.Observe(s.now().Sub(start).Seconds())

	if err != nil {
		switch apperr.CodeOf(err) {
		case apperr.CodeNotArchivable, apperr.CodeNotFoundOrAlreadyProcessed:
			metrics.ArchiveCommits.WithLabelValues("refused").Inc()
			return ArchivedApplication{}, err
		}
		metrics.ArchiveCommits.WithLabelValues("aborted").Inc()
		s.log.Error("archive transaction aborted", map[string]any{
			"application_id": applicationID,
			"shelter_id":     shelterID,
			"error":          err,
		})
		return ArchivedApplication{}, apperr.Wrap(apperr.CodeTransactionFailed, ErrTransactionFailed.Message, err)
	}
	metrics.ArchiveCommits.WithLabelValues("committed").Inc()

	s.afterCommit(ctx, out)
	return out, nil
}

func (s *Service) afterCommit(ctx context.Context, a ArchivedApplication) {
	if s.notifier != nil {
		_, _ = s.notifier.Notify(ctx, notifications.NotifyInput{
			UserID:    a.ApplicantID,
			UserModel: notifications.UserOwner,
			Type:      notifications.TypeApplicationArchived,
			Title:     "Application closed",
			Message:   "Your application for " + a.PetName + " was closed and archived by the shelter.",
			Metadata: map[string]any{
				"applicationId": a.ApplicationID,
				"archivedId":    a.ID,
				"petId":         a.PetID,
				"petName":       a.PetName,
			},
		})

		payload := map[string]any{
			"applicationId": a.ApplicationID,
			"archivedId":    a.ID,
			"petId":         a.PetID,
		}
		s.notifier.Push(ctx, a.ApplicantID, realtime.EventApplicationArchived, payload)
		s.notifier.Push(ctx, a.ShelterID, realtime.EventApplicationArchived, payload)
		s.notifier.Push(ctx, a.ShelterID, realtime.EventDashboardUpdate, map[string]any{
			"type": "application:archived",
			"data": payload,
		})
	}

	if s.exporter != nil {
		if err := s.exporter.Export(ctx, a); err != nil {
			s.log.Warn("archive export failed", map[string]any{
				"archived_id":    a.ID,
				"application_id": a.ApplicationID,
				"error":          err,
			})
		}
	}
}

// Get: visible para el shelter y el applicant.
func (s *Service) Get(ctx context.Context, viewerID, id string) (ArchivedApplication, error) {
	a, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return ArchivedApplication{}, ErrNotFound
	}
	if viewerID != a.ShelterID && viewerID != a.ApplicantID {
		return ArchivedApplication{}, ErrNotFound
	}
	return a, nil
}

func (s *Service) ListByShelter(ctx context.Context, shelterID string) ([]ArchivedApplication, error) {
	shelterID = strings.TrimSpace(shelterID)
	if shelterID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByShelter(ctx, shelterID)
}

func (s *Service) ListByApplicant(ctx context.Context, applicantID string) ([]ArchivedApplication, error) {
	applicantID = strings.TrimSpace(applicantID)
	if applicantID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByApplicant(ctx, applicantID)
}

// HasArchived alimenta el botón "apply again" de applications.
func (s *Service) HasArchived(ctx context.Context, applicantID, petID string) (bool, error) {
	return s.repo.ExistsForApplicantAndPet(ctx, applicantID, petID)
}

// Participants resuelve una solicitud ya archivada (las salas siguen
// accesibles después del archivo).
func (s *Service) Participants(ctx context.Context, applicationID string) (rooms.Participants, error) {
	a, err := s.repo.GetByApplicationID(ctx, strings.TrimSpace(applicationID))
	if err != nil {
		return rooms.Participants{}, ErrNotFound
	}
	return rooms.Participants{
		ApplicationID: a.ApplicationID,
		OwnerID:       a.ApplicantID,
		ShelterID:     a.ShelterID,
		PetID:         a.PetID,
		PetName:       a.PetName,
	}, nil
}
