package applications

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-adoption-hub/internal/domain/locks"
	"pet-adoption-hub/internal/domain/notifications"
	"pet-adoption-hub/internal/domain/rooms"
	"pet-adoption-hub/internal/platform/apperr"
	"pet-adoption-hub/internal/platform/logger"
	"pet-adoption-hub/internal/platform/metrics"
	"pet-adoption-hub/internal/ports/catalog"
	"pet-adoption-hub/internal/ports/identity"
	"pet-adoption-hub/internal/ports/realtime"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput               = apperr.New(apperr.CodeValidation, "invalid input")
	ErrReasonRequired             = apperr.New(apperr.CodeValidation, "rejection reason is required")
	ErrPetNotAdoptable            = apperr.New(apperr.CodePetNotAdoptable, "pet is not available for adoption")
	ErrDuplicatePending           = apperr.New(apperr.CodeDuplicatePending, "you already have a pending application for this pet")
	ErrAlreadyApproved            = apperr.New(apperr.CodeAlreadyApproved, "you already have an approved application for this pet")
	ErrNotFoundOrAlreadyProcessed = apperr.New(apperr.CodeNotFoundOrAlreadyProcessed, "application not found or already processed")
	ErrNotWithdrawable            = apperr.New(apperr.CodeNotWithdrawable, "application can no longer be withdrawn")
	ErrNotFound                   = apperr.New(apperr.CodeNotFound, "application not found")

	// ErrConflict: otro applicant tiene el lock de la mascota.
	ErrConflict = locks.ErrConflict
)

// LockManager es el subconjunto de locks.Service que usa el workflow.
type LockManager interface {
	Acquire(ctx context.Context, in locks.AcquireInput) (locks.PetLock, error)
	Release(ctx context.Context, petID, applicationID string) (bool, error)
	Peek(ctx context.Context, petID string) (locks.PetLock, error)
	Register(ctx context.Context, petID, petName string) (locks.PetLock, error)
}

// RoomOpener es el subconjunto de rooms.Service que usa moveToReview.
type RoomOpener interface {
	CreateOrReopen(ctx context.Context, kind rooms.Kind, p rooms.Participants) (rooms.OpenResult, error)
}

type Notifier interface {
	Notify(ctx context.Context, in notifications.NotifyInput) (notifications.Notification, error)
	Push(ctx context.Context, userID, event string, payload any)
}

// ArchiveHistory responde si el applicant tuvo una solicitud archivada para
// la mascota (botón "apply again"). Lo implementa archive.Service.
type ArchiveHistory interface {
	HasArchived(ctx context.Context, applicantID, petID string) (bool, error)
}

type Dependencies struct {
	Locks     LockManager
	Rooms     RoomOpener
	Notifier  Notifier
	Catalog   catalog.PetCatalog
	Directory identity.Directory // opcional
	Logger    logger.Logger
}

type Service struct {
	repo     Repository
	locks    LockManager
	rooms    RoomOpener
	notifier Notifier
	catalog  catalog.PetCatalog
	names    identity.Directory
	history  ArchiveHistory
	log      logger.Logger
	now      func() time.Time
}

func NewService(repo Repository, deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo:     repo,
		locks:    deps.Locks,
		rooms:    deps.Rooms,
		notifier: deps.Notifier,
		catalog:  deps.Catalog,
		names:    deps.Directory,
		log:      log,
		now:      time.Now,
	}
}

// SetArchiveHistory se conecta después de construir archive.Service
// (archive depende de applications, no al revés).
func (s *Service) SetArchiveHistory(h ArchiveHistory) {
	s.history = h
}

type SubmitInput struct {
	ApplicantID string
	PetID       string
	// ShelterID es opcional; si viene debe coincidir con el catálogo.
	ShelterID string
	Data      ApplicationData
}

// Submit crea una solicitud en submitted. El lock de la mascota se toma con
// una única escritura condicional antes de crear la solicitud; si la
// creación falla se libera, así un perdedor nunca deja efectos.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Application, error) {
	applicantID := strings.TrimSpace(in.ApplicantID)
	petID := strings.TrimSpace(in.PetID)
	if applicantID == "" || petID == "" {
		return Application{}, ErrInvalidInput
	}
	if err := in.Data.Validate(); err != nil {
		return Application{}, err
	}

	pet, err := s.catalog.GetAdoptablePet(ctx, petID)
	if err != nil {
		if errors.Is(err, catalog.ErrPetNotFound) {
			return Application{}, ErrPetNotAdoptable
		}
		return Application{}, err
	}
	if !pet.IsAdoptable {
		return Application{}, ErrPetNotAdoptable
	}
	if sid := strings.TrimSpace(in.ShelterID); sid != "" && sid != pet.ShelterID {
		return Application{}, ErrInvalidInput
	}
	if pet.ShelterID == applicantID {
		return Application{}, ErrInvalidInput
	}

	previous, err := s.repo.ListByApplicantAndPet(ctx, applicantID, petID)
	if err != nil {
		return Application{}, err
	}
	for _, a := range previous {
		if a.Status == StatusApproved {
			return Application{}, ErrAlreadyApproved
		}
		if a.Status.Active() {
			return Application{}, ErrDuplicatePending
		}
	}

	now := s.now()
	a := Application{
		ID:          uuid.NewString(),
		ApplicantID: applicantID,
		ShelterID:   pet.ShelterID,
		PetID:       petID,
		PetName:     pet.Name,
		Status:      StatusSubmitted,
		Data:        in.Data,
		SubmittedAt: now,
		UpdatedAt:   now,
	}

	if _, err := s.locks.Acquire(ctx, locks.AcquireInput{
		PetID:         petID,
		PetName:       pet.Name,
		ApplicantID:   applicantID,
		ApplicationID: a.ID,
	}); err != nil {
		if errors.Is(err, locks.ErrAlreadyActive) {
			return Application{}, ErrDuplicatePending
		}
		return Application{}, err
	}

	if err := s.repo.Create(ctx, a); err != nil {
		if _, relErr := s.locks.Release(ctx, petID, a.ID); relErr != nil {
			s.log.Error("lock release after failed submit", map[string]any{
				"application_id": a.ID,
				"pet_id":         petID,
				"error":          relErr,
			})
		}
		return Application{}, err
	}
	metrics.ApplicationTransitions.WithLabelValues(string(StatusSubmitted)).Inc()

	applicantName := s.displayName(ctx, applicantID, "An adopter")
	s.notify(ctx, notifications.NotifyInput{
		UserID:    applicantID,
		UserModel: notifications.UserOwner,
		Type:      notifications.TypeApplicationSubmitted,
		Title:     "Application submitted",
		Message:   "Your application to adopt " + a.PetName + " was sent to the shelter.",
		Metadata:  metadataFor(a),
	})
	s.notify(ctx, notifications.NotifyInput{
		UserID:    a.ShelterID,
		UserModel: notifications.UserShelter,
		Type:      notifications.TypeApplicationReceived,
		Title:     "New adoption application",
		Message:   applicantName + " applied to adopt " + a.PetName + ".",
		Metadata:  metadataFor(a),
	})
	s.pushDashboard(ctx, a, "application:new")

	return a, nil
}

// Withdraw borra la solicitud y libera el lock (misma transacción en el repo).
func (s *Service) Withdraw(ctx context.Context, applicantID, applicationID string) (Application, error) {
	applicantID = strings.TrimSpace(applicantID)
	applicationID = strings.TrimSpace(applicationID)
	if applicantID == "" || applicationID == "" {
		return Application{}, ErrInvalidInput
	}

	current, err := s.repo.GetByID(ctx, applicationID)
	if err != nil || current.ApplicantID != applicantID {
		return Application{}, ErrNotFoundOrAlreadyProcessed
	}
	if !current.Status.Active() {
		return Application{}, ErrNotWithdrawable
	}

	a, err := s.repo.Withdraw(ctx, applicationID, applicantID, []Status{StatusSubmitted, StatusReview}, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// cambió de estado entre la lectura y el borrado
			return Application{}, ErrNotWithdrawable
		}
		return Application{}, err
	}
	a.Status = StatusWithdrawn
	metrics.ApplicationTransitions.WithLabelValues(string(StatusWithdrawn)).Inc()

	applicantName := s.displayName(ctx, applicantID, "The adopter")
	s.notify(ctx, notifications.NotifyInput{
		UserID:    applicantID,
		UserModel: notifications.UserOwner,
		Type:      notifications.TypeApplicationWithdrawn,
		Title:     "Application withdrawn",
		Message:   "You withdrew your application to adopt " + a.PetName + ".",
		Metadata:  metadataFor(a),
	})
	s.notify(ctx, notifications.NotifyInput{
		UserID:    a.ShelterID,
		UserModel: notifications.UserShelter,
		Type:      notifications.TypeApplicationWithdrawn,
		Title:     "Application withdrawn",
		Message:   applicantName + " withdrew the application for " + a.PetName + ".",
		Metadata:  metadataFor(a),
	})

	deleted := map[string]any{"applicationId": a.ID, "petId": a.PetID}
	s.push(ctx, a.ApplicantID, realtime.EventApplicationDeleted, deleted)
	s.push(ctx, a.ShelterID, realtime.EventApplicationDeleted, deleted)
	s.pushDashboard(ctx, a, "application:withdrawn")

	return a, nil
}

type ReviewResult struct {
	Application   Application
	Chat          *rooms.Room
	ChatAction    rooms.Action
	Meeting       *rooms.Room
	MeetingAction rooms.Action
}

// MoveToReview pasa submitted -> review y abre (o reabre) chat y meeting.
// Las salas son estado derivado: si una no se puede abrir (p.ej. bloqueada)
// la transición se mantiene y el resultado no la incluye.
func (s *Service) MoveToReview(ctx context.Context, shelterID, applicationID string) (ReviewResult, error) {
	a, err := s.transition(ctx, Transition{
		ID:        strings.TrimSpace(applicationID),
		ShelterID: strings.TrimSpace(shelterID),
		From:      []Status{StatusSubmitted},
		To:        StatusReview,
	})
	if err != nil {
		return ReviewResult{}, err
	}

	res := ReviewResult{Application: a}
	p := ParticipantsOf(a)
	for _, kind := range []rooms.Kind{rooms.KindChat, rooms.KindMeeting} {
		opened, err := s.rooms.CreateOrReopen(ctx, kind, p)
		if err != nil {
			s.log.Warn("room open on review failed", map[string]any{
				"application_id": a.ID,
				"kind":           string(kind),
				"error":          err,
			})
			continue
		}
		room := opened.Room
		if kind == rooms.KindChat {
			res.Chat, res.ChatAction = &room, opened.Action
		} else {
			res.Meeting, res.MeetingAction = &room, opened.Action
		}
	}

	meta := metadataFor(a)
	if res.Chat != nil {
		meta["chatRoomId"] = res.Chat.ID
	}
	if res.Meeting != nil {
		meta["meetingRoomId"] = res.Meeting.ID
	}
	s.notify(ctx, notifications.NotifyInput{
		UserID:    a.ApplicantID,
		UserModel: notifications.UserOwner,
		Type:      notifications.TypeApplicationInReview,
		Title:     "Application in review",
		Message:   "The shelter is reviewing your application for " + a.PetName + ". Chat and meeting rooms are now open.",
		Metadata:  meta,
	})
	s.pushStatus(ctx, a)
	s.pushDashboard(ctx, a, "application:review")

	return res, nil
}

// Reject no libera el lock ni toca las salas: eso ocurre al archivar, así el
// rechazo queda visible antes de la limpieza.
func (s *Service) Reject(ctx context.Context, shelterID, applicationID, reason string) (Application, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Application{}, ErrReasonRequired
	}

	a, err := s.transition(ctx, Transition{
		ID:              strings.TrimSpace(applicationID),
		ShelterID:       strings.TrimSpace(shelterID),
		From:            []Status{StatusSubmitted, StatusReview},
		To:              StatusRejected,
		RejectionReason: reason,
	})
	if err != nil {
		return Application{}, err
	}

	s.notify(ctx, notifications.NotifyInput{
		UserID:    a.ApplicantID,
		UserModel: notifications.UserOwner,
		Type:      notifications.TypeApplicationRejected,
		Title:     "Application not approved",
		Message:   "Your application for " + a.PetName + " was not approved. Reason: " + reason,
		Metadata:  metadataFor(a),
	})
	s.pushStatus(ctx, a)
	s.pushDashboard(ctx, a, "application:rejected")

	return a, nil
}

// Approve deja el lock tomado por el adoptante; la finalización de la
// adopción ocurre fuera de este servicio.
func (s *Service) Approve(ctx context.Context, shelterID, applicationID string) (Application, error) {
	a, err := s.transition(ctx, Transition{
		ID:        strings.TrimSpace(applicationID),
		ShelterID: strings.TrimSpace(shelterID),
		From:      []Status{StatusReview},
		To:        StatusApproved,
	})
	if err != nil {
		return Application{}, err
	}

	s.notify(ctx, notifications.NotifyInput{
		UserID:    a.ApplicantID,
		UserModel: notifications.UserOwner,
		Type:      notifications.TypeApplicationApproved,
		Title:     "Application approved",
		Message:   "Congratulations! Your application to adopt " + a.PetName + " was approved.",
		Metadata:  metadataFor(a),
	})
	s.pushStatus(ctx, a)
	s.pushDashboard(ctx, a, "application:approved")

	return a, nil
}

// Get: solo el applicant o el shelter pueden ver la solicitud.
func (s *Service) Get(ctx context.Context, viewerID, applicationID string) (Application, error) {
	a, err := s.repo.GetByID(ctx, strings.TrimSpace(applicationID))
	if err != nil {
		return Application{}, ErrNotFound
	}
	if viewerID != a.ApplicantID && viewerID != a.ShelterID {
		return Application{}, ErrNotFound
	}
	return a, nil
}

func (s *Service) ListByApplicant(ctx context.Context, applicantID string) ([]Application, error) {
	applicantID = strings.TrimSpace(applicantID)
	if applicantID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByApplicant(ctx, applicantID)
}

func (s *Service) ListByShelter(ctx context.Context, shelterID string, status Status) ([]Application, error) {
	shelterID = strings.TrimSpace(shelterID)
	if shelterID == "" {
		return nil, ErrInvalidInput
	}
	switch status {
	case "", StatusSubmitted, StatusReview, StatusApproved, StatusRejected:
	default:
		return nil, ErrInvalidInput
	}
	return s.repo.ListByShelter(ctx, shelterID, status)
}

// Participants implementa rooms.ParticipantsResolver.
func (s *Service) Participants(ctx context.Context, applicationID string) (rooms.Participants, error) {
	a, err := s.repo.GetByID(ctx, strings.TrimSpace(applicationID))
	if err != nil {
		return rooms.Participants{}, ErrNotFound
	}
	return ParticipantsOf(a), nil
}

func ParticipantsOf(a Application) rooms.Participants {
	return rooms.Participants{
		ApplicationID: a.ID,
		OwnerID:       a.ApplicantID,
		ShelterID:     a.ShelterID,
		PetID:         a.PetID,
		PetName:       a.PetName,

		ApplicationActive: a.Status.Active(),
	}
}

type Availability struct {
	PetID         string
	Lock          locks.PetLock
	Button        locks.ButtonState
	ApplicationID string // solicitud activa del viewer, si tiene
}

// Availability combina el lock con el historial del viewer para que la UI
// muestre el botón correcto.
func (s *Service) Availability(ctx context.Context, petID, viewerID string) (Availability, error) {
	petID = strings.TrimSpace(petID)
	viewerID = strings.TrimSpace(viewerID)
	if petID == "" {
		return Availability{}, ErrInvalidInput
	}

	l, err := s.locks.Peek(ctx, petID)
	if err != nil {
		return Availability{}, err
	}
	out := Availability{PetID: petID, Lock: l, Button: locks.StateFor(l, viewerID)}
	if viewerID == "" {
		if out.Button == locks.ButtonWithdraw {
			out.Button = locks.ButtonAppliedByAnother
		}
		return out, nil
	}

	mine, err := s.repo.ListByApplicantAndPet(ctx, viewerID, petID)
	if err != nil {
		return Availability{}, err
	}
	for _, a := range mine {
		switch {
		case a.Status == StatusApproved:
			out.Button = locks.ButtonAdopted
			out.ApplicationID = a.ID
			return out, nil
		case a.Status.Active():
			out.ApplicationID = a.ID
		case a.Status == StatusRejected && l.ActiveApplicationID == a.ID:
			out.Button = locks.ButtonRejected
			out.ApplicationID = a.ID
		}
	}

	if out.Button == locks.ButtonApply && s.history != nil {
		archived, err := s.history.HasArchived(ctx, viewerID, petID)
		if err != nil {
			s.log.Warn("archive history lookup failed", map[string]any{"pet_id": petID, "error": err})
		} else if archived {
			out.Button = locks.ButtonApplyAgain
		}
	}
	return out, nil
}

// PublishAvailability registra el lock vacío cuando el shelter publica la
// mascota como adoptable.
func (s *Service) PublishAvailability(ctx context.Context, shelterID, petID string) (locks.PetLock, error) {
	shelterID = strings.TrimSpace(shelterID)
	petID = strings.TrimSpace(petID)
	if shelterID == "" || petID == "" {
		return locks.PetLock{}, ErrInvalidInput
	}

	pet, err := s.catalog.GetAdoptablePet(ctx, petID)
	if err != nil || pet.ShelterID != shelterID {
		return locks.PetLock{}, ErrNotFoundOrAlreadyProcessed
	}
	if !pet.IsAdoptable {
		return locks.PetLock{}, ErrPetNotAdoptable
	}
	return s.locks.Register(ctx, petID, pet.Name)
}

func (s *Service) transition(ctx context.Context, t Transition) (Application, error) {
	if t.ID == "" || t.ShelterID == "" {
		return Application{}, ErrNotFoundOrAlreadyProcessed
	}
	t.At = s.now()

	a, err := s.repo.Transition(ctx, t)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Application{}, ErrNotFoundOrAlreadyProcessed
		}
		return Application{}, err
	}
	metrics.ApplicationTransitions.WithLabelValues(string(t.To)).Inc()
	return a, nil
}

func (s *Service) notify(ctx context.Context, in notifications.NotifyInput) {
	if s.notifier == nil {
		return
	}
	// el error ya quedó logueado por el fan-out
	_, _ = s.notifier.Notify(ctx, in)
}

func (s *Service) push(ctx context.Context, userID, event string, payload any) {
	if s.notifier == nil {
		return
	}
	s.notifier.Push(ctx, userID, event, payload)
}

func (s *Service) pushStatus(ctx context.Context, a Application) {
	s.push(ctx, a.ApplicantID, realtime.EventApplicationStatusUpdated, map[string]any{
		"applicationId":   a.ID,
		"status":          string(a.Status),
		"rejectionReason": a.RejectionReason,
	})
}

func (s *Service) pushDashboard(ctx context.Context, a Application, kind string) {
	s.push(ctx, a.ShelterID, realtime.EventDashboardUpdate, map[string]any{
		"type": kind,
		"data": map[string]any{
			"applicationId": a.ID,
			"petId":         a.PetID,
			"applicantId":   a.ApplicantID,
			"status":        string(a.Status),
		},
	})
}

func (s *Service) displayName(ctx context.Context, userID, fallback string) string {
	if s.names == nil {
		return fallback
	}
	name, err := s.names.GetDisplayName(ctx, userID)
	if err != nil || strings.TrimSpace(name) == "" {
		return fallback
	}
	return strings.TrimSpace(name)
}

func metadataFor(a Application) map[string]any {
	return map[string]any{
		"applicationId": a.ID,
		"petId":         a.PetID,
		"petName":       a.PetName,
		"status":        string(a.Status),
	}
}
