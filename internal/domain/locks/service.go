package locks

import (
	"context"
	"errors"
	"strings"
	"time"

	"pet-adoption-hub/internal/platform/apperr"
	"pet-adoption-hub/internal/platform/metrics"
)

var (
	ErrInvalidInput  = apperr.New(apperr.CodeValidation, "invalid input")
	ErrConflict      = apperr.New(apperr.CodeConflict, "pet already has an active applicant")
	ErrAlreadyActive = apperr.New(apperr.CodeAlreadyActive, "applicant already holds this pet")

	// ErrNotFound lo devuelven los repos cuando no existe lock para la mascota.
	ErrNotFound = errors.New("lock not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type AcquireInput struct {
	PetID         string
	PetName       string
	ApplicantID   string
	ApplicationID string
}

func (s *Service) Acquire(ctx context.Context, in AcquireInput) (PetLock, error) {
	petID := strings.TrimSpace(in.PetID)
	applicantID := strings.TrimSpace(in.ApplicantID)
	applicationID := strings.TrimSpace(in.ApplicationID)
	if petID == "" || applicantID == "" || applicationID == "" {
		return PetLock{}, ErrInvalidInput
	}

	current, acquired, err := s.repo.Acquire(ctx, AcquireRequest{
		PetID:         petID,
		PetName:       strings.TrimSpace(in.PetName),
		ApplicantID:   applicantID,
		ApplicationID: applicationID,
		Now:           s.now(),
	})
	if err != nil {
		return PetLock{}, err
	}
	if acquired {
		return current, nil
	}

	// La lectura de current solo clasifica el fallo; la escritura ya se decidió.
	if current.ActiveApplicantID == applicantID {
		metrics.LockConflicts.WithLabelValues("already_active").Inc()
		return current, ErrAlreadyActive
	}
	metrics.LockConflicts.WithLabelValues("conflict").Inc()
	return current, ErrConflict
}

// Release es tolerante a reintentos: un release obsoleto devuelve (false, nil).
func (s *Service) Release(ctx context.Context, petID, applicationID string) (bool, error) {
	petID = strings.TrimSpace(petID)
	applicationID = strings.TrimSpace(applicationID)
	if petID == "" || applicationID == "" {
		return false, ErrInvalidInput
	}
	return s.repo.Release(ctx, petID, applicationID, s.now())
}

// Peek nunca falla por ausencia: una mascota sin lock está libre.
func (s *Service) Peek(ctx context.Context, petID string) (PetLock, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return PetLock{}, ErrInvalidInput
	}
	l, err := s.repo.Get(ctx, petID)
	if errors.Is(err, ErrNotFound) {
		return PetLock{PetID: petID}, nil
	}
	if err != nil {
		return PetLock{}, err
	}
	return l, nil
}

func (s *Service) Register(ctx context.Context, petID, petName string) (PetLock, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return PetLock{}, ErrInvalidInput
	}
	return s.repo.Register(ctx, petID, strings.TrimSpace(petName), s.now())
}
