package memory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"pet-adoption-hub/internal/domain/applications"
)

type applicationRepo struct {
	s *Store
}

func NewApplicationRepo(s *Store) applications.Repository {
	return &applicationRepo{s: s}
}

func (r *applicationRepo) Create(ctx context.Context, a applications.Application) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(a.ID) == "" {
		return errors.New("application id required")
	}
	if _, exists := r.s.st.apps[a.ID]; exists {
		return errors.New("application already exists")
	}
	r.s.st.apps[a.ID] = a
	return nil
}

func (r *applicationRepo) GetByID(ctx context.Context, id string) (applications.Application, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.st.apps[id]
	if !ok {
		return applications.Application{}, applications.ErrNotFound
	}
	return a, nil
}

func (r *applicationRepo) ListByApplicant(ctx context.Context, applicantID string) ([]applications.Application, error) {
	return r.list(func(a applications.Application) bool {
		return a.ApplicantID == applicantID
	}), nil
}

func (r *applicationRepo) ListByApplicantAndPet(ctx context.Context, applicantID, petID string) ([]applications.Application, error) {
	return r.list(func(a applications.Application) bool {
		return a.ApplicantID == applicantID && a.PetID == petID
	}), nil
}

func (r *applicationRepo) ListByShelter(ctx context.Context, shelterID string, status applications.Status) ([]applications.Application, error) {
	return r.list(func(a applications.Application) bool {
		return a.ShelterID == shelterID && (status == "" || a.Status == status)
	}), nil
}

func (r *applicationRepo) Transition(ctx context.Context, t applications.Transition) (applications.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.st.apps[t.ID]
	if !ok || a.ShelterID != t.ShelterID || !slices.Contains(t.From, a.Status) {
		return applications.Application{}, applications.ErrNotFound
	}

	a.Status = t.To
	a.UpdatedAt = t.At
	if t.To == applications.StatusRejected {
		a.RejectionReason = t.RejectionReason
	}
	at := t.At
	a.ReviewedAt = &at
	r.s.st.apps[a.ID] = a
	return a, nil
}

func (r *applicationRepo) Withdraw(ctx context.Context, id, applicantID string, from []applications.Status, at time.Time) (applications.Application, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.st.apps[id]
	if !ok || a.ApplicantID != applicantID || !slices.Contains(from, a.Status) {
		return applications.Application{}, applications.ErrNotFound
	}
	delete(r.s.st.apps, id)
	r.s.st.releaseLock(a.PetID, a.ID, at)
	return a, nil
}

func (r *applicationRepo) list(keep func(applications.Application) bool) []applications.Application {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]applications.Application, 0)
	for _, a := range r.s.st.apps {
		if keep(a) {
			out = append(out, a)
		}
	}

	// más recientes primero
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}
