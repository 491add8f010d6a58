package memory

import (
	"context"
	"time"

	"pet-adoption-hub/internal/domain/locks"
)

type lockRepo struct {
	s *Store
}

func NewLockRepo(s *Store) locks.Repository {
	return &lockRepo{s: s}
}

func (r *lockRepo) Acquire(ctx context.Context, req locks.AcquireRequest) (locks.PetLock, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.st.locks[req.PetID]
	if ok && l.Held() {
		return l, false, nil
	}
	if !ok {
		l = locks.PetLock{PetID: req.PetID}
	}
	if req.PetName != "" {
		l.PetName = req.PetName
	}
	l.ActiveApplicantID = req.ApplicantID
	l.ActiveApplicationID = req.ApplicationID
	l.UpdatedAt = req.Now
	r.s.st.locks[req.PetID] = l
	return l, true, nil
}

func (r *lockRepo) Release(ctx context.Context, petID, applicationID string, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.st.releaseLock(petID, applicationID, now), nil
}

func (r *lockRepo) Get(ctx context.Context, petID string) (locks.PetLock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	l, ok := r.s.st.locks[petID]
	if !ok {
		return locks.PetLock{}, locks.ErrNotFound
	}
	return l, nil
}

func (r *lockRepo) Register(ctx context.Context, petID, petName string, now time.Time) (locks.PetLock, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.st.locks[petID]
	if !ok {
		l = locks.PetLock{PetID: petID}
	}
	if petName != "" {
		l.PetName = petName
	}
	l.UpdatedAt = now
	r.s.st.locks[petID] = l
	return l, nil
}

// releaseLock asume el mutex tomado (o un estado clonado).
func (st state) releaseLock(petID, applicationID string, now time.Time) bool {
	l, ok := st.locks[petID]
	if !ok || l.ActiveApplicationID != applicationID {
		return false
	}
	l.ActiveApplicantID = ""
	l.ActiveApplicationID = ""
	l.UpdatedAt = now
	st.locks[petID] = l
	return true
}
