package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// casRepo simula la escritura condicional del store con un mutex interno.
type casRepo struct {
	mu    sync.Mutex
	byPet map[string]PetLock
}

func newCASRepo() *casRepo {
	return &casRepo{byPet: map[string]PetLock{}}
}

func (r *casRepo) Acquire(ctx context.Context, req AcquireRequest) (PetLock, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.byPet[req.PetID]
	if l.Held() {
		return l, false, nil
	}
	l = PetLock{
		PetID:               req.PetID,
		PetName:             req.PetName,
		ActiveApplicantID:   req.ApplicantID,
		ActiveApplicationID: req.ApplicationID,
		UpdatedAt:           req.Now,
	}
	r.byPet[req.PetID] = l
	return l, true, nil
}

func (r *casRepo) Release(ctx context.Context, petID, applicationID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byPet[petID]
	if !ok || l.ActiveApplicationID != applicationID {
		return false, nil
	}
	l.ActiveApplicantID = ""
	l.ActiveApplicationID = ""
	l.UpdatedAt = now
	r.byPet[petID] = l
	return true, nil
}

func (r *casRepo) Get(ctx context.Context, petID string) (PetLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byPet[petID]
	if !ok {
		return PetLock{}, ErrNotFound
	}
	return l, nil
}

func (r *casRepo) Register(ctx context.Context, petID, petName string, now time.Time) (PetLock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.byPet[petID]
	if !ok {
		l = PetLock{PetID: petID}
	}
	l.PetName = petName
	l.UpdatedAt = now
	r.byPet[petID] = l
	return l, nil
}

func TestAcquire_ConflictAndAlreadyActive(t *testing.T) {
	svc := NewService(newCASRepo())
	ctx := context.Background()

	l, err := svc.Acquire(ctx, AcquireInput{PetID: "p1", PetName: "Milo", ApplicantID: "a1", ApplicationID: "app-1"})
	require.NoError(t, err)
	assert.Equal(t, "a1", l.ActiveApplicantID)

	_, err = svc.Acquire(ctx, AcquireInput{PetID: "p1", ApplicantID: "a2", ApplicationID: "app-2"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Acquire(ctx, AcquireInput{PetID: "p1", ApplicantID: "a1", ApplicationID: "app-3"})
	assert.ErrorIs(t, err, ErrAlreadyActive)

	cur, err := svc.Peek(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "app-1", cur.ActiveApplicationID)
}

func TestAcquire_ConcurrentApplicantsSingleWinner(t *testing.T) {
	svc := NewService(newCASRepo())
	const n = 32

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Acquire(context.Background(), AcquireInput{
				PetID:         "p1",
				ApplicantID:   fmt.Sprintf("a%d", i),
				ApplicationID: fmt.Sprintf("app-%d", i),
			})
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, conflicts)
}

func TestRelease_StaleIsNoop(t *testing.T) {
	svc := NewService(newCASRepo())
	ctx := context.Background()

	_, err := svc.Acquire(ctx, AcquireInput{PetID: "p1", ApplicantID: "a1", ApplicationID: "app-1"})
	require.NoError(t, err)

	released, err := svc.Release(ctx, "p1", "app-old")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = svc.Release(ctx, "p1", "app-1")
	require.NoError(t, err)
	assert.True(t, released)

	// reintento del mismo release
	released, err = svc.Release(ctx, "p1", "app-1")
	require.NoError(t, err)
	assert.False(t, released)

	l, err := svc.Peek(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, l.Held())
}

func TestPeek_UnknownPetIsFree(t *testing.T) {
	svc := NewService(newCASRepo())

	l, err := svc.Peek(context.Background(), "nope")
	require.NoError(t, err)
	assert.Equal(t, "nope", l.PetID)
	assert.Equal(t, ButtonApply, StateFor(l, "a1"))
}

func TestStateFor(t *testing.T) {
	held := PetLock{PetID: "p1", ActiveApplicantID: "a1", ActiveApplicationID: "app-1"}
	assert.Equal(t, ButtonWithdraw, StateFor(held, "a1"))
	assert.Equal(t, ButtonAppliedByAnother, StateFor(held, "a2"))
}

func TestRegister_Idempotent(t *testing.T) {
	svc := NewService(newCASRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, "p1", "Milo")
	require.NoError(t, err)
	_, err = svc.Acquire(ctx, AcquireInput{PetID: "p1", ApplicantID: "a1", ApplicationID: "app-1"})
	require.NoError(t, err)

	l, err := svc.Register(ctx, "p1", "Milo Jr")
	require.NoError(t, err)
	assert.Equal(t, "a1", l.ActiveApplicantID)
	assert.Equal(t, "Milo Jr", l.PetName)

	_, err = svc.Register(ctx, "  ", "x")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
