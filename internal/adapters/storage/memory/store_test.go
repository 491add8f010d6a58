package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/domain/archive"
	"pet-adoption-hub/internal/domain/locks"
	"pet-adoption-hub/internal/domain/notifications"
	"pet-adoption-hub/internal/domain/rooms"
	"pet-adoption-hub/internal/ports/catalog"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticCatalog map[string]catalog.AdoptablePet

func (c staticCatalog) GetAdoptablePet(ctx context.Context, petID string) (catalog.AdoptablePet, error) {
	p, ok := c[petID]
	if !ok {
		return catalog.AdoptablePet{}, catalog.ErrPetNotFound
	}
	return p, nil
}

type services struct {
	store    *Store
	locks    *locks.Service
	apps     *applications.Service
	rooms    *rooms.Service
	notifs   *notifications.Service
	archive  *archive.Service
	archives *ArchiveRepo
}

func newServices() services {
	return newServicesOn(NewStore(), nil)
}

func questionnaire() applications.ApplicationData {
	return applications.ApplicationData{
		Residence:     applications.Residence{Type: applications.ResidenceHouse, Ownership: applications.OwnershipOwn, HasYard: true},
		Household:     applications.Household{Adults: 1, AllMembersAgree: true},
		Experience:    applications.Experience{Level: applications.ExperienceFirstTime},
		Lifestyle:     applications.Lifestyle{HoursAlonePerDay: 2, ActivityLevel: applications.ActivityHigh},
		Affordability: applications.Affordability{MonthlyBudget: 100, CanCoverVetCosts: true},
		Motivation:    "Trabajo desde casa.",
		AgreesToTerms: true,
	}
}

func TestLockRepo_ConcurrentAcquireSingleWinner(t *testing.T) {
	repo := NewLockRepo(NewStore())
	const n = 50

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok, err := repo.Acquire(context.Background(), locks.AcquireRequest{
				PetID:         "P1",
				ApplicantID:   fmt.Sprintf("A%d", i),
				ApplicationID: fmt.Sprintf("app-%d", i),
				Now:           time.Now(),
			})
			if err == nil && ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	l, err := repo.Get(context.Background(), "P1")
	require.NoError(t, err)
	assert.True(t, l.Held())
}

func TestLockRepo_StaleReleaseIsNoop(t *testing.T) {
	repo := NewLockRepo(NewStore())
	ctx := context.Background()

	_, ok, err := repo.Acquire(ctx, locks.AcquireRequest{PetID: "P1", ApplicantID: "A1", ApplicationID: "app-1", Now: time.Now()})
	require.NoError(t, err)
	require.True(t, ok)

	released, err := repo.Release(ctx, "P1", "app-old", time.Now())
	require.NoError(t, err)
	assert.False(t, released)

	released, err = repo.Release(ctx, "P1", "app-1", time.Now())
	require.NoError(t, err)
	assert.True(t, released)
}

// Escenario completo: conflicto, review, rechazo, archivo y nueva postulación.
func TestAdoptionScenario(t *testing.T) {
	svc := newServices()
	ctx := context.Background()

	a1, err := svc.apps.Submit(ctx, applications.SubmitInput{ApplicantID: "A1", PetID: "P1", Data: questionnaire()})
	require.NoError(t, err)
	assert.Equal(t, applications.StatusSubmitted, a1.Status)

	_, err = svc.apps.Submit(ctx, applications.SubmitInput{ApplicantID: "A2", PetID: "P1", Data: questionnaire()})
	assert.ErrorIs(t, err, locks.ErrConflict)
	l, _ := svc.locks.Peek(ctx, "P1")
	assert.Equal(t, "A1", l.ActiveApplicantID)

	res, err := svc.apps.MoveToReview(ctx, "S1", a1.ID)
	require.NoError(t, err)
	require.NotNil(t, res.Chat)
	require.NotNil(t, res.Meeting)
	assert.Equal(t, rooms.StatusOpen, res.Chat.Status)
	assert.Equal(t, a1.ID, res.Chat.ApplicationID)
	assert.Equal(t, a1.ID, res.Meeting.ApplicationID)

	_, err = svc.apps.Reject(ctx, "S1", a1.ID, "not suitable")
	require.NoError(t, err)
	l, _ = svc.locks.Peek(ctx, "P1")
	assert.Equal(t, "A1", l.ActiveApplicantID)

	p := applications.ParticipantsOf(res.Application)
	before, err := svc.rooms.Messages(ctx, rooms.KindChat, p)
	require.NoError(t, err)

	archived, err := svc.archive.ArchiveRejected(ctx, "S1", a1.ID)
	require.NoError(t, err)
	assert.False(t, archived.RejectedAt.IsZero())

	_, err = svc.apps.Get(ctx, "A1", a1.ID)
	assert.ErrorIs(t, err, applications.ErrNotFound)
	got, err := svc.archives.GetByApplicationID(ctx, a1.ID)
	require.NoError(t, err)
	assert.Equal(t, "not suitable", got.RejectionReason)

	l, _ = svc.locks.Peek(ctx, "P1")
	assert.False(t, l.Held())

	after, err := svc.rooms.Messages(ctx, rooms.KindChat, p)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)

	av, err := svc.apps.Availability(ctx, "P1", "A1")
	require.NoError(t, err)
	assert.Equal(t, locks.ButtonApplyAgain, av.Button)

	a2, err := svc.apps.Submit(ctx, applications.SubmitInput{ApplicantID: "A2", PetID: "P1", Data: questionnaire()})
	require.NoError(t, err)
	l, _ = svc.locks.Peek(ctx, "P1")
	assert.Equal(t, "A2", l.ActiveApplicantID)
	assert.Equal(t, a2.ID, l.ActiveApplicationID)

	inbox, err := svc.notifs.ListByUser(ctx, "A1", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, inbox)
}

func TestWithdraw_DeletesAndReleasesTogether(t *testing.T) {
	svc := newServices()
	ctx := context.Background()

	a, err := svc.apps.Submit(ctx, applications.SubmitInput{ApplicantID: "A1", PetID: "P1", Data: questionnaire()})
	require.NoError(t, err)

	_, err = svc.apps.Withdraw(ctx, "A1", a.ID)
	require.NoError(t, err)

	l, _ := svc.locks.Peek(ctx, "P1")
	assert.False(t, l.Held())
	_, err = NewApplicationRepo(svc.store).GetByID(ctx, a.ID)
	assert.ErrorIs(t, err, applications.ErrNotFound)
}

// faultyUoW inyecta un fallo después de escribir el archivo y antes de
// borrar la solicitud.
type faultyUoW struct {
	inner archive.UnitOfWork
}

var errFault = errors.New("simulated fault")

func (u faultyUoW) WithinTx(ctx context.Context, fn func(tx archive.Tx) error) error {
	return u.inner.WithinTx(ctx, func(tx archive.Tx) error {
		return fn(faultyTx{Tx: tx})
	})
}

type faultyTx struct {
	archive.Tx
}

func (faultyTx) DeleteApplication(ctx context.Context, id string) error {
	return errFault
}

func TestArchive_FaultLeavesWorkingSetUntouched(t *testing.T) {
	s := NewStore()
	svc := newServicesOn(s, faultyUoW{inner: NewArchiveRepo(s)})
	ctx := context.Background()

	a, err := svc.apps.Submit(ctx, applications.SubmitInput{ApplicantID: "A1", PetID: "P1", Data: questionnaire()})
	require.NoError(t, err)
	_, err = svc.apps.Reject(ctx, "S1", a.ID, "not suitable")
	require.NoError(t, err)

	_, err = svc.archive.ArchiveRejected(ctx, "S1", a.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, archive.ErrTransactionFailed)

	still, err := svc.apps.Get(ctx, "S1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, applications.StatusRejected, still.Status)

	items, err := svc.archives.ListByShelter(ctx, "S1")
	require.NoError(t, err)
	assert.Empty(t, items)

	l, _ := svc.locks.Peek(ctx, "P1")
	assert.Equal(t, a.ID, l.ActiveApplicationID)
}

func newServicesOn(s *Store, uow archive.UnitOfWork) services {
	archives := NewArchiveRepo(s)
	if uow == nil {
		uow = archives
	}

	notifs := notifications.NewService(NewNotificationRepo(s), nil, nil)
	lockSvc := locks.NewService(NewLockRepo(s))
	roomSvc := rooms.NewService(NewRoomRepo(s), notifs, nil)
	appSvc := applications.NewService(NewApplicationRepo(s), applications.Dependencies{
		Locks:    lockSvc,
		Rooms:    roomSvc,
		Notifier: notifs,
		Catalog: staticCatalog{
			"P1": {PetID: "P1", Name: "Luna", ShelterID: "S1", IsAdoptable: true},
		},
	})
	archSvc := archive.NewService(uow, archives, notifs, nil, nil)
	appSvc.SetArchiveHistory(archSvc)

	return services{
		store:    s,
		locks:    lockSvc,
		apps:     appSvc,
		rooms:    roomSvc,
		notifs:   notifs,
		archive:  archSvc,
		archives: archives,
	}
}
