package archive

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/domain/locks"
	"pet-adoption-hub/internal/domain/notifications"
	"pet-adoption-hub/internal/domain/rooms"
	"pet-adoption-hub/internal/platform/apperr"
	"pet-adoption-hub/internal/ports/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Fakes
// -------------------------

type state struct {
	apps     map[string]applications.Application
	archived map[string]ArchivedApplication
	locks    map[string]locks.PetLock
	rooms    map[rooms.Key]rooms.Room
	messages map[string][]rooms.Message
}

func (s state) clone() state {
	out := state{
		apps:     make(map[string]applications.Application, len(s.apps)),
		archived: make(map[string]ArchivedApplication, len(s.archived)),
		locks:    make(map[string]locks.PetLock, len(s.locks)),
		rooms:    make(map[rooms.Key]rooms.Room, len(s.rooms)),
		messages: make(map[string][]rooms.Message, len(s.messages)),
	}
	for k, v := range s.apps {
		out.apps[k] = v
	}
	for k, v := range s.archived {
		out.archived[k] = v
	}
	for k, v := range s.locks {
		out.locks[k] = v
	}
	for k, v := range s.rooms {
		out.rooms[k] = v
	}
	for k, v := range s.messages {
		out.messages[k] = append([]rooms.Message(nil), v...)
	}
	return out
}

// store aplica clone-and-swap: la transacción trabaja sobre una copia y solo
// se publica si fn termina sin error.
type store struct {
	mu     sync.Mutex
	state  state
	failOn string
}

func newStore() *store {
	return &store{state: state{
		apps:     map[string]applications.Application{},
		archived: map[string]ArchivedApplication{},
		locks:    map[string]locks.PetLock{},
		rooms:    map[rooms.Key]rooms.Room{},
		messages: map[string][]rooms.Message{},
	}}
}

func (s *store) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.state.clone()
	if err := fn(&txView{st: &work, failOn: s.failOn}); err != nil {
		return err
	}
	s.state = work
	return nil
}

var errInjected = errors.New("injected fault")

type txView struct {
	st     *state
	failOn string
}

func (t *txView) fault(step string) error {
	if t.failOn == step {
		return errInjected
	}
	return nil
}

func (t *txView) GetApplication(ctx context.Context, id string) (applications.Application, error) {
	if err := t.fault("get"); err != nil {
		return applications.Application{}, err
	}
	a, ok := t.st.apps[id]
	if !ok {
		return applications.Application{}, applications.ErrNotFound
	}
	return a, nil
}

func (t *txView) InsertArchived(ctx context.Context, a ArchivedApplication) error {
	if err := t.fault("insert"); err != nil {
		return err
	}
	t.st.archived[a.ID] = a
	return nil
}

func (t *txView) DeleteApplication(ctx context.Context, id string) error {
	if err := t.fault("delete"); err != nil {
		return err
	}
	delete(t.st.apps, id)
	return nil
}

func (t *txView) ReleaseLock(ctx context.Context, petID, applicationID string, at time.Time) (bool, error) {
	if err := t.fault("release"); err != nil {
		return false, err
	}
	l, ok := t.st.locks[petID]
	if !ok || l.ActiveApplicationID != applicationID {
		return false, nil
	}
	l.ActiveApplicantID, l.ActiveApplicationID, l.UpdatedAt = "", "", at
	t.st.locks[petID] = l
	return true, nil
}

func (t *txView) FindRoom(ctx context.Context, key rooms.Key) (rooms.Room, error) {
	r, ok := t.st.rooms[key]
	if !ok {
		return rooms.Room{}, rooms.ErrNotFound
	}
	return r, nil
}

func (t *txView) AppendMessage(ctx context.Context, m rooms.Message) error {
	if err := t.fault("message"); err != nil {
		return err
	}
	t.st.messages[m.RoomID] = append(t.st.messages[m.RoomID], m)
	return nil
}

// Repository (lecturas)
func (s *store) list(keep func(ArchivedApplication) bool) []ArchivedApplication {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ArchivedApplication{}
	for _, a := range s.state.archived {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s *store) GetByID(ctx context.Context, id string) (ArchivedApplication, error) {
	items := s.list(func(a ArchivedApplication) bool { return a.ID == id })
	if len(items) == 0 {
		return ArchivedApplication{}, ErrNotFound
	}
	return items[0], nil
}

func (s *store) GetByApplicationID(ctx context.Context, applicationID string) (ArchivedApplication, error) {
	items := s.list(func(a ArchivedApplication) bool { return a.ApplicationID == applicationID })
	if len(items) == 0 {
		return ArchivedApplication{}, ErrNotFound
	}
	return items[0], nil
}

func (s *store) ListByShelter(ctx context.Context, shelterID string) ([]ArchivedApplication, error) {
	return s.list(func(a ArchivedApplication) bool { return a.ShelterID == shelterID }), nil
}

func (s *store) ListByApplicant(ctx context.Context, applicantID string) ([]ArchivedApplication, error) {
	return s.list(func(a ArchivedApplication) bool { return a.ApplicantID == applicantID }), nil
}

func (s *store) ExistsForApplicantAndPet(ctx context.Context, applicantID, petID string) (bool, error) {
	return len(s.list(func(a ArchivedApplication) bool {
		return a.ApplicantID == applicantID && a.PetID == petID
	})) > 0, nil
}

type testNotifier struct {
	mu       sync.Mutex
	notified []notifications.NotifyInput
	events   []string
}

func (n *testNotifier) Notify(ctx context.Context, in notifications.NotifyInput) (notifications.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, in)
	return notifications.Notification{UserID: in.UserID}, nil
}

func (n *testNotifier) Push(ctx context.Context, userID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

type testExporter struct {
	exported []ArchivedApplication
	err      error
}

func (e *testExporter) Export(ctx context.Context, a ArchivedApplication) error {
	e.exported = append(e.exported, a)
	return e.err
}

// seed deja una solicitud rechazada con el lock tomado y un chat abierto.
func seed(s *store, status applications.Status) (applications.Application, rooms.Room) {
	submitted := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := applications.Application{
		ID:              "app-1",
		ApplicantID:     "owner-1",
		ShelterID:       "shelter-1",
		PetID:           "pet-1",
		PetName:         "Luna",
		Status:          status,
		RejectionReason: "not suitable",
		SubmittedAt:     submitted,
		UpdatedAt:       submitted,
	}
	s.state.apps[a.ID] = a
	s.state.locks[a.PetID] = locks.PetLock{PetID: a.PetID, ActiveApplicantID: a.ApplicantID, ActiveApplicationID: a.ID}

	chat := rooms.Room{
		ID:            "room-chat",
		Kind:          rooms.KindChat,
		OwnerID:       a.ApplicantID,
		ShelterID:     a.ShelterID,
		PetID:         a.PetID,
		ApplicationID: a.ID,
		Status:        rooms.StatusOpen,
	}
	s.state.rooms[chat.Key()] = chat
	return a, chat
}

// -------------------------
// Tests
// -------------------------

func TestArchiveRejected_CommitsAllSteps(t *testing.T) {
	st := newStore()
	a, chat := seed(st, applications.StatusRejected)
	n := &testNotifier{}
	exp := &testExporter{}
	svc := NewService(st, st, n, exp, nil)

	out, err := svc.ArchiveRejected(context.Background(), "shelter-1", a.ID)
	require.NoError(t, err)

	assert.Equal(t, a.ID, out.ApplicationID)
	assert.Equal(t, "not suitable", out.RejectionReason)
	assert.False(t, out.RejectedAt.IsZero())

	_, stillThere := st.state.apps[a.ID]
	assert.False(t, stillThere)
	assert.Contains(t, st.state.archived, out.ID)
	assert.False(t, st.state.locks[a.PetID].Held())
	require.Len(t, st.state.messages[chat.ID], 1)
	assert.Equal(t, rooms.SenderSystem, st.state.messages[chat.ID][0].SenderID)

	require.Len(t, n.notified, 1)
	assert.Equal(t, notifications.TypeApplicationArchived, n.notified[0].Type)
	assert.Contains(t, n.events, realtime.EventApplicationArchived)
	assert.Len(t, exp.exported, 1)
}

func TestArchiveRejected_FaultAbortsEverything(t *testing.T) {
	for _, step := range []string{"insert", "delete", "release", "message"} {
		t.Run(step, func(t *testing.T) {
			st := newStore()
			a, chat := seed(st, applications.StatusRejected)
			st.failOn = step
			n := &testNotifier{}
			svc := NewService(st, st, n, nil, nil)

			_, err := svc.ArchiveRejected(context.Background(), "shelter-1", a.ID)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransactionFailed)
			assert.ErrorIs(t, err, errInjected)

			assert.Equal(t, a, st.state.apps[a.ID])
			assert.Empty(t, st.state.archived)
			assert.Equal(t, a.ID, st.state.locks[a.PetID].ActiveApplicationID)
			assert.Empty(t, st.state.messages[chat.ID])
			assert.Empty(t, n.notified)
		})
	}
}

func TestArchiveRejected_NotArchivable(t *testing.T) {
	st := newStore()
	a, _ := seed(st, applications.StatusReview)
	svc := NewService(st, st, nil, nil, nil)

	_, err := svc.ArchiveRejected(context.Background(), "shelter-1", a.ID)
	assert.ErrorIs(t, err, ErrNotArchivable)
	assert.Contains(t, st.state.apps, a.ID)
}

func TestArchiveRejected_WrongShelterOrMissing(t *testing.T) {
	st := newStore()
	a, _ := seed(st, applications.StatusRejected)
	svc := NewService(st, st, nil, nil, nil)

	_, err := svc.ArchiveRejected(context.Background(), "shelter-2", a.ID)
	assert.Equal(t, apperr.CodeNotFoundOrAlreadyProcessed, apperr.CodeOf(err))

	_, err = svc.ArchiveRejected(context.Background(), "shelter-1", "missing")
	assert.Equal(t, apperr.CodeNotFoundOrAlreadyProcessed, apperr.CodeOf(err))

	_, err = svc.ArchiveRejected(context.Background(), "", a.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestArchiveRejected_StaleLockIsLeftAlone(t *testing.T) {
	st := newStore()
	a, _ := seed(st, applications.StatusRejected)
	// otro applicant ya tiene el lock
	st.state.locks[a.PetID] = locks.PetLock{PetID: a.PetID, ActiveApplicantID: "owner-2", ActiveApplicationID: "app-2"}
	svc := NewService(st, st, nil, nil, nil)

	_, err := svc.ArchiveRejected(context.Background(), "shelter-1", a.ID)
	require.NoError(t, err)
	assert.Equal(t, "app-2", st.state.locks[a.PetID].ActiveApplicationID)
}

func TestArchiveRejected_WithoutChatRoom(t *testing.T) {
	st := newStore()
	a, chat := seed(st, applications.StatusRejected)
	delete(st.state.rooms, chat.Key())
	svc := NewService(st, st, nil, nil, nil)

	_, err := svc.ArchiveRejected(context.Background(), "shelter-1", a.ID)
	require.NoError(t, err)
	assert.Empty(t, st.state.messages)
}

func TestArchiveRejected_ExportFailureDoesNotFail(t *testing.T) {
	st := newStore()
	a, _ := seed(st, applications.StatusRejected)
	svc := NewService(st, st, nil, &testExporter{err: errors.New("s3 down")}, nil)

	_, err := svc.ArchiveRejected(context.Background(), "shelter-1", a.ID)
	require.NoError(t, err)
	assert.Len(t, st.state.archived, 1)
}

func TestQueriesAfterArchive(t *testing.T) {
	st := newStore()
	a, _ := seed(st, applications.StatusRejected)
	svc := NewService(st, st, nil, nil, nil)
	ctx := context.Background()

	out, err := svc.ArchiveRejected(ctx, "shelter-1", a.ID)
	require.NoError(t, err)

	got, err := svc.Get(ctx, "owner-1", out.ID)
	require.NoError(t, err)
	assert.Equal(t, out.ID, got.ID)

	_, err = svc.Get(ctx, "stranger", out.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	items, err := svc.ListByShelter(ctx, "shelter-1")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	ok, err := svc.HasArchived(ctx, "owner-1", "pet-1")
	require.NoError(t, err)
	assert.True(t, ok)

	p, err := svc.Participants(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "shelter-1", p.ShelterID)
}
