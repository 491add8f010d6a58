package memory

import (
	"context"
	"sort"
	"time"

	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/domain/archive"
	"pet-adoption-hub/internal/domain/rooms"
)

// ArchiveRepo implementa archive.Repository y archive.UnitOfWork.
type ArchiveRepo struct {
	s *Store
}

func NewArchiveRepo(s *Store) *ArchiveRepo {
	return &ArchiveRepo{s: s}
}

// WithinTx ejecuta fn sobre una copia del estado y la publica solo si fn
// termina sin error. El mutex de escritura queda tomado toda la transacción.
func (r *ArchiveRepo) WithinTx(ctx context.Context, fn func(tx archive.Tx) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := r.s.st.clone()
	if err := fn(&archiveTx{st: work}); err != nil {
		return err
	}
	r.s.st = work
	return nil
}

func (r *ArchiveRepo) GetByID(ctx context.Context, id string) (archive.ArchivedApplication, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.st.archived[id]
	if !ok {
		return archive.ArchivedApplication{}, archive.ErrNotFound
	}
	return a, nil
}

func (r *ArchiveRepo) GetByApplicationID(ctx context.Context, applicationID string) (archive.ArchivedApplication, error) {
	items := r.list(func(a archive.ArchivedApplication) bool { return a.ApplicationID == applicationID })
	if len(items) == 0 {
		return archive.ArchivedApplication{}, archive.ErrNotFound
	}
	return items[0], nil
}

func (r *ArchiveRepo) ListByShelter(ctx context.Context, shelterID string) ([]archive.ArchivedApplication, error) {
	return r.list(func(a archive.ArchivedApplication) bool { return a.ShelterID == shelterID }), nil
}

func (r *ArchiveRepo) ListByApplicant(ctx context.Context, applicantID string) ([]archive.ArchivedApplication, error) {
	return r.list(func(a archive.ArchivedApplication) bool { return a.ApplicantID == applicantID }), nil
}

func (r *ArchiveRepo) ExistsForApplicantAndPet(ctx context.Context, applicantID, petID string) (bool, error) {
	items := r.list(func(a archive.ArchivedApplication) bool {
		return a.ApplicantID == applicantID && a.PetID == petID
	})
	return len(items) > 0, nil
}

func (r *ArchiveRepo) list(keep func(archive.ArchivedApplication) bool) []archive.ArchivedApplication {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]archive.ArchivedApplication, 0)
	for _, a := range r.s.st.archived {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RejectedAt.After(out[j].RejectedAt)
	})
	return out
}

type archiveTx struct {
	st state
}

func (t *archiveTx) GetApplication(ctx context.Context, id string) (applications.Application, error) {
	a, ok := t.st.apps[id]
	if !ok {
		return applications.Application{}, applications.ErrNotFound
	}
	return a, nil
}

func (t *archiveTx) InsertArchived(ctx context.Context, a archive.ArchivedApplication) error {
	t.st.archived[a.ID] = a
	return nil
}

func (t *archiveTx) DeleteApplication(ctx context.Context, id string) error {
	if _, ok := t.st.apps[id]; !ok {
		return applications.ErrNotFound
	}
	delete(t.st.apps, id)
	return nil
}

func (t *archiveTx) ReleaseLock(ctx context.Context, petID, applicationID string, at time.Time) (bool, error) {
	return t.st.releaseLock(petID, applicationID, at), nil
}

func (t *archiveTx) FindRoom(ctx context.Context, key rooms.Key) (rooms.Room, error) {
	return t.st.findRoom(key)
}

func (t *archiveTx) AppendMessage(ctx context.Context, m rooms.Message) error {
	return t.st.appendMessage(m)
}
