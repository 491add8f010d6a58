package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/domain/archive"
	"pet-adoption-hub/internal/domain/rooms"
)

const archivedColumns = `
	id, application_id, applicant_id, shelter_id, pet_id, pet_name,
	application_data, rejection_reason, submitted_at, reviewed_at, rejected_at`

// ArchiveRepo implementa archive.Repository y archive.UnitOfWork.
type ArchiveRepo struct {
	db *sql.DB
}

func NewArchiveRepo(db *sql.DB) *ArchiveRepo {
	return &ArchiveRepo{db: db}
}

// WithinTx abre una transacción, corre fn y confirma solo si fn no falla.
// Cualquier error (incluido el commit) deja la base como estaba.
func (r *ArchiveRepo) WithinTx(ctx context.Context, fn func(tx archive.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&archiveTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (r *ArchiveRepo) GetByID(ctx context.Context, id string) (archive.ArchivedApplication, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *ArchiveRepo) GetByApplicationID(ctx context.Context, applicationID string) (archive.ArchivedApplication, error) {
	return r.getOne(ctx, `WHERE application_id = $1`, applicationID)
}

func (r *ArchiveRepo) ListByShelter(ctx context.Context, shelterID string) ([]archive.ArchivedApplication, error) {
	return r.list(ctx, `WHERE shelter_id = $1`, shelterID)
}

func (r *ArchiveRepo) ListByApplicant(ctx context.Context, applicantID string) ([]archive.ArchivedApplication, error) {
	return r.list(ctx, `WHERE applicant_id = $1`, applicantID)
}

func (r *ArchiveRepo) ExistsForApplicantAndPet(ctx context.Context, applicantID, petID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM archived_applications WHERE applicant_id = $1 AND pet_id = $2)
	`, applicantID, petID).Scan(&exists)
	return exists, err
}

func (r *ArchiveRepo) getOne(ctx context.Context, where string, arg string) (archive.ArchivedApplication, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+archivedColumns+` FROM archived_applications `+where, arg)
	a, err := scanArchived(row)
	if errors.Is(err, sql.ErrNoRows) {
		return archive.ArchivedApplication{}, archive.ErrNotFound
	}
	return a, err
}

func (r *ArchiveRepo) list(ctx context.Context, where string, arg string) ([]archive.ArchivedApplication, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+archivedColumns+`
		FROM archived_applications
		`+where+`
		ORDER BY rejected_at DESC
	`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]archive.ArchivedApplication, 0)
	for rows.Next() {
		a, err := scanArchived(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type archiveTx struct {
	tx *sql.Tx
}

// GetApplication toma la fila con FOR UPDATE: dos archivados concurrentes
// de la misma solicitud se serializan y el segundo ya no la encuentra.
func (t *archiveTx) GetApplication(ctx context.Context, id string) (applications.Application, error) {
	row := t.tx.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM adoption_applications
		WHERE id = $1
		FOR UPDATE
	`, id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return applications.Application{}, applications.ErrNotFound
	}
	return a, err
}

func (t *archiveTx) InsertArchived(ctx context.Context, a archive.ArchivedApplication) error {
	data, err := json.Marshal(a.Data)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO archived_applications (`+archivedColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		a.ID,
		a.ApplicationID,
		a.ApplicantID,
		a.ShelterID,
		a.PetID,
		a.PetName,
		data,
		a.RejectionReason,
		a.SubmittedAt,
		toNullTime(a.ReviewedAt),
		a.RejectedAt,
	)
	return err
}

func (t *archiveTx) DeleteApplication(ctx context.Context, id string) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM adoption_applications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return applications.ErrNotFound
	}
	return nil
}

func (t *archiveTx) ReleaseLock(ctx context.Context, petID, applicationID string, at time.Time) (bool, error) {
	return releaseLock(ctx, t.tx, petID, applicationID, at)
}

func (t *archiveTx) FindRoom(ctx context.Context, key rooms.Key) (rooms.Room, error) {
	return findRoom(ctx, t.tx, key)
}

func (t *archiveTx) AppendMessage(ctx context.Context, m rooms.Message) error {
	return appendMessage(ctx, t.tx, m)
}

func scanArchived(row scanner) (archive.ArchivedApplication, error) {
	var (
		a        archive.ArchivedApplication
		data     []byte
		reviewed sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.ApplicationID,
		&a.ApplicantID,
		&a.ShelterID,
		&a.PetID,
		&a.PetName,
		&data,
		&a.RejectionReason,
		&a.SubmittedAt,
		&reviewed,
		&a.RejectedAt,
	); err != nil {
		return archive.ArchivedApplication{}, err
	}
	a.ReviewedAt = fromNullTime(reviewed)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &a.Data); err != nil {
			return archive.ArchivedApplication{}, fmt.Errorf("application_data: %w", err)
		}
	}
	return a, nil
}
