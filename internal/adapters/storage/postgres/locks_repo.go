package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"pet-adoption-hub/internal/domain/locks"
)

const lockColumns = `pet_id, pet_name, active_applicant_id, active_application_id, updated_at`

type LocksRepo struct {
	db *sql.DB
}

func NewLocksRepo(db *sql.DB) *LocksRepo {
	return &LocksRepo{db: db}
}

// Acquire es un único upsert condicional: solo escribe si no hay holder.
// Si el WHERE no matchea no vuelve fila y se lee el estado actual para
// que el servicio clasifique el fallo.
func (r *LocksRepo) Acquire(ctx context.Context, req locks.AcquireRequest) (locks.PetLock, bool, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO pet_locks (pet_id, pet_name, active_applicant_id, active_application_id, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pet_id) DO UPDATE
		SET
			active_applicant_id = EXCLUDED.active_applicant_id,
			active_application_id = EXCLUDED.active_application_id,
			pet_name = COALESCE(NULLIF(EXCLUDED.pet_name, ''), pet_locks.pet_name),
			updated_at = EXCLUDED.updated_at
		WHERE pet_locks.active_applicant_id IS NULL
		RETURNING `+lockColumns,
		req.PetID,
		req.PetName,
		req.ApplicantID,
		req.ApplicationID,
		req.Now,
	)

	l, err := scanLock(row)
	if err == nil {
		return l, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return locks.PetLock{}, false, err
	}

	current, err := r.Get(ctx, req.PetID)
	if err != nil {
		return locks.PetLock{}, false, err
	}
	return current, false, nil
}

func (r *LocksRepo) Release(ctx context.Context, petID, applicationID string, now time.Time) (bool, error) {
	return releaseLock(ctx, r.db, petID, applicationID, now)
}

func (r *LocksRepo) Get(ctx context.Context, petID string) (locks.PetLock, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lockColumns+` FROM pet_locks WHERE pet_id = $1`, petID)
	l, err := scanLock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return locks.PetLock{}, locks.ErrNotFound
	}
	return l, err
}

func (r *LocksRepo) Register(ctx context.Context, petID, petName string, now time.Time) (locks.PetLock, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO pet_locks (pet_id, pet_name, active_applicant_id, active_application_id, updated_at)
		VALUES ($1, $2, NULL, NULL, $3)
		ON CONFLICT (pet_id) DO UPDATE
		SET
			pet_name = COALESCE(NULLIF(EXCLUDED.pet_name, ''), pet_locks.pet_name),
			updated_at = EXCLUDED.updated_at
		RETURNING `+lockColumns,
		petID,
		petName,
		now,
	)
	return scanLock(row)
}

// releaseLock se comparte con withdraw y archive (dentro de su tx).
func releaseLock(ctx context.Context, q querier, petID, applicationID string, now time.Time) (bool, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE pet_locks
		SET active_applicant_id = NULL, active_application_id = NULL, updated_at = $3
		WHERE pet_id = $1 AND active_application_id = $2
	`, petID, applicationID, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func scanLock(row scanner) (locks.PetLock, error) {
	var (
		l             locks.PetLock
		applicantID   sql.NullString
		applicationID sql.NullString
	)
	if err := row.Scan(&l.PetID, &l.PetName, &applicantID, &applicationID, &l.UpdatedAt); err != nil {
		return locks.PetLock{}, err
	}
	l.ActiveApplicantID = applicantID.String
	l.ActiveApplicationID = applicationID.String
	return l, nil
}
