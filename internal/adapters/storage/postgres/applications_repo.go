package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-adoption-hub/internal/domain/applications"
)

const applicationColumns = `
	id, applicant_id, shelter_id, pet_id, pet_name,
	status, application_data, rejection_reason,
	submitted_at, reviewed_at, updated_at`

type ApplicationsRepo struct {
	db *sql.DB
}

func NewApplicationsRepo(db *sql.DB) *ApplicationsRepo {
	return &ApplicationsRepo{db: db}
}

func (r *ApplicationsRepo) Create(ctx context.Context, a applications.Application) error {
	data, err := json.Marshal(a.Data)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO adoption_applications (`+applicationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		a.ID,
		a.ApplicantID,
		a.ShelterID,
		a.PetID,
		a.PetName,
		string(a.Status),
		data,
		a.RejectionReason,
		a.SubmittedAt,
		toNullTime(a.ReviewedAt),
		a.UpdatedAt,
	)
	return err
}

func (r *ApplicationsRepo) GetByID(ctx context.Context, id string) (applications.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM adoption_applications WHERE id = $1`, id)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return applications.Application{}, applications.ErrNotFound
	}
	return a, err
}

func (r *ApplicationsRepo) ListByApplicant(ctx context.Context, applicantID string) ([]applications.Application, error) {
	return r.list(ctx, `WHERE applicant_id = $1`, applicantID)
}

func (r *ApplicationsRepo) ListByApplicantAndPet(ctx context.Context, applicantID, petID string) ([]applications.Application, error) {
	return r.list(ctx, `WHERE applicant_id = $1 AND pet_id = $2`, applicantID, petID)
}

func (r *ApplicationsRepo) ListByShelter(ctx context.Context, shelterID string, status applications.Status) ([]applications.Application, error) {
	if status == "" {
		return r.list(ctx, `WHERE shelter_id = $1`, shelterID)
	}
	return r.list(ctx, `WHERE shelter_id = $1 AND status = $2`, shelterID, string(status))
}

// Transition es un compare-and-set: el WHERE incluye shelter y los estados
// de origen, así dos decisiones concurrentes no pueden ganar ambas.
func (r *ApplicationsRepo) Transition(ctx context.Context, t applications.Transition) (applications.Application, error) {
	in, args := statusIn(5, t.From)
	args = append([]any{string(t.To), t.At, t.RejectionReason, t.ID, t.ShelterID}, args...)

	row := r.db.QueryRowContext(ctx, `
		UPDATE adoption_applications
		SET
			status = $1,
			updated_at = $2,
			reviewed_at = $2,
			rejection_reason = COALESCE(NULLIF($3::text, ''), rejection_reason)
		WHERE id = $4 AND shelter_id = $5 AND status IN (`+in+`)
		RETURNING `+applicationColumns,
		args...,
	)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return applications.Application{}, applications.ErrNotFound
	}
	return a, err
}

// Withdraw borra la solicitud y libera el lock en la misma transacción.
func (r *ApplicationsRepo) Withdraw(ctx context.Context, id, applicantID string, from []applications.Status, at time.Time) (applications.Application, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return applications.Application{}, fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	in, args := statusIn(2, from)
	args = append([]any{id, applicantID}, args...)
	row := tx.QueryRowContext(ctx, `
		DELETE FROM adoption_applications
		WHERE id = $1 AND applicant_id = $2 AND status IN (`+in+`)
		RETURNING `+applicationColumns,
		args...,
	)
	a, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return applications.Application{}, applications.ErrNotFound
	}
	if err != nil {
		return applications.Application{}, err
	}

	if _, err := releaseLock(ctx, tx, a.PetID, a.ID, at); err != nil {
		return applications.Application{}, err
	}
	if err := tx.Commit(); err != nil {
		return applications.Application{}, fmt.Errorf("commit: %w", err)
	}
	committed = true
	return a, nil
}

func (r *ApplicationsRepo) list(ctx context.Context, where string, args ...any) ([]applications.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+applicationColumns+`
		FROM adoption_applications
		`+where+`
		ORDER BY submitted_at DESC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]applications.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// statusIn arma "$n+1, $n+2, ..." para un IN con los estados dados.
func statusIn(offset int, statuses []applications.Status) (string, []any) {
	ph := make([]string, 0, len(statuses))
	args := make([]any, 0, len(statuses))
	for i, s := range statuses {
		ph = append(ph, fmt.Sprintf("$%d", offset+i+1))
		args = append(args, string(s))
	}
	return strings.Join(ph, ", "), args
}

func scanApplication(row scanner) (applications.Application, error) {
	var (
		a        applications.Application
		status   string
		data     []byte
		reviewed sql.NullTime
	)
	if err := row.Scan(
		&a.ID,
		&a.ApplicantID,
		&a.ShelterID,
		&a.PetID,
		&a.PetName,
		&status,
		&data,
		&a.RejectionReason,
		&a.SubmittedAt,
		&reviewed,
		&a.UpdatedAt,
	); err != nil {
		return applications.Application{}, err
	}
	a.Status = applications.Status(status)
	a.ReviewedAt = fromNullTime(reviewed)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &a.Data); err != nil {
			return applications.Application{}, fmt.Errorf("application_data: %w", err)
		}
	}
	return a, nil
}
