package archive

import (
	"time"

	"pet-adoption-hub/internal/domain/applications"
)

// ArchivedApplication es la copia inmutable de una solicitud rechazada,
// fuera del working set. Solo la crea ArchiveRejected.
type ArchivedApplication struct {
	ID            string
	ApplicationID string
	ApplicantID   string
	ShelterID     string
	PetID         string
	PetName       string

	Data            applications.ApplicationData
	RejectionReason string

	SubmittedAt time.Time
	ReviewedAt  *time.Time
	RejectedAt  time.Time
}

func snapshot(id string, a applications.Application, now time.Time) ArchivedApplication {
	return ArchivedApplication{
		ID:              id,
		ApplicationID:   a.ID,
		ApplicantID:     a.ApplicantID,
		ShelterID:       a.ShelterID,
		PetID:           a.PetID,
		PetName:         a.PetName,
		Data:            a.Data,
		RejectionReason: a.RejectionReason,
		SubmittedAt:     a.SubmittedAt,
		ReviewedAt:      a.ReviewedAt,
		RejectedAt:      now,
	}
}
