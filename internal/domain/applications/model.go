package applications

import "time"

// Status de una solicitud.
// submitted -> {review, withdrawn}; review -> {rejected, approved}.
// rejected se mueve al archivo en un paso aparte.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusReview    Status = "review"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// Active indica si la solicitud ocupa el lock de la mascota.
func (s Status) Active() bool {
	return s == StatusSubmitted || s == StatusReview
}

// AdoptionApplication pertenece al working set; se borra al retirarla o se
// migra al archivo después del rechazo.
type Application struct {
	ID          string
	ApplicantID string
	ShelterID   string
	PetID       string
	PetName     string

	Status          Status
	Data            ApplicationData
	RejectionReason string

	SubmittedAt time.Time
	ReviewedAt  *time.Time
	UpdatedAt   time.Time
}
