package locks

import "time"

// PetLock es el único registro por mascota que indica quién puede tener
// una solicitud activa. ActiveApplicantID != "" sii existe exactamente una
// solicitud de esa mascota en submitted/review.
type PetLock struct {
	PetID               string
	PetName             string
	ActiveApplicantID   string
	ActiveApplicationID string
	UpdatedAt           time.Time
}

func (l PetLock) Held() bool {
	return l.ActiveApplicantID != ""
}

// ButtonState es lo que la UI muestra a un viewer para una mascota.
type ButtonState string

const (
	ButtonApply            ButtonState = "apply"
	ButtonWithdraw         ButtonState = "withdraw"
	ButtonAppliedByAnother ButtonState = "applied_by_another"
	ButtonApplyAgain       ButtonState = "apply_again"
	ButtonRejected         ButtonState = "rejected"
	ButtonAdopted          ButtonState = "adopted"
)

// StateFor calcula el estado base solo a partir del lock. La capa de
// solicitudes lo refina con el historial del viewer.
func StateFor(l PetLock, viewerID string) ButtonState {
	if !l.Held() {
		return ButtonApply
	}
	if l.ActiveApplicantID == viewerID {
		return ButtonWithdraw
	}
	return ButtonAppliedByAnother
}
