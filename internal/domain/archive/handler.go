package archive

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pet-adoption-hub/internal/domain/applications"
	"pet-adoption-hub/internal/middleware"
	"pet-adoption-hub/internal/platform/apperr"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/applications/{applicationID}/archive", archiveHandler(svc))

	r.Get("/shelter/archived-applications", listShelterHandler(svc))
	r.Get("/me/archived-applications", listMineHandler(svc))
	r.Get("/archived-applications/{archivedID}", getHandler(svc))
}

type archivedResponse struct {
	ID              string                       `json:"id"`
	ApplicationID   string                       `json:"application_id"`
	ApplicantID     string                       `json:"applicant_id"`
	ShelterID       string                       `json:"shelter_id"`
	PetID           string                       `json:"pet_id"`
	PetName         string                       `json:"pet_name"`
	ApplicationData applications.ApplicationData `json:"application_data"`
	RejectionReason string                       `json:"rejection_reason"`
	SubmittedAt     time.Time                    `json:"submitted_at"`
	ReviewedAt      *time.Time                   `json:"reviewed_at,omitempty"`
	RejectedAt      time.Time                    `json:"rejected_at"`
}

// archiveHandler godoc
// @Summary Archivar una solicitud rechazada
// @Description Mueve la solicitud al archivo, libera el lock de la mascota y deja un mensaje en el chat, todo en una transacción.
// @Tags archive
// @Produce json
// @Param applicationID path string true "application id"
// @Success 200 {object} archivedResponse
// @Failure 409 {object} map[string]string "NOT_ARCHIVABLE"
// @Failure 503 {object} map[string]string "TRANSACTION_FAILED"
// @Router /applications/{applicationID}/archive [post]
func archiveHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		a, err := svc.ArchiveRejected(r.Context(), userID, chi.URLParam(r, "applicationID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toArchivedResponse(a))
	}
}

// listShelterHandler godoc
// @Summary Solicitudes archivadas del shelter
// @Tags archive
// @Produce json
// @Success 200 {array} archivedResponse
// @Router /shelter/archived-applications [get]
func listShelterHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		items, err := svc.ListByShelter(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toArchivedResponses(items))
	}
}

func listMineHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		items, err := svc.ListByApplicant(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toArchivedResponses(items))
	}
}

func getHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		a, err := svc.Get(r.Context(), userID, chi.URLParam(r, "archivedID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toArchivedResponse(a))
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return claims.UserID, true
}

func toArchivedResponse(a ArchivedApplication) archivedResponse {
	return archivedResponse{
		ID:              a.ID,
		ApplicationID:   a.ApplicationID,
		ApplicantID:     a.ApplicantID,
		ShelterID:       a.ShelterID,
		PetID:           a.PetID,
		PetName:         a.PetName,
		ApplicationData: a.Data,
		RejectionReason: a.RejectionReason,
		SubmittedAt:     a.SubmittedAt,
		ReviewedAt:      a.ReviewedAt,
		RejectedAt:      a.RejectedAt,
	}
}

func toArchivedResponses(items []ArchivedApplication) []archivedResponse {
	out := make([]archivedResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toArchivedResponse(a))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]string{
		"code":    string(apperr.CodeOf(err)),
		"message": apperr.MessageOf(err),
	})
}
