package applications

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"pet-adoption-hub/internal/domain/locks"
	"pet-adoption-hub/internal/middleware"
	"pet-adoption-hub/internal/platform/apperr"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	// Mascota: disponibilidad y postulación
	r.Post("/pets/{petID}/applications", submitHandler(svc))
	r.Get("/pets/{petID}/availability", availabilityHandler(svc))
	r.Put("/pets/{petID}/availability", publishAvailabilityHandler(svc))

	// Solicitud individual
	r.Get("/applications/{applicationID}", getHandler(svc))
	r.Delete("/applications/{applicationID}", withdrawHandler(svc))
	r.Post("/applications/{applicationID}/review", reviewHandler(svc))
	r.Post("/applications/{applicationID}/reject", rejectHandler(svc))
	r.Post("/applications/{applicationID}/approve", approveHandler(svc))

	// Listados
	r.Get("/me/applications", listMineHandler(svc))
	r.Get("/shelter/applications", listShelterHandler(svc))
}

type submitRequest struct {
	ShelterID       string          `json:"shelter_id"`
	ApplicationData json.RawMessage `json:"application_data"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type applicationResponse struct {
	ID              string          `json:"id"`
	ApplicantID     string          `json:"applicant_id"`
	ShelterID       string          `json:"shelter_id"`
	PetID           string          `json:"pet_id"`
	PetName         string          `json:"pet_name"`
	Status          Status          `json:"status"`
	ApplicationData ApplicationData `json:"application_data"`
	RejectionReason string          `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time       `json:"submitted_at"`
	ReviewedAt      *time.Time      `json:"reviewed_at,omitempty"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type roomRef struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Action string `json:"action"`
}

type reviewResponse struct {
	Application applicationResponse `json:"application"`
	Chat        *roomRef            `json:"chat,omitempty"`
	Meeting     *roomRef            `json:"meeting,omitempty"`
}

type availabilityResponse struct {
	PetID               string            `json:"pet_id"`
	PetName             string            `json:"pet_name,omitempty"`
	Available           bool              `json:"available"`
	Button              locks.ButtonState `json:"button"`
	ApplicationID       string            `json:"application_id,omitempty"`
	ActiveApplicationID string            `json:"active_application_id,omitempty"`
}

// submitHandler godoc
// @Summary Postular a la adopción de una mascota
// @Tags applications
// @Accept json
// @Produce json
// @Param petID path string true "pet id"
// @Param body body submitRequest true "cuestionario"
// @Success 201 {object} applicationResponse
// @Failure 409 {object} map[string]string "CONFLICT / DUPLICATE_PENDING / ALREADY_APPROVED"
// @Failure 422 {object} map[string]string "PET_NOT_ADOPTABLE"
// @Router /pets/{petID}/applications [post]
func submitHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Wrap(apperr.CodeValidation, "invalid json body", err))
			return
		}
		data, err := DecodeApplicationData(req.ApplicationData)
		if err != nil {
			writeError(w, err)
			return
		}

		a, err := svc.Submit(r.Context(), SubmitInput{
			ApplicantID: userID,
			PetID:       chi.URLParam(r, "petID"),
			ShelterID:   req.ShelterID,
			Data:        data,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toApplicationResponse(a))
	}
}

// availabilityHandler godoc
// @Summary Estado del botón de adopción para el viewer
// @Tags applications
// @Produce json
// @Param petID path string true "pet id"
// @Success 200 {object} availabilityResponse
// @Router /pets/{petID}/availability [get]
func availabilityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// anónimo permitido: ve apply / applied_by_another
		viewerID := ""
		if claims, ok := middleware.GetClaims(r.Context()); ok {
			viewerID = claims.UserID
		}

		av, err := svc.Availability(r.Context(), chi.URLParam(r, "petID"), viewerID)
		if err != nil {
			writeError(w, err)
			return
		}

		resp := availabilityResponse{
			PetID:         av.PetID,
			PetName:       av.Lock.PetName,
			Available:     !av.Lock.Held(),
			Button:        av.Button,
			ApplicationID: av.ApplicationID,
		}
		if viewerID != "" && av.Lock.ActiveApplicantID == viewerID {
			resp.ActiveApplicationID = av.Lock.ActiveApplicationID
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func publishAvailabilityHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		l, err := svc.PublishAvailability(r.Context(), userID, chi.URLParam(r, "petID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, availabilityResponse{
			PetID:     l.PetID,
			PetName:   l.PetName,
			Available: !l.Held(),
			Button:    locks.StateFor(l, userID),
		})
	}
}

func getHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		a, err := svc.Get(r.Context(), userID, chi.URLParam(r, "applicationID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toApplicationResponse(a))
	}
}

// withdrawHandler godoc
// @Summary Retirar una solicitud (solo el applicant, en submitted/review)
// @Tags applications
// @Param applicationID path string true "application id"
// @Success 204
// @Failure 404 {object} map[string]string "NOT_FOUND_OR_ALREADY_PROCESSED"
// @Failure 409 {object} map[string]string "NOT_WITHDRAWABLE"
// @Router /applications/{applicationID} [delete]
func withdrawHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		if _, err := svc.Withdraw(r.Context(), userID, chi.URLParam(r, "applicationID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// reviewHandler godoc
// @Summary Pasar la solicitud a review (abre chat y meeting)
// @Tags applications
// @Produce json
// @Param applicationID path string true "application id"
// @Success 200 {object} reviewResponse
// @Router /applications/{applicationID}/review [post]
func reviewHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		res, err := svc.MoveToReview(r.Context(), userID, chi.URLParam(r, "applicationID"))
		if err != nil {
			writeError(w, err)
			return
		}

		out := reviewResponse{Application: toApplicationResponse(res.Application)}
		if res.Chat != nil {
			out.Chat = &roomRef{ID: res.Chat.ID, Status: string(res.Chat.Status), Action: string(res.ChatAction)}
		}
		if res.Meeting != nil {
			out.Meeting = &roomRef{ID: res.Meeting.ID, Status: string(res.Meeting.Status), Action: string(res.MeetingAction)}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func rejectHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		var req rejectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, apperr.Wrap(apperr.CodeValidation, "invalid json body", err))
			return
		}

		a, err := svc.Reject(r.Context(), userID, chi.URLParam(r, "applicationID"), req.Reason)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toApplicationResponse(a))
	}
}

func approveHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		a, err := svc.Approve(r.Context(), userID, chi.URLParam(r, "applicationID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toApplicationResponse(a))
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
		writeJSON(w, http.StatusOK, toApplicationResponses(items))
	}
}

// listShelterHandler godoc
// @Summary Solicitudes recibidas por el shelter
// @Tags applications
// @Produce json
// @Param status query string false "submitted|review|approved|rejected"
// @Success 200 {array} applicationResponse
// @Router /shelter/applications [get]
func listShelterHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		status := Status(strings.TrimSpace(r.URL.Query().Get("status")))
		items, err := svc.ListByShelter(r.Context(), userID, status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toApplicationResponses(items))
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

func toApplicationResponse(a Application) applicationResponse {
	return applicationResponse{
		ID:              a.ID,
		ApplicantID:     a.ApplicantID,
		ShelterID:       a.ShelterID,
		PetID:           a.PetID,
		PetName:         a.PetName,
		Status:          a.Status,
		ApplicationData: a.Data,
		RejectionReason: a.RejectionReason,
		SubmittedAt:     a.SubmittedAt,
		ReviewedAt:      a.ReviewedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func toApplicationResponses(items []Application) []applicationResponse {
	out := make([]applicationResponse, 0, len(items))
	for _, a := range items {
		out = append(out, toApplicationResponse(a))
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
