package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pet-adoption-hub/internal/middleware"
	"pet-adoption-hub/internal/platform/apperr"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes: working resuelve solo solicitudes vivas y lo usan las
// rutas que modifican la sala; history incluye el archivo (solo lectura).
func RegisterRoutes(r chi.Router, svc *Service, working, history ParticipantsResolver) {
	for _, kind := range []Kind{KindChat, KindMeeting} {
		r.Route("/applications/{applicationID}/"+string(kind), func(kr chi.Router) {
			// Shelter: crear/reabrir, cerrar, bloquear
			kr.Post("/", createOrReopenHandler(svc, working, kind))
			kr.Delete("/", closeHandler(svc, working, kind))
			kr.Post("/block", blockHandler(svc, working, kind))

			// Owner o shelter
			kr.Get("/", statusHandler(svc, history, kind))
			kr.Get("/messages", messagesHandler(svc, history, kind))
		})
	}
}

type roomResponse struct {
	ID            string     `json:"id"`
	Kind          Kind       `json:"kind"`
	OwnerID       string     `json:"owner_id"`
	ShelterID     string     `json:"shelter_id"`
	PetID         string     `json:"pet_id"`
	ApplicationID string     `json:"application_id"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
}

type openRoomResponse struct {
	Room   roomResponse `json:"room"`
	Action Action       `json:"action"`
}

type roomStatusResponse struct {
	RoomID string `json:"room_id"`
	Status Status `json:"status"`
}

type messageResponse struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	SenderModel string    `json:"sender_model"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

// createOrReopenHandler godoc
// @Summary Crear o reabrir la sala (chat/meeting) de una solicitud
// @Tags rooms
// @Produce json
// @Param applicationID path string true "application id"
// @Success 200 {object} openRoomResponse
// @Failure 409 {object} map[string]string "BLOCKED"
// @Router /applications/{applicationID}/chat [post]
func createOrReopenHandler(svc *Service, resolver ParticipantsResolver, kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := resolveAsShelter(w, r, resolver)
		if !ok {
			return
		}

		res, err := svc.CreateOrReopen(r.Context(), kind, p)
		if err != nil {
			writeError(w, err)
			return
		}
		svc.NotifyOpened(r.Context(), res, p)

		status := http.StatusOK
		if res.Action == ActionCreated {
			status = http.StatusCreated
		}
		writeJSON(w, status, openRoomResponse{
			Room:   toRoomResponse(res.Room),
			Action: res.Action,
		})
	}
}

func closeHandler(svc *Service, resolver ParticipantsResolver, kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := resolveAsShelter(w, r, resolver)
		if !ok {
			return
		}

		room, err := svc.Close(r.Context(), kind, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRoomResponse(room))
	}
}

func blockHandler(svc *Service, resolver ParticipantsResolver, kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := resolveAsShelter(w, r, resolver)
		if !ok {
			return
		}

		room, err := svc.Block(r.Context(), kind, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRoomResponse(room))
	}
}

// statusHandler godoc
// @Summary Estado de la sala de una solicitud (null si no existe)
// @Tags rooms
// @Produce json
// @Param applicationID path string true "application id"
// @Success 200 {object} roomStatusResponse
// @Router /applications/{applicationID}/chat [get]
func statusHandler(svc *Service, resolver ParticipantsResolver, kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := resolveAsParticipant(w, r, resolver)
		if !ok {
			return
		}

		room, err := svc.Status(r.Context(), kind, p)
		if errors.Is(err, ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, roomStatusResponse{RoomID: room.ID, Status: room.Status})
	}
}

func messagesHandler(svc *Service, resolver ParticipantsResolver, kind Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := resolveAsParticipant(w, r, resolver)
		if !ok {
			return
		}

		items, err := svc.Messages(r.Context(), kind, p)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]messageResponse, 0, len(items))
		for _, m := range items {
			out = append(out, messageResponse{
				ID:          m.ID,
				SenderID:    m.SenderID,
				SenderModel: m.SenderModel,
				Body:        m.Body,
				CreatedAt:   m.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func resolveAsShelter(w http.ResponseWriter, r *http.Request, resolver ParticipantsResolver) (Participants, bool) {
	return resolveFor(w, r, resolver, func(userID string, p Participants) bool {
		return p.ShelterID == userID
	})
}

func resolveAsParticipant(w http.ResponseWriter, r *http.Request, resolver ParticipantsResolver) (Participants, bool) {
	return resolveFor(w, r, resolver, func(userID string, p Participants) bool {
		return p.ShelterID == userID || p.OwnerID == userID
	})
}

// resolveFor: 401 sin claims; 404 si la solicitud no existe o el usuario no
// participa (no se distingue para no filtrar solicitudes ajenas).
func resolveFor(w http.ResponseWriter, r *http.Request, resolver ParticipantsResolver, allowed func(string, Participants) bool) (Participants, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return Participants{}, false
	}

	p, err := lookup(r.Context(), resolver, chi.URLParam(r, "applicationID"))
	if err != nil {
		writeError(w, err)
		return Participants{}, false
	}
	if !allowed(claims.UserID, p) {
		writeError(w, ErrNotFound)
		return Participants{}, false
	}
	return p, true
}

func lookup(ctx context.Context, resolver ParticipantsResolver, applicationID string) (Participants, error) {
	applicationID = strings.TrimSpace(applicationID)
	if resolver == nil || applicationID == "" {
		return Participants{}, ErrNotFound
	}
	return resolver.Participants(ctx, applicationID)
}

func toRoomResponse(r Room) roomResponse {
	return roomResponse{
		ID:            r.ID,
		Kind:          r.Kind,
		OwnerID:       r.OwnerID,
		ShelterID:     r.ShelterID,
		PetID:         r.PetID,
		ApplicationID: r.ApplicationID,
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		ClosedAt:      r.ClosedAt,
	}
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
