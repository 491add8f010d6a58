package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pet-adoption-hub/internal/middleware"
	"pet-adoption-hub/internal/platform/apperr"
	"pet-adoption-hub/internal/ports/realtime"

	"github.com/go-chi/chi/v5"
)

const streamHeartbeat = 25 * time.Second

func RegisterRoutes(r chi.Router, svc *Service, sub realtime.Subscriber) {
	r.Route("/me/notifications", func(nr chi.Router) {
		nr.Get("/", listNotificationsHandler(svc))
		nr.Post("/{notificationID}/read", markReadHandler(svc))
	})

	// SSE con los eventos del canal user:{id}
	if sub != nil {
		r.Get("/me/stream", streamHandler(sub))
	}
}

type notificationResponse struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	UserModel UserModel      `json:"user_model"`
	Type      Type           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

// listNotificationsHandler godoc
// @Summary Bandeja de notificaciones del usuario
// @Tags notifications
// @Produce json
// @Param limit query int false "máximo de items (default 50)"
// @Success 200 {array} notificationResponse
// @Router /me/notifications [get]
func listNotificationsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		items, err := svc.ListByUser(r.Context(), claims.UserID, limit)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]notificationResponse, 0, len(items))
		for _, n := range items {
			out = append(out, toNotificationResponse(n))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func markReadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		n, err := svc.MarkRead(r.Context(), claims.UserID, chi.URLParam(r, "notificationID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toNotificationResponse(n))
	}
}

// streamHandler godoc
// @Summary Stream de eventos en tiempo real (Server-Sent Events)
// @Tags notifications
// @Produce text/event-stream
// @Router /me/stream [get]
func streamHandler(sub realtime.Subscriber) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ctx := r.Context()
		msgs, cancel, err := sub.Subscribe(ctx, realtime.UserChannel(claims.UserID))
		if err != nil {
			http.Error(w, "realtime unavailable", http.StatusServiceUnavailable)
			return
		}
		defer cancel()

		// el WriteTimeout del server no aplica a una conexión larga
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(streamHeartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()
			case m, open := <-msgs:
				if !open {
					return
				}
				data := m.Payload
				if len(data) == 0 {
					data = json.RawMessage("{}")
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.Event, data); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func toNotificationResponse(n Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		UserID:    n.UserID,
		UserModel: n.UserModel,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Metadata:  n.Metadata,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}

// writeJSON/writeError se duplican por módulo, igual que en el resto de handlers.
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
