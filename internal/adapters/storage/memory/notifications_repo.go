package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"pet-adoption-hub/internal/domain/notifications"
)

type notificationRepo struct {
	s *Store
}

func NewNotificationRepo(s *Store) notifications.Repository {
	return &notificationRepo{s: s}
}

func (r *notificationRepo) Create(ctx context.Context, n notifications.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if strings.TrimSpace(n.ID) == "" {
		return errors.New("notification id required")
	}
	r.s.st.notifications[n.ID] = n
	return nil
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID string, limit int) ([]notifications.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]notifications.Notification, 0)
	for _, n := range r.s.st.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, userID, id string) (notifications.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.st.notifications[id]
	if !ok || n.UserID != userID {
		return notifications.Notification{}, notifications.ErrNotFound
	}
	n.Read = true
	r.s.st.notifications[id] = n
	return n, nil
}
