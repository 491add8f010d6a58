package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"pet-adoption-hub/internal/platform/logger"
	"pet-adoption-hub/internal/platform/logger/loggertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------
// Fakes
// -------------------------

type testRepo struct {
	mu      sync.Mutex
	items   []Notification
	failErr error
}

func (r *testRepo) Create(ctx context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failErr != nil {
		return r.failErr
	}
	r.items = append(r.items, n)
	return nil
}

func (r *testRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, 0)
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].UserID == userID {
			out = append(out, r.items[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *testRepo) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].ID == id && r.items[i].UserID == userID {
			r.items[i].Read = true
			return r.items[i], nil
		}
	}
	return Notification{}, errors.New("repo: not found")
}

type published struct {
	channel string
	event   string
	payload any
}

type testPublisher struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (p *testPublisher) Publish(ctx context.Context, channel, event string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, published{channel: channel, event: event, payload: payload})
	return nil
}

// -------------------------
// Tests
// -------------------------

func TestNotify_PersistsThenPushesToUserChannel(t *testing.T) {
	repo := &testRepo{}
	pub := &testPublisher{}
	svc := NewService(repo, pub, loggertest.New(t))
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	n, err := svc.Notify(context.Background(), NotifyInput{
		UserID:    "owner-1",
		UserModel: UserOwner,
		Type:      TypeApplicationSubmitted,
		Title:     "Application submitted",
		Message:   "Your application for Milo was sent",
		Metadata:  map[string]any{"pet_id": "pet-1"},
	})
	require.NoError(t, err)

	assert.False(t, n.Read)
	assert.Equal(t, now, n.CreatedAt)
	require.Len(t, repo.items, 1)

	require.Len(t, pub.sent, 1)
	assert.Equal(t, "user:owner-1", pub.sent[0].channel)
	assert.Equal(t, "notification:new", pub.sent[0].event)

	b, _ := json.Marshal(pub.sent[0].payload)
	assert.JSONEq(t, `{"id":"`+n.ID+`","title":"Application submitted","message":"Your application for Milo was sent","type":"application_submitted","metadata":{"pet_id":"pet-1"}}`, string(b))
}

func TestNotify_PushFailureDoesNotFailWrite(t *testing.T) {
	repo := &testRepo{}
	pub := &testPublisher{err: errors.New("redis down")}
	svc := NewService(repo, pub, loggertest.New(t))

	_, err := svc.Notify(context.Background(), NotifyInput{
		UserID: "shelter-1", UserModel: UserShelter, Type: TypeApplicationReceived, Title: "New application",
	})
	require.NoError(t, err)
	assert.Len(t, repo.items, 1)
}

func TestNotify_WriteFailureSkipsPush(t *testing.T) {
	repo := &testRepo{failErr: errors.New("db down")}
	pub := &testPublisher{}
	svc := NewService(repo, pub, logger.NewNop())

	_, err := svc.Notify(context.Background(), NotifyInput{UserID: "owner-1", Title: "x"})
	require.Error(t, err)
	assert.Empty(t, pub.sent)
}

func TestNotify_RequiresUserAndTitle(t *testing.T) {
	svc := NewService(&testRepo{}, nil, nil)

	_, err := svc.Notify(context.Background(), NotifyInput{UserID: " ", Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Notify(context.Background(), NotifyInput{UserID: "u", Title: ""})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarkRead_OnlyOwnNotifications(t *testing.T) {
	repo := &testRepo{}
	svc := NewService(repo, nil, nil)

	n, err := svc.Notify(context.Background(), NotifyInput{UserID: "owner-1", Title: "hello"})
	require.NoError(t, err)

	_, err = svc.MarkRead(context.Background(), "owner-2", n.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := svc.MarkRead(context.Background(), "owner-1", n.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	items, err := svc.ListByUser(context.Background(), "owner-1", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Read)
}
