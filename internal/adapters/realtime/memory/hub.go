package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pet-adoption-hub/internal/ports/realtime"
)

const subscriberBuffer = 32

// Hub es el Publisher/Subscriber en proceso para dev y tests (una réplica).
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan realtime.Message]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan realtime.Message]struct{})}
}

func (h *Hub) Publish(ctx context.Context, channel, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := realtime.Message{Event: event, Payload: raw}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs[channel] {
		// suscriptor lento: se descarta
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, channel string) (<-chan realtime.Message, func(), error) {
	ch := make(chan realtime.Message, subscriberBuffer)

	h.mu.Lock()
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[chan realtime.Message]struct{})
	}
	h.subs[channel][ch] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			h.mu.Lock()
			delete(h.subs[channel], ch)
			if len(h.subs[channel]) == 0 {
				delete(h.subs, channel)
			}
			h.mu.Unlock()
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel, nil
}
