package redispubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pet-adoption-hub/internal/ports/realtime"

	"github.com/redis/go-redis/v9"
)

// subscriberBuffer acota los mensajes pendientes por conexión; si el
// cliente no consume, los mensajes nuevos se descartan (at-most-once).
const subscriberBuffer = 32

// PubSub implementa realtime.Publisher y realtime.Subscriber sobre Redis
// Pub/Sub, así varias réplicas de la API comparten los canales user:{id}.
type PubSub struct {
	client *redis.Client
}

func New(client *redis.Client) *PubSub {
	return &PubSub{client: client}
}

func (p *PubSub) Publish(ctx context.Context, channel, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	env, err := json.Marshal(realtime.Message{Event: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return p.client.Publish(ctx, channel, env).Err()
}

func (p *PubSub) Subscribe(ctx context.Context, channel string) (<-chan realtime.Message, func(), error) {
	ps := p.client.Subscribe(ctx, channel)
	// Receive confirma la suscripción antes de devolver.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan realtime.Message, subscriberBuffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		in := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				var msg realtime.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					continue
				}
				select {
				case out <- msg:
				default:
				}
			}
		}
	}()

	return out, cancel, nil
}
