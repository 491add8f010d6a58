package rediscache

import (
	"context"
	"errors"
	"time"

	"pet-adoption-hub/internal/platform/logger"
	"pet-adoption-hub/internal/ports/identity"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "identity:display_name:"

// Directory cachea en Redis los nombres que resuelve otro identity.Directory.
// Si Redis falla se consulta directo al upstream.
type Directory struct {
	next   identity.Directory
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func New(next identity.Directory, client *redis.Client, ttl time.Duration, log logger.Logger) *Directory {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Directory{next: next, client: client, ttl: ttl, log: log}
}

func (d *Directory) GetDisplayName(ctx context.Context, userID string) (string, error) {
	key := keyPrefix + userID

	name, err := d.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		return name, nil
	case !errors.Is(err, redis.Nil):
		d.log.Warn("identity cache read failed", map[string]any{"user_id": userID, "error": err})
	}

	name, err = d.next.GetDisplayName(ctx, userID)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", nil
	}
	if err := d.client.Set(ctx, key, name, d.ttl).Err(); err != nil {
		d.log.Warn("identity cache write failed", map[string]any{"user_id": userID, "error": err})
	}
	return name, nil
}
