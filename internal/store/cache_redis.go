package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/ProTeamWorkforce/ImageAi-APp/internal/contract"
)

// EnvelopeCache stores finished conversions keyed by kind and image digest.
type EnvelopeCache interface {
	Get(ctx context.Context, key string) (contract.Envelope, bool, error)
	Set(ctx context.Context, key string, env contract.Envelope) error
}

// Key is stable for the same kind and image bytes.
func Key(kind contract.Kind, image []byte) string {
	sum := blake2b.Sum256(image)
	return fmt.Sprintf("imageai:conv:%s:%s", kind, hex.EncodeToString(sum[:]))
}

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (contract.Envelope, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return contract.Envelope{}, false, nil
	}
	if err != nil {
		return contract.Envelope{}, false, err
	}
	var env contract.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return contract.Envelope{}, false, fmt.Errorf("decode cached envelope: %w", err)
	}
	if err := env.Validate(); err != nil {
		// Written by an older version; treat as a miss.
		return contract.Envelope{}, false, nil
	}
	return env, true, nil
}

// Set stores env without the per-request fields.
func (c *RedisCache) Set(ctx context.Context, key string, env contract.Envelope) error {
	env.Cached = false
	env.ArchiveURL = ""
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
