package limiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrCooldown is returned while a provider's quota cooldown is active.
var ErrCooldown = errors.New("provider quota cooldown active")

// Adaptive caps in-flight provider calls per feature and keeps a shared
// quota cooldown in Redis so every instance backs off together.
type Adaptive struct {
	rdb         *redis.Client
	maxInflight int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	mu          sync.Mutex
	sem         map[string]chan struct{}
}

type Options struct {
	// Redis is optional; without it cooldowns are disabled.
	Redis       *redis.Client
	MaxInflight int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func New(opts Options) *Adaptive {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 8
	}
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 30 * time.Second
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	return &Adaptive{
		rdb:         opts.Redis,
		maxInflight: opts.MaxInflight,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		sem:         map[string]chan struct{}{},
	}
}

// Connect parses a redis URL and pings it.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	ro, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(ro)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := c.Ping(pctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}

func (a *Adaptive) key(provider string) string {
	return fmt.Sprintf("cb:vision:%s", strings.ToLower(provider))
}

// IsOpen returns true if the cooldown for provider is active.
func (a *Adaptive) IsOpen(ctx context.Context, provider string) bool {
	if a.rdb == nil {
		return false
	}
	ts, err := a.rdb.Get(ctx, a.key(provider)).Int64()
	if err != nil {
		return false
	}
	return time.Now().Unix() < ts
}

// Open sets/extends the cooldown with exponential backoff per attempt and
// returns the cooldown applied.
func (a *Adaptive) Open(ctx context.Context, provider string) time.Duration {
	if a.rdb == nil {
		return 0
	}
	k := a.key(provider)
	attempts, _ := a.rdb.Incr(ctx, k+":attempts").Result()
	if attempts < 1 {
		attempts = 1
	}
	d := a.Backoff(int(attempts))
	until := time.Now().Add(d).Unix()
	_ = a.rdb.Set(ctx, k, until, d).Err()
	_ = a.rdb.Expire(ctx, k+":attempts", 2*a.maxBackoff).Err()
	return d
}

// Close resets the cooldown for provider.
func (a *Adaptive) Close(ctx context.Context, provider string) {
	if a.rdb == nil {
		return
	}
	k := a.key(provider)
	_ = a.rdb.Del(ctx, k, k+":attempts").Err()
}

// Backoff doubles from the base per attempt up to the max.
func (a *Adaptive) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := a.baseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= a.maxBackoff {
			return a.maxBackoff
		}
	}
	if d > a.maxBackoff {
		d = a.maxBackoff
	}
	return d
}

// Acquire waits for an in-process slot for feature. The returned release
// func must be called exactly once.
func (a *Adaptive) Acquire(ctx context.Context, feature string) (func(), error) {
	key := strings.ToLower(feature)
	a.mu.Lock()
	ch, ok := a.sem[key]
	if !ok {
		ch = make(chan struct{}, a.maxInflight)
		a.sem[key] = ch
	}
	a.mu.Unlock()
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Ping checks redis connectivity; nil when Redis is not configured.
func (a *Adaptive) Ping(ctx context.Context) error {
	if a.rdb == nil {
		return nil
	}
	return a.rdb.Ping(ctx).Err()
}
