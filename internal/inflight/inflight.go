// Package inflight keeps a second run of an operation from starting while the
// first is still going. It is a gate, not a lock queue: a busy key is refused
// immediately.
package inflight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/pkordes/showing-tours/internal/domain"
)

// ErrBusy is returned by Acquire when the key is already held.
var ErrBusy = fmt.Errorf("operation already in flight: %w", domain.ErrConflict)

// Guard hands out one holder per key at a time.
type Guard interface {
	// Acquire claims key. The returned release func must be called when the
	// operation ends; calling it more than once is harmless.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Local is a process-local Guard.
type Local struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocal creates an empty Local guard.
func NewLocal() *Local {
	return &Local{held: make(map[string]struct{})}
}

// Acquire claims key in this process.
func (g *Local) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, ErrBusy
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only if it still holds our token, so a holder
// whose TTL lapsed cannot release someone else's claim.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a Guard shared by every process using the same Redis. Claims
// expire after ttl so a crashed holder does not block the key forever.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis creates a Redis guard. Keys are stored as "inflight:<key>".
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &Redis{client: client, prefix: "inflight:", ttl: ttl}
}

// Acquire claims key with SETNX.
func (g *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	k := g.prefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, k, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("inflight.Redis.Acquire: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must work even when the caller's ctx is already done.
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = releaseScript.Run(relCtx, g.client, []string{k}, token).Err()
		})
	}, nil
}

var (
	_ Guard = (*Local)(nil)
	_ Guard = (*Redis)(nil)
)
