package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/pkordes/showing-tours/internal/domain"
)

// DefaultKey is the Redis list notifications are pushed onto.
const DefaultKey = "tours:notifications"

// NewRedisClient parses a redis:// URL and checks the server answers.
func NewRedisClient(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("events.NewRedisClient: parse url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("events.NewRedisClient: ping: %w", err)
	}
	return client, nil
}

// RedisQueue is a Queue on a Redis list: LPUSH to publish, BRPOP to consume,
// so events come out in the order they went in. Events are JSON encoded.
type RedisQueue struct {
	client *redis.Client
	key    string
	wait   time.Duration
}

// NewRedisQueue creates a RedisQueue on key (DefaultKey when empty). wait is
// how long Next blocks before returning ErrEmpty.
func NewRedisQueue(client *redis.Client, key string, wait time.Duration) *RedisQueue {
	if key == "" {
		key = DefaultKey
	}
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisQueue{client: client, key: key, wait: wait}
}

// Notify pushes n onto the list.
func (q *RedisQueue) Notify(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("events.RedisQueue.Notify: marshal: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("events.RedisQueue.Notify: lpush: %w", err)
	}
	return nil
}

// Next pops the oldest event, waiting up to the queue's wait time.
func (q *RedisQueue) Next(ctx context.Context) (domain.Notification, error) {
	res, err := q.client.BRPop(ctx, q.wait, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return domain.Notification{}, ErrEmpty
	}
	if err != nil {
		if ctx.Err() != nil {
			return domain.Notification{}, ctx.Err()
		}
		return domain.Notification{}, fmt.Errorf("events.RedisQueue.Next: brpop: %w", err)
	}
	// BRPOP answers [key, value].
	if len(res) != 2 {
		return domain.Notification{}, fmt.Errorf("events.RedisQueue.Next: unexpected reply of %d items", len(res))
	}

	var n domain.Notification
	if err := json.Unmarshal([]byte(res[1]), &n); err != nil {
		return domain.Notification{}, fmt.Errorf("events.RedisQueue.Next: unmarshal: %w", err)
	}
	return n, nil
}
