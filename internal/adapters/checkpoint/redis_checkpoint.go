package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ghalamif/DAOGuard/internal/ports"
)

// RedisCheckpointer keeps the latest checkpoint under a single key.
type RedisCheckpointer struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCheckpointer connects to redisURL and verifies the connection.
func NewRedisCheckpointer(ctx context.Context, redisURL, keyPrefix string) (*RedisCheckpointer, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return NewRedisCheckpointerFromClient(client, keyPrefix), nil
}

func NewRedisCheckpointerFromClient(client *redis.Client, keyPrefix string) *RedisCheckpointer {
	if keyPrefix == "" {
		keyPrefix = "daoguard"
	}
	return &RedisCheckpointer{client: client, key: keyPrefix + ":checkpoint"}
}

// WithTTL expires the checkpoint if it is not refreshed in time. Zero keeps
// it forever.
func (r *RedisCheckpointer) WithTTL(ttl time.Duration) *RedisCheckpointer {
	r.ttl = ttl
	return r
}

func (r *RedisCheckpointer) Key() string { return r.key }

func (r *RedisCheckpointer) Save(ctx context.Context, cp ports.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load returns nil without error when no checkpoint exists.
func (r *RedisCheckpointer) Load(ctx context.Context) (*ports.Checkpoint, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}

	var cp ports.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint: %w", err)
	}
	return &cp, nil
}

func (r *RedisCheckpointer) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

var _ ports.Checkpointer = (*RedisCheckpointer)(nil)
