// Package draft implements the pre-submission form cache. Drafts are a
// convenience so a reload does not lose an in-progress form; the
// durable submission store remains the single source of truth. Drafts
// expire on a TTL and are cleared when a submission succeeds.
package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bookfairhq/bookfair-backend/internal/model"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound is returned for an unknown or expired draft token.
var ErrNotFound = errors.New("draft not found")

// Draft is one cached in-progress form.
type Draft struct {
	Kind model.Kind    `json:"kind"`
	Step int           `json:"step"`
	Form model.Payload `json:"form"`
}

// NewRedis connects and pings a Redis client for the draft cache.
func NewRedis(addr, password string, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info("redis connection established")
	return rdb, nil
}

// Cache stores drafts in Redis under an opaque token.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache constructs a Cache.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func key(token string) string {
	return "draft:" + token
}

// Save stores a draft and returns its token, generating one when the
// client has none yet.
func (c *Cache) Save(ctx context.Context, token string, d Draft) (string, error) {
	if token == "" {
		token = uuid.New().String()
	}
	body, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal draft: %w", err)
	}
	if err := c.rdb.Set(ctx, key(token), body, c.ttl).Err(); err != nil {
		return "", fmt.Errorf("save draft: %w", err)
	}
	return token, nil
}

// Load fetches a draft by token.
func (c *Cache) Load(ctx context.Context, token string) (*Draft, error) {
	body, err := c.rdb.Get(ctx, key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &d, nil
}

// Clear removes a draft. Clearing an unknown token is a no-op.
func (c *Cache) Clear(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return c.rdb.Del(ctx, key(token)).Err()
}
