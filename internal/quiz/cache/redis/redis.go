// Package redis provides a Redis-backed question-pool cache.
package redis

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quizdeck/quizdeck-api/internal/quiz"
)

// Client wraps a Redis client behind the quiz.PoolCache interface.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient initializes a new Redis pool cache.
func NewClient(addr, password string, db int, ttl time.Duration) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{rdb: rdb, ttl: ttl}
}

// Ping helper for startup checks.
func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

func (c *Client) GetPool(ctx context.Context, key string) ([]quiz.Question, bool) {
	raw, err := c.rdb.Get(ctx, "qpool:"+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("redis cache: get %s: %v", key, err)
		}
		return nil, false
	}
	var qs []quiz.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		log.Printf("redis cache: decode %s: %v", key, err)
		return nil, false
	}
	return qs, true
}

func (c *Client) SetPool(ctx context.Context, key string, qs []quiz.Question) {
	data, err := json.Marshal(qs)
	if err != nil {
		log.Printf("redis cache: encode %s: %v", key, err)
		return
	}
	if err := c.rdb.Set(ctx, "qpool:"+key, data, c.ttl).Err(); err != nil {
		log.Printf("redis cache: set %s: %v", key, err)
	}
}
