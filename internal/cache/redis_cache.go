// Package cache provides the local fallback copy of newsletter documents used
// when the primary persistence backend is unreachable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"newsletter/api/internal/newsletter"
)

// KeyPrefix matches the key layout of the browser-side fallback ("nl_" + id).
const KeyPrefix = "nl_"

// RedisCache stores whole documents as JSON under "nl_<id>".
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache connects to redisURL. A zero ttl keeps entries until they are
// overwritten.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(client, ttl), nil
}

// NewRedisCacheWithClient wraps an existing client.
func NewRedisCacheWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: KeyPrefix,
		ttl:    ttl,
	}
}

func (c *RedisCache) key(id string) string {
	return c.prefix + id
}

// Put writes the full document.
func (c *RedisCache) Put(ctx context.Context, doc newsletter.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal newsletter: %w", err)
	}
	if err := c.client.Set(ctx, c.key(doc.ID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache newsletter: %w", err)
	}
	return nil
}

// Get returns nil when nothing is cached under id.
func (c *RedisCache) Get(ctx context.Context, id string) (*newsletter.Document, error) {
	payload, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached newsletter: %w", err)
	}

	var doc newsletter.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal cached newsletter: %w", err)
	}
	doc.Normalize()
	return &doc, nil
}

func (c *RedisCache) Delete(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("delete cached newsletter: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
