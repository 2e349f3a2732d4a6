package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "archive-viewer:snapshots:"

// RedisStore shares cached listings between archive-viewer replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) key(domain string) string {
	return keyPrefix + domain
}

func (s *RedisStore) Get(ctx context.Context, domain string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.key(domain)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, nil
}

func (s *RedisStore) Set(ctx context.Context, domain string, entry *Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	return s.client.Set(ctx, s.key(domain), data, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, domain string) error {
	return s.client.Del(ctx, s.key(domain)).Err()
}
