package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"pagelink/internal/config"
)

type redisCache struct {
	client *redis.Client
}

var _ Cache = (*redisCache)(nil)

// NewRedis creates a Redis-backed page cache and verifies connectivity.
func NewRedis(cfg config.RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &redisCache{client: client}, nil
}

func (r *redisCache) Get(ctx context.Context, id string) (*Entry, error) {
	data, err := r.client.Get(ctx, pageKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return decode(data)
}

func (r *redisCache) Set(ctx context.Context, id string, entry *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	data, err := encode(entry)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, pageKey(id), data, ttl).Err()
}

func (r *redisCache) Del(ctx context.Context, id string) error {
	return r.client.Del(ctx, pageKey(id)).Err()
}

func pageKey(id string) string {
	return "page:" + id
}

func encode(entry *Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*Entry, error) {
	var entry Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
