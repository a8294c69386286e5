package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/mikey/link-joiner/internal/core"
)

// RedisStore keeps a cache as a Redis list of [fingerprint, content] pairs
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore creates a store under prefix:name
func NewRedisStore(rdb *redis.Client, prefix, name string) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		key: prefix + ":cache:" + name,
	}
}

// NewRedisClient creates a client and checks the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Load returns the records in insertion order
func (s *RedisStore) Load(ctx context.Context) ([]core.CacheRecord, error) {
	items, err := s.rdb.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}

	records := make([]core.CacheRecord, 0, len(items))
	for _, item := range items {
		var pair [2]string
		if err := json.Unmarshal([]byte(item), &pair); err != nil {
			return nil, fmt.Errorf("failed to decode entry in %s: %w", s.key, err)
		}
		records = append(records, core.CacheRecord{Fingerprint: pair[0], Content: pair[1]})
	}
	return records, nil
}

// Save replaces the list in a single transaction
func (s *RedisStore) Save(ctx context.Context, records []core.CacheRecord) error {
	values := make([]interface{}, 0, len(records))
	for _, r := range records {
		b, err := json.Marshal([2]string{r.Fingerprint, r.Content})
		if err != nil {
			return fmt.Errorf("failed to encode cache entry: %w", err)
		}
		values = append(values, string(b))
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.RPush(ctx, s.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", s.key, err)
	}
	return nil
}
