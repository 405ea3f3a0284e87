package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/zentikhq/zentik-sync/internal/entity"
)

// kv is the narrow key-value surface RedisStore needs; pkg/redis.Client
// satisfies it.
type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DelPrefix(ctx context.Context, prefix string) (int64, error)
	EntityKey(identity string) string
	QueryKey(name string) string
}

// RedisStore persists the normalized cache in redis so companion
// processes (widget, watch bridge) read the same entities.
type RedisStore struct {
	kv kv
}

// NewRedisStore wires the store onto a redis key-value client.
func NewRedisStore(client kv) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStore{kv: client}, nil
}

func (s *RedisStore) Write(ctx context.Context, key entity.Key, e entity.Entity) error {
	if key == "" {
		return fmt.Errorf("entity key is required")
	}
	if got, ok := e.Key(); !ok || got != key {
		return fmt.Errorf("entity does not match key %s", key)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entity %s: %w", key, err)
	}
	return s.kv.Set(ctx, s.kv.EntityKey(string(key)), string(payload), 0)
}

func (s *RedisStore) Get(ctx context.Context, key entity.Key) (entity.Entity, bool, error) {
	raw, err := s.kv.Get(ctx, s.kv.EntityKey(string(key)))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var e entity.Entity
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, false, fmt.Errorf("decode entity %s: %w", key, err)
	}
	return e, true, nil
}

func (s *RedisStore) WriteListResult(ctx context.Context, queryKey string, keys []entity.Key) error {
	if queryKey == "" {
		return fmt.Errorf("query key is required")
	}
	payload, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode list result %s: %w", queryKey, err)
	}
	return s.kv.Set(ctx, s.kv.QueryKey(queryKey), string(payload), 0)
}

func (s *RedisStore) ListResult(ctx context.Context, queryKey string) ([]entity.Key, bool, error) {
	raw, err := s.kv.Get(ctx, s.kv.QueryKey(queryKey))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var keys []entity.Key
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, false, fmt.Errorf("decode list result %s: %w", queryKey, err)
	}
	return keys, true, nil
}

// Invalidate drops the domain's own result and every ":"-namespaced
// result under it. A domain sharing a raw prefix ("notifications" vs
// "notifications-archive") is untouched.
func (s *RedisStore) Invalidate(ctx context.Context, domainKey string) error {
	if domainKey == "" {
		return fmt.Errorf("domain key is required")
	}
	if err := s.kv.Del(ctx, s.kv.QueryKey(domainKey)); err != nil {
		return err
	}
	_, err := s.kv.DelPrefix(ctx, s.kv.QueryKey(domainKey)+":")
	return err
}
