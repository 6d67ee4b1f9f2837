package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRedisKey is the hash macros live in when none is configured
const DefaultRedisKey = "macroweb:macros"

// RedisStore keeps all macros as fields of one Redis hash
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore connects and pings the server
func NewRedisStore(ctx context.Context, cfg Config, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	key := cfg.RedisKey
	if key == "" {
		key = DefaultRedisKey
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("redis store connected", zap.String("addr", cfg.RedisAddr), zap.String("key", key))
	return &RedisStore{client: client, key: key, logger: logger}, nil
}

// Save implements Store
func (s *RedisStore) Save(ctx context.Context, name, serialized string) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := s.client.HSet(ctx, s.key, name, serialized).Err(); err != nil {
		return fmt.Errorf("save macro %s: %w", name, err)
	}
	return nil
}

// LoadAll implements Store
func (s *RedisStore) LoadAll(ctx context.Context) (map[string]string, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("load macros: %w", err)
	}
	return all, nil
}

// Delete implements Store
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := s.client.HDel(ctx, s.key, name).Err(); err != nil {
		return fmt.Errorf("delete macro %s: %w", name, err)
	}
	return nil
}

// Close implements Store
func (s *RedisStore) Close() error {
	return s.client.Close()
}
