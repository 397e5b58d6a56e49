package db

import (
	"context"
	"encoding/json"
	"time"

	"api-monitor/config"
	"api-monitor/model"
	"api-monitor/pkg/logger"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisTokenStore keeps login tokens in Redis with a TTL matching their lifetime.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

func NewRedisTokenStore(ctx context.Context, cfg config.TokenCacheConfig) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect redis %s", cfg.RedisAddr)
	}
	return &RedisTokenStore{client: client, prefix: cfg.KeyPrefix}, nil
}

func (s *RedisTokenStore) key(profileID string) string {
	return s.prefix + profileID
}

func (s *RedisTokenStore) Load(ctx context.Context, profileID string) (model.TokenCacheEntry, bool) {
	var entry model.TokenCacheEntry
	raw, err := s.client.Get(ctx, s.key(profileID)).Bytes()
	if err == redis.Nil {
		return entry, false
	}
	if err != nil {
		logger.Warn("Token cache read failed", zap.String("profile", profileID), zap.Error(err))
		return entry, false
	}
	if err := json.Unmarshal(raw, &entry); err != nil {
		logger.Warn("Token cache entry corrupt", zap.String("profile", profileID), zap.Error(err))
		return entry, false
	}
	return entry, true
}

func (s *RedisTokenStore) Save(ctx context.Context, profileID string, entry model.TokenCacheEntry) {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, s.key(profileID), raw, ttl).Err(); err != nil {
		logger.Warn("Token cache write failed", zap.String("profile", profileID), zap.Error(err))
	}
}

// Clear removes every key under the store's prefix.
func (s *RedisTokenStore) Clear(ctx context.Context) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Warn("Token cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("Token cache clear failed", zap.Error(err))
	}
}

func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
