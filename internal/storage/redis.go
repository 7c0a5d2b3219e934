package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix はRedis上のキーの接頭辞。
const redisKeyPrefix = "portal:client:"

// RedisClient はRedisMediumが使用するコマンドの部分集合。
// *redis.Clientが満たす。
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	GetEx(ctx context.Context, key string, expiration time.Duration) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisMedium はRedisを使用した永続化媒体。
// 各キーにはブラウザコンテキストCookieと同じ有効期間のTTLを設定する。
type RedisMedium struct {
	client RedisClient
	ttl    time.Duration
}

// NewRedisMedium はRedisMediumを生成する。
// ttlが0以下の場合は有効期限なしで保存する。
func NewRedisMedium(client RedisClient, ttl time.Duration) *RedisMedium {
	if ttl < 0 {
		ttl = 0
	}
	return &RedisMedium{client: client, ttl: ttl}
}

// NewRedisClient はREDIS_URLからRedisクライアントを生成する。
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Get は値を取得する。
// TTLが設定されている場合は読み込みのたびに有効期限を延長する。
func (m *RedisMedium) Get(ctx context.Context, clientID, key string) (string, bool, error) {
	var cmd *redis.StringCmd
	if m.ttl > 0 {
		cmd = m.client.GetEx(ctx, redisKey(clientID, key), m.ttl)
	} else {
		cmd = m.client.Get(ctx, redisKey(clientID, key))
	}
	value, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get client storage: %w", err)
	}
	return value, true, nil
}

// Set は値を保存する。
func (m *RedisMedium) Set(ctx context.Context, clientID, key, value string) error {
	if err := m.client.Set(ctx, redisKey(clientID, key), value, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set client storage: %w", err)
	}
	return nil
}

// Delete は指定キーの値を削除する。
func (m *RedisMedium) Delete(ctx context.Context, clientID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = redisKey(clientID, k)
	}
	if err := m.client.Del(ctx, redisKeys...).Err(); err != nil {
		return fmt.Errorf("failed to delete client storage: %w", err)
	}
	return nil
}

func redisKey(clientID, key string) string {
	return redisKeyPrefix + clientID + ":" + key
}

// compile-time interface check
var _ Medium = (*RedisMedium)(nil)
