package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "diario:popularity:"

// Config 用于初始化 Redis 缓存。
type Config struct {
	Addr      string
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// RedisCache 以 JSON 形式缓存热门榜单与统计结果。
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedis 连接 Redis 并校验可用性。
func NewRedis(ctx context.Context, c Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}

	return newRedisCache(client, c), nil
}

func newRedisCache(client *redis.Client, c Config) *RedisCache {
	ttl := c.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	prefix := c.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCache{client: client, ttl: ttl, prefix: prefix}
}

// Get 读取缓存，未命中时返回 false。
func (r *RedisCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "redis get")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, errors.Wrap(err, "decode cached value")
	}
	return true, nil
}

// Set 写入缓存并设置过期时间。
func (r *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encode cached value")
	}
	return errors.Wrap(r.client.Set(ctx, r.prefix+key, raw, r.ttl).Err(), "redis set")
}

// Purge 删除前缀下的全部键。
func (r *RedisCache) Purge(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scan cache keys")
	}
	if len(keys) == 0 {
		return nil
	}
	return errors.Wrap(r.client.Del(ctx, keys...).Err(), "delete cache keys")
}

// Close 关闭连接。
func (r *RedisCache) Close() error {
	return r.client.Close()
}
