package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"breakretest-go/internal/model"

	"github.com/redis/go-redis/v9"
)

// Provider is the upstream candle source
type Provider interface {
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error)
}

// kv is the subset of the redis client the cache uses
type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

var errMiss = errors.New("cache miss")

// RedisClient wraps redis.Client
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient connects to Redis and pings it
func NewRedisClient(addr, password string) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}

	log.Printf("✅ Connected to Redis at %s", addr)
	return &RedisClient{client: client}, nil
}

func (r *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errMiss
	}
	return val, err
}

func (r *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// CandleCache serves recent candle series from Redis and falls through to
// the provider on a miss. Cache errors never fail a fetch.
type CandleCache struct {
	provider Provider
	store    kv
	ttl      time.Duration
}

func NewCandleCache(provider Provider, client *RedisClient, ttl time.Duration) *CandleCache {
	return &CandleCache{provider: provider, store: client, ttl: ttl}
}

func (c *CandleCache) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]model.Kline, error) {
	key := candleKey(symbol, interval, limit)

	if raw, err := c.store.Get(ctx, key); err == nil {
		var klines []model.Kline
		if err := json.Unmarshal(raw, &klines); err == nil {
			return klines, nil
		}
	} else if !errors.Is(err, errMiss) {
		log.Printf("⚠️  [Cache] Read %s failed: %v", key, err)
	}

	klines, err := c.provider.GetKlines(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(klines)
	if err == nil {
		err = c.store.Set(ctx, key, raw, c.ttl)
	}
	if err != nil {
		log.Printf("⚠️  [Cache] Write %s failed: %v", key, err)
	}
	return klines, nil
}

func candleKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("candles:%s:%s:%d", symbol, interval, limit)
}
