package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"MarketAnalyst/internal/model"
)

const quoteKeyPrefix = "marketanalyst:quote:"

// RedisQuoteCache mirrors the latest quote per symbol in Redis on top of
// another Cache. Redis is never the source of truth: misses and Redis errors
// fall through to the wrapped cache.
type RedisQuoteCache struct {
	Cache
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisQuoteCache connects to addr and wraps inner. It returns an error when
// Redis does not answer a ping so the caller can run on inner alone.
func NewRedisQuoteCache(inner Cache, addr, password string, db int, ttl time.Duration, log *zap.Logger) (*RedisQuoteCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}

	c := WrapRedis(inner, client, ttl, log)
	c.log.Info("connected to redis", zap.String("addr", addr))
	return c, nil
}

// WrapRedis wraps inner with an already constructed client.
func WrapRedis(inner Cache, client *redis.Client, ttl time.Duration, log *zap.Logger) *RedisQuoteCache {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &RedisQuoteCache{Cache: inner, client: client, ttl: ttl, log: log}
}

func quoteKey(symbol string) string { return quoteKeyPrefix + symbol }

func (r *RedisQuoteCache) LatestQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	val, err := r.client.Get(ctx, quoteKey(symbol)).Result()
	switch {
	case err == nil:
		var q model.Quote
		if jerr := json.Unmarshal([]byte(val), &q); jerr == nil {
			return &q, nil
		}
		r.log.Warn("bad cached quote, ignoring", zap.String("symbol", symbol))
	case errors.Is(err, redis.Nil):
	default:
		r.log.Warn("redis get failed", zap.String("symbol", symbol), zap.Error(err))
	}

	q, err := r.Cache.LatestQuote(ctx, symbol)
	if err != nil || q == nil {
		return q, err
	}
	r.mirror(ctx, symbol, q)
	return q, nil
}

// RecordQuote stores the quote in the wrapped cache, then mirrors whichever
// quote is now the latest there.
func (r *RedisQuoteCache) RecordQuote(ctx context.Context, symbol string, q model.Quote) error {
	if err := r.Cache.RecordQuote(ctx, symbol, q); err != nil {
		return err
	}
	latest, err := r.Cache.LatestQuote(ctx, symbol)
	if err != nil || latest == nil {
		return nil
	}
	r.mirror(ctx, symbol, latest)
	return nil
}

func (r *RedisQuoteCache) PurgeQuotes(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.Cache.PurgeQuotes(ctx, cutoff)
	if err != nil {
		return n, err
	}
	iter := r.client.Scan(ctx, 0, quoteKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		r.client.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.log.Warn("redis scan failed", zap.Error(err))
	}
	return n, nil
}

func (r *RedisQuoteCache) Close() error {
	rerr := r.client.Close()
	if err := r.Cache.Close(); err != nil {
		return err
	}
	return rerr
}

func (r *RedisQuoteCache) mirror(ctx context.Context, symbol string, q *model.Quote) {
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, quoteKey(symbol), data, r.ttl).Err(); err != nil {
		r.log.Warn("redis set failed", zap.String("symbol", symbol), zap.Error(err))
	}
}
