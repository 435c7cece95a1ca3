// Package cache holds the Redis-backed balance cache used by the token ledger.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "dailymint:balance:"
	genPrefix = "dailymint:balance-gen:"
)

var errStaleGeneration = errors.New("balance generation moved")

type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBalanceCache connects to url (redis://...) and verifies the connection.
func NewRedisBalanceCache(ctx context.Context, url string, ttl time.Duration) (*RedisBalanceCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisBalanceCacheWithClient(client, ttl), nil
}

func NewRedisBalanceCacheWithClient(client *redis.Client, ttl time.Duration) *RedisBalanceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisBalanceCache{client: client, ttl: ttl}
}

func (c *RedisBalanceCache) Get(ctx context.Context, userID string) (int64, bool, error) {
	v, err := c.client.Get(ctx, key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Generation returns the user's invalidation counter, 0 before the first append.
func (c *RedisBalanceCache) Generation(ctx context.Context, userID string) (int64, error) {
	return generation(ctx, c.client, userID)
}

// SetIfGeneration writes balance under WATCH on the generation key. It
// reports false when an invalidation happened since gen was read.
func (c *RedisBalanceCache) SetIfGeneration(ctx context.Context, userID string, balance, gen int64) (bool, error) {
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := generation(ctx, tx, userID)
		if err != nil {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(userID), balance, c.ttl)
			return nil
		})
		return err
	}, genKey(userID))
	if errors.Is(err, errStaleGeneration) || errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Invalidate bumps the generation and drops the cached balance atomically.
func (c *RedisBalanceCache) Invalidate(ctx context.Context, userID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Del(ctx, key(userID))
		return nil
	})
	return err
}

func (c *RedisBalanceCache) Close() error { return c.client.Close() }

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, r getter, userID string) (int64, error) {
	v, err := r.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func key(userID string) string    { return keyPrefix + userID }
func genKey(userID string) string { return genPrefix + userID }
