package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisBalanceCache_BadURL(t *testing.T) {
	_, err := NewRedisBalanceCache(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}

func TestNewRedisBalanceCache_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := NewRedisBalanceCache(ctx, "redis://127.0.0.1:1/0", time.Minute)
	assert.Error(t, err)
}

func TestDefaultTTLAndKey(t *testing.T) {
	c := NewRedisBalanceCacheWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), 0)
	defer c.Close()
	assert.Equal(t, 5*time.Minute, c.ttl)
	assert.Equal(t, "dailymint:balance:u1", key("u1"))
	assert.Equal(t, "dailymint:balance-gen:u1", genKey("u1"))
	assert.NotEqual(t, key("gen:u1"), genKey("u1"))
}
