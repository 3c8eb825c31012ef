// internal/adapters/redis/redis.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key does not exist.
var ErrCacheMiss = errors.NewNotFound(nil, "cache miss")

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCache(addr, username, password string, db int, ttl time.Duration) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	return c.SetTTL(ctx, key, value, c.ttl)
}

func (c *Cache) SetTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Revoke marks a token id as logged out until ttl elapses.
func (c *Cache) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, "revoked:"+tokenID, 1, ttl).Err()
}

func (c *Cache) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.client.Exists(ctx, "revoked:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeUserBefore invalidates every token of userID issued up to at. The
// cutoff is kept in milliseconds.
func (c *Cache) RevokeUserBefore(ctx context.Context, userID int64, at time.Time, ttl time.Duration) error {
	return c.client.Set(ctx, cutoffKey(userID), at.UnixMilli(), ttl).Err()
}

// RevokedBefore returns the forced logout cutoff of userID, zero when none.
func (c *Cache) RevokedBefore(ctx context.Context, userID int64) (time.Time, error) {
	v, err := c.client.Get(ctx, cutoffKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, errors.Annotatef(err, "parsing logout cutoff for user %d", userID)
	}
	return time.UnixMilli(ms), nil
}

func cutoffKey(userID int64) string {
	return fmt.Sprintf("logout-before:%d", userID)
}
