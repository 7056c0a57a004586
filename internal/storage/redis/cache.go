package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	*redis.Client
}

func NewClient(redisURL string) *Client {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{
			Addr: redisURL,
		}
	}

	client := redis.NewClient(opt)

	return &Client{client}
}

// Refresh-token blacklist. Entries expire with the token itself.

func (c *Client) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	key := fmt.Sprintf("auth:revoked:%s", jti)
	return c.Set(ctx, key, 1, ttl).Err()
}

func (c *Client) IsRevoked(ctx context.Context, jti string) (bool, error) {
	key := fmt.Sprintf("auth:revoked:%s", jti)
	n, err := c.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Trickle-session liveness. A short-TTL counter per session gives the
// dashboard a live sample count without hitting Postgres per poll.

func (c *Client) BumpSessionLive(ctx context.Context, sessionID string, samples int, ttl time.Duration) error {
	key := fmt.Sprintf("trickle:live:%s", sessionID)
	pipe := c.Pipeline()
	pipe.IncrBy(ctx, key, int64(samples))
	pipe.Expire(ctx, key, ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Client) SessionLiveCount(ctx context.Context, sessionID string) (int, bool) {
	key := fmt.Sprintf("trickle:live:%s", sessionID)
	n, err := c.Get(ctx, key).Int()
	if err != nil {
		return 0, false
	}
	return n, true
}
