package redis

import (
	"context"
	"time"

	"whatsapp-ai-assistant/internal/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient narrows the go-redis surface to what the stores need. Stream
// argument/result types are passed through as-is; only this package touches
// them.
type RedisClient interface {
	Ping(ctx context.Context) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Expire(ctx context.Context, key string, expiration time.Duration) error

	RPush(ctx context.Context, key string, values ...interface{}) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)

	XAdd(ctx context.Context, a *redis.XAddArgs) (string, error)
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) error
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) ([]redis.XStream, error)
	XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) ([]redis.XMessage, string, error)
	XAck(ctx context.Context, stream, group string, ids ...string) error
	XPending(ctx context.Context, stream, group string) (*redis.XPending, error)
	XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) ([]redis.XPendingExt, error)
	XLen(ctx context.Context, stream string) (int64, error)
	XInfoStream(ctx context.Context, stream string) (*redis.XInfoStream, error)
	XInfoGroups(ctx context.Context, stream string) ([]redis.XInfoGroup, error)
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	Close() error
}

var _ RedisClient = (*redClient)(nil)

type redClient struct {
	cli *redis.Client
}

// NewClient connects and pings. The caller owns the client's lifecycle;
// construct it once in the composition root and pass it down.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redClient, error) {
	opts := &redis.Options{
		Addr:     cfg.URL,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	c := redis.NewClient(opts)
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &redClient{cli: c}, nil
}

func (c *redClient) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }

func (c *redClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.cli.Set(ctx, key, value, expiration).Err()
}

func (c *redClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return c.cli.SetNX(ctx, key, value, expiration).Result()
}

func (c *redClient) Get(ctx context.Context, key string) (string, error) {
	return c.cli.Get(ctx, key).Result()
}

func (c *redClient) Del(ctx context.Context, keys ...string) error {
	return c.cli.Del(ctx, keys...).Err()
}

func (c *redClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return c.cli.Expire(ctx, key, expiration).Err()
}

func (c *redClient) RPush(ctx context.Context, key string, values ...interface{}) error {
	return c.cli.RPush(ctx, key, values...).Err()
}

func (c *redClient) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return c.cli.LRange(ctx, key, start, stop).Result()
}

func (c *redClient) LLen(ctx context.Context, key string) (int64, error) {
	return c.cli.LLen(ctx, key).Result()
}

func (c *redClient) XAdd(ctx context.Context, a *redis.XAddArgs) (string, error) {
	return c.cli.XAdd(ctx, a).Result()
}

func (c *redClient) XGroupCreateMkStream(ctx context.Context, stream, group, start string) error {
	return c.cli.XGroupCreateMkStream(ctx, stream, group, start).Err()
}

func (c *redClient) XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) ([]redis.XStream, error) {
	return c.cli.XReadGroup(ctx, a).Result()
}

func (c *redClient) XAutoClaim(ctx context.Context, a *redis.XAutoClaimArgs) ([]redis.XMessage, string, error) {
	return c.cli.XAutoClaim(ctx, a).Result()
}

func (c *redClient) XAck(ctx context.Context, stream, group string, ids ...string) error {
	return c.cli.XAck(ctx, stream, group, ids...).Err()
}

func (c *redClient) XPending(ctx context.Context, stream, group string) (*redis.XPending, error) {
	return c.cli.XPending(ctx, stream, group).Result()
}

func (c *redClient) XPendingExt(ctx context.Context, a *redis.XPendingExtArgs) ([]redis.XPendingExt, error) {
	return c.cli.XPendingExt(ctx, a).Result()
}

func (c *redClient) XLen(ctx context.Context, stream string) (int64, error) {
	return c.cli.XLen(ctx, stream).Result()
}

func (c *redClient) XInfoStream(ctx context.Context, stream string) (*redis.XInfoStream, error) {
	return c.cli.XInfoStream(ctx, stream).Result()
}

func (c *redClient) XInfoGroups(ctx context.Context, stream string) ([]redis.XInfoGroup, error) {
	return c.cli.XInfoGroups(ctx, stream).Result()
}

func (c *redClient) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	return c.cli.Scan(ctx, cursor, match, count).Result()
}

func (c *redClient) Close() error { return c.cli.Close() }
