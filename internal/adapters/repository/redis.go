package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// RedisKV stores values as plain redis strings without expiry.
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKV connects to the instance at url and pings it.
func NewRedisKV(ctx context.Context, url, prefix string) (*RedisKV, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, eris.Wrap(err, "redis: ping")
	}
	return &RedisKV{rdb: rdb, prefix: prefix}, nil
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.rdb.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrapf(err, "redis: get %s", key)
	}
	return v, true, nil
}

func (r *RedisKV) Put(ctx context.Context, key, value string) error {
	if err := r.rdb.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return eris.Wrapf(err, "redis: set %s", key)
	}
	return nil
}

func (r *RedisKV) Close() error {
	return r.rdb.Close()
}
