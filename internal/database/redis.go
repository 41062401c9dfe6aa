package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis connects the mood-type cache and the shared auth rate limiter.
// Both degrade gracefully, so timeouts are kept short.
func ConnectRedis(ctx context.Context, redisURI string, log logrus.FieldLogger) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, err
	}
	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 1
	opt.DialTimeout = 2 * time.Second
	opt.ReadTimeout = time.Second
	opt.WriteTimeout = time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := pingWithin(ctx, ping); err != nil {
		_ = client.Close()
		return nil, err
	}
	log.WithField("db", opt.DB).Info("connected to Redis")
	return client, nil
}
