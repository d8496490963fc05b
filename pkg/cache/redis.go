package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/config"
)

const (
	opTimeout   = 2 * time.Second
	pingTimeout = 5 * time.Second
)

// Options translates RedisConfig into client options. REDIS_URL wins over the
// host/port fields; a pool size from config overrides the URL's.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	// Cache reads sit on the request path; a slow Redis should look like a miss.
	opts.ReadTimeout = opTimeout
	opts.WriteTimeout = opTimeout
	return opts, nil
}

// NewRedis returns a connected client for the summary and catalog cache.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}
