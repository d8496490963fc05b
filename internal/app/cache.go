package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/repository"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/internal/service"
	pkgcache "github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/cache"
	"github.com/LEXHUTCHZZ/ISMIS0.2-sub000/pkg/config"
)

// Cache is the Redis read cache, disabled when CACHE_ENABLED is false or Redis
// cannot be reached.
type Cache struct {
	Service *service.CacheService
	// Ping is nil when caching is disabled.
	Ping  func(ctx context.Context) error
	Close func() error
}

// OpenCache connects to Redis when caching is enabled. An unreachable Redis
// degrades to an uncached service instead of failing startup.
func OpenCache(cfg *config.Config, metrics *service.MetricsService, logger *zap.Logger) *Cache {
	disabled := &Cache{
		Service: service.NewCacheService(nil, metrics, cfg.Cache.TTL, logger, false),
		Close:   func() error { return nil },
	}
	if !cfg.Cache.Enabled {
		return disabled
	}
	client, err := pkgcache.NewRedis(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable; caching disabled", zap.Error(err))
		return disabled
	}
	repo := repository.NewCacheRepository(client, logger)
	return &Cache{
		Service: service.NewCacheService(repo, metrics, cfg.Cache.TTL, logger, true),
		Ping:    repo.Ping,
		Close:   repo.Close,
	}
}
