package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/adapters/store"
	"github.com/mikey/link-joiner/internal/cache"
	"github.com/mikey/link-joiner/internal/config"
	"github.com/mikey/link-joiner/internal/core"
)

// Cache names. They select the JSON file and the namespace in shared stores.
const (
	MessagesCache = "messages"
	LinksCache    = "links"
)

// CacheFactory creates the dedup caches and the stores behind them
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger

	mu      sync.Mutex
	closers []io.Closer
	redis   *redis.Client
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates the persistent store for the named cache
func (f *CacheFactory) CreateStore(ctx context.Context, name string) (core.CacheStore, error) {
	cc := f.cfg.GetCache()

	switch cc.Type {
	case "memory":
		return store.NewMemoryStore(), nil
	case "json", "":
		path, layout := cc.Path, store.LayoutPairs
		if name == LinksCache {
			path, layout = cc.LinksPath, store.LayoutKeys
		}
		s, err := store.NewJSONStore(path, layout, f.logger)
		if err != nil {
			return nil, err
		}
		f.track(s)
		return s, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cc.SQLitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		s, err := store.NewSQLiteStore(cc.SQLitePath, name, f.logger)
		if err != nil {
			return nil, err
		}
		f.track(s)
		return s, nil
	case "mysql":
		s, err := store.NewMySQLStore(cc.MySQLDSN, name, f.logger)
		if err != nil {
			return nil, err
		}
		f.track(s)
		return s, nil
	case "redis":
		rdb, err := f.redisClient(ctx, cc)
		if err != nil {
			return nil, err
		}
		return store.NewRedisStore(rdb, cc.RedisPrefix, name), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cc.Type)
	}
}

func (f *CacheFactory) redisClient(ctx context.Context, cc config.CacheConfig) (*redis.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.redis != nil {
		return f.redis, nil
	}
	rdb, err := store.NewRedisClient(ctx, cc.RedisAddr, cc.RedisPassword, cc.RedisDB)
	if err != nil {
		return nil, err
	}
	f.redis = rdb
	f.closers = append(f.closers, rdb)
	return rdb, nil
}

func (f *CacheFactory) track(c io.Closer) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closers = append(f.closers, c)
}

// CreateMessageCache creates the bounded message cache
func (f *CacheFactory) CreateMessageCache(ctx context.Context) (*cache.ContentCache, error) {
	s, err := f.CreateStore(ctx, MessagesCache)
	if err != nil {
		return nil, fmt.Errorf("failed to open message cache store: %w", err)
	}
	cc := f.cfg.GetCache()
	return cache.NewMessageCache(ctx, s, cc.MaxSize, cc.SaveInterval, f.logger), nil
}

// CreateLinkCache creates the link cache, or returns nil when it is disabled
func (f *CacheFactory) CreateLinkCache(ctx context.Context) (*cache.ContentCache, error) {
	cc := f.cfg.GetCache()
	if !cc.LinksEnabled {
		return nil, nil
	}
	s, err := f.CreateStore(ctx, LinksCache)
	if err != nil {
		return nil, fmt.Errorf("failed to open link cache store: %w", err)
	}
	return cache.NewLinkCache(ctx, s, cc.SaveInterval, f.logger), nil
}

// Close releases every store the factory opened
func (f *CacheFactory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var errs []error
	for i := len(f.closers) - 1; i >= 0; i-- {
		errs = append(errs, f.closers[i].Close())
	}
	f.closers = nil
	f.redis = nil
	return errors.Join(errs...)
}
