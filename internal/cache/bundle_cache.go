package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/demandforge/invforecast/internal/config"
	"github.com/demandforge/invforecast/internal/domain"
)

// BundleCache memoizes a ForecastBundle by a key derived from the input
// dataset and the run's configuration, so repeated requests for the same
// combination skip the dispatcher entirely.
type BundleCache interface {
	Get(ctx context.Context, key string) (domain.ForecastBundle, bool, error)
	Set(ctx context.Context, key string, bundle domain.ForecastBundle) error
	Invalidate(ctx context.Context, prefix string) error
}

// Key derives a cache key from a dataset fingerprint and the run
// parameters that affect its output (horizon, granularity), so a changed
// config never serves a stale bundle.
func Key(datasetFingerprint string, horizonDays int, granularity domain.Granularity) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%s", datasetFingerprint, horizonDays, granularity)))
	return "bundle:" + hex.EncodeToString(sum[:])
}

// NewBundleCache builds a redis-backed BundleCache, or a no-op cache if
// caching is disabled via CacheConfig.Enabled.
func NewBundleCache(cfg config.CacheConfig) (BundleCache, error) {
	if !cfg.Enabled {
		return NewNoopBundleCache(), nil
	}
	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisBundleCache{client: client, ttl: ttl}, nil
}

type redisBundleCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (c *redisBundleCache) Get(ctx context.Context, key string) (domain.ForecastBundle, bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return domain.ForecastBundle{}, false, nil
	}
	if err != nil {
		return domain.ForecastBundle{}, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	var bundle domain.ForecastBundle
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&bundle); err != nil {
		return domain.ForecastBundle{}, false, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return bundle, true, nil
}

func (c *redisBundleCache) Set(ctx context.Context, key string, bundle domain.ForecastBundle) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(bundle); err != nil {
		return fmt.Errorf("cache: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, buf.Bytes(), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func (c *redisBundleCache) Invalidate(ctx context.Context, prefix string) error {
	return deleteKeysWithPrefix(ctx, c.client, prefix, 100)
}

// NewNoopBundleCache returns a BundleCache that always misses, used when
// caching is disabled or the redis connection fails at startup.
func NewNoopBundleCache() BundleCache { return noopBundleCache{} }

type noopBundleCache struct{}

func (noopBundleCache) Get(context.Context, string) (domain.ForecastBundle, bool, error) {
	return domain.ForecastBundle{}, false, nil
}
func (noopBundleCache) Set(context.Context, string, domain.ForecastBundle) error { return nil }
func (noopBundleCache) Invalidate(context.Context, string) error                 { return nil }
