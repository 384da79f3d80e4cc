package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/collector"
	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/model"
)

// Open builds the store selected by cfg.Backend.
func Open(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "file":
		return NewFileStore(cfg.Dir)
	case "redis":
		return NewRedisStore(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// FeedKey is the cache key of one feed series.
func FeedKey(instrumentID int64, period model.PeriodID) string {
	return Key(PrefixFeed, map[string]string{
		"id":      strconv.FormatInt(instrumentID, 10),
		"periodo": strconv.Itoa(int(period)),
	})
}

// QuotasKey is the cache key of one quota window. The window dates are part
// of the key so a new day never reuses yesterday's window.
func QuotasKey(instrumentID int64, period model.PeriodID, window model.Window) string {
	return Key(PrefixQuotas, map[string]string{
		"financial_instrument_id": strconv.FormatInt(instrumentID, 10),
		"periodo":                 strconv.Itoa(int(period)),
		"start_date":              window.Start.Format(model.DateLayout),
		"end_date":                window.End.Format(model.DateLayout),
	})
}

// CachedFeed wraps a FeedFetcher with a read-through cache.
type CachedFeed struct {
	Inner  collector.FeedFetcher
	Store  Store
	TTL    time.Duration
	Logger *zap.Logger
}

func (c *CachedFeed) Name() string { return c.Inner.Name() + "+cache" }

func (c *CachedFeed) FetchReturns(ctx context.Context, instrumentID int64, period model.PeriodID) ([]model.FeedRecord, error) {
	key := FeedKey(instrumentID, period)
	var records []model.FeedRecord
	if lookup(ctx, c.Store, key, &records, c.Logger) {
		return records, nil
	}

	records, err := c.Inner.FetchReturns(ctx, instrumentID, period)
	if err != nil {
		return nil, err
	}
	store(ctx, c.Store, key, records, c.TTL, c.Logger)
	return records, nil
}

// CachedQuotas wraps a QuotaSource with a read-through cache.
type CachedQuotas struct {
	Inner  collector.QuotaSource
	Store  Store
	TTL    time.Duration
	Logger *zap.Logger
}

func (c *CachedQuotas) FundValues(ctx context.Context, instrumentID int64, period model.PeriodID, window model.Window) ([]model.QuotaObservation, error) {
	key := QuotasKey(instrumentID, period, window)
	var obs []model.QuotaObservation
	if lookup(ctx, c.Store, key, &obs, c.Logger) {
		return obs, nil
	}

	obs, err := c.Inner.FundValues(ctx, instrumentID, period, window)
	if err != nil {
		return nil, err
	}
	store(ctx, c.Store, key, obs, c.TTL, c.Logger)
	return obs, nil
}

// lookup decodes a hit into dst. Any cache failure counts as a miss.
func lookup(ctx context.Context, s Store, key string, dst any, logger *zap.Logger) bool {
	b, found, err := s.Get(ctx, key)
	if err != nil {
		logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		logger.Warn("cache entry unreadable", zap.String("key", key), zap.Error(err))
		return false
	}
	logger.Debug("cache hit", zap.String("key", key))
	return true
}

func store(ctx context.Context, s Store, key string, v any, ttl time.Duration, logger *zap.Logger) {
	b, err := json.Marshal(v)
	if err != nil {
		logger.Warn("cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.Set(ctx, key, b, ttl); err != nil {
		logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}
