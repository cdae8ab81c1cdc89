package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CacheConfig configures the Redis read-through layer.
type CacheConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	PriceTTLSecs   int    `yaml:"price_ttl_secs"`   // default 86400, daily closes are immutable
	HistoryTTLSecs int    `yaml:"history_ttl_secs"` // default 3600
}

// GetPriceTTL returns the price entry TTL as a time.Duration.
func (c CacheConfig) GetPriceTTL() time.Duration {
	return time.Duration(c.PriceTTLSecs) * time.Second
}

// GetHistoryTTL returns the history entry TTL as a time.Duration.
func (c CacheConfig) GetHistoryTTL() time.Duration {
	return time.Duration(c.HistoryTTLSecs) * time.Second
}

// DefaultCacheConfig returns local-Redis cache settings.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Addr:           "localhost:6379",
		PriceTTLSecs:   86400,
		HistoryTTLSecs: 3600,
	}
}

// Source is the vendor surface the cache wraps.
type Source interface {
	PriceAt(ctx context.Context, instrument string, date time.Time) (float64, error)
	BenchmarkCloses(ctx context.Context, asOf time.Time, days int) ([]float64, error)
	BenchmarkReturn(ctx context.Context, from, to time.Time) (float64, error)
}

// CachedSource is a read-through Redis cache in front of the vendor
// client. Cache failures degrade to direct vendor calls; they never
// fail a lookup.
type CachedSource struct {
	source Source
	rdb    *redis.Client
	config CacheConfig
}

// NewCachedSource wraps source with a Redis cache.
func NewCachedSource(source Source, config CacheConfig) *CachedSource {
	if config.PriceTTLSecs <= 0 {
		config.PriceTTLSecs = 86400
	}
	if config.HistoryTTLSecs <= 0 {
		config.HistoryTTLSecs = 3600
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return &CachedSource{source: source, rdb: rdb, config: config}
}

// Close releases the Redis connection.
func (c *CachedSource) Close() error {
	return c.rdb.Close()
}

func (c *CachedSource) PriceAt(ctx context.Context, instrument string, date time.Time) (float64, error) {
	key := fmt.Sprintf("md:price:%s:%s", instrument, date.Format("2006-01-02"))

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var price float64
		if json.Unmarshal([]byte(raw), &price) == nil {
			return price, nil
		}
	} else if err != redis.Nil {
		log.Debug().Err(err).Str("key", key).Msg("price cache read failed")
	}

	price, err := c.source.PriceAt(ctx, instrument, date)
	if err != nil {
		return 0, err
	}
	c.set(ctx, key, price, c.config.GetPriceTTL())
	return price, nil
}

func (c *CachedSource) BenchmarkCloses(ctx context.Context, asOf time.Time, days int) ([]float64, error) {
	key := fmt.Sprintf("md:hist:%s:%d", asOf.Format("2006-01-02"), days)

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var closes []float64
		if json.Unmarshal([]byte(raw), &closes) == nil {
			return closes, nil
		}
	} else if err != redis.Nil {
		log.Debug().Err(err).Str("key", key).Msg("history cache read failed")
	}

	closes, err := c.source.BenchmarkCloses(ctx, asOf, days)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, closes, c.config.GetHistoryTTL())
	return closes, nil
}

func (c *CachedSource) BenchmarkReturn(ctx context.Context, from, to time.Time) (float64, error) {
	return c.source.BenchmarkReturn(ctx, from, to)
}

func (c *CachedSource) set(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}
