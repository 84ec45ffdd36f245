// Package redis provides an optional candle-series cache so repeated
// evaluation passes within one cache window do not re-hit the broker.
// Redis being down is a cache miss, never an evaluation failure.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"tradingalerts/internal/model"
)

const defaultSeriesTTL = 4 * time.Minute

// CacheConfig configures the series cache.
type CacheConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	TTL      time.Duration // default 4m, under the shortest check interval
}

// Cache memoizes fetched candle series keyed by instrument+timeframe+range.
type Cache struct {
	client *goredis.Client
	ttl    time.Duration
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// NewCache connects to Redis and pings the server.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultSeriesTTL
	}
	log.Printf("[redis] series cache connected to %s (ttl %s)", cfg.Addr, ttl)
	return &Cache{client: client, ttl: ttl}, nil
}

// GetSeries returns the cached series for key, or ok=false on miss/error.
func (c *Cache) GetSeries(ctx context.Context, key string) (*model.Series, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Printf("[redis] get %s: %v", key, err)
		}
		return nil, false
	}
	var s model.Series
	if err := json.Unmarshal(raw, &s); err != nil {
		log.Printf("[redis] corrupt cached series at %s: %v", key, err)
		return nil, false
	}
	return &s, true
}

// PutSeries caches a series with the configured TTL. Synthetic series are
// never cached; degraded-mode data must not mask the broker coming back.
func (c *Cache) PutSeries(ctx context.Context, key string, s *model.Series) {
	if s == nil || s.Synthetic() {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		log.Printf("[redis] marshal series %s: %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("[redis] set %s: %v", key, err)
	}
}

// Close releases the connection.
func (c *Cache) Close() error { return c.client.Close() }
