package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/game-store-project/game-store/config"
	"github.com/game-store-project/game-store/models"
	"github.com/game-store-project/game-store/monitoring"
	"github.com/game-store-project/game-store/ranking"
	"github.com/game-store-project/game-store/utils"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key is absent or Redis is not configured.
var ErrMiss = errors.New("cache miss")

// Cache wraps a Redis client. A nil *Cache is valid and behaves as an
// always-empty cache, so callers never need to check whether Redis is set up.
type Cache struct {
	client  *redis.Client
	feedTTL time.Duration
}

// ==================== CACHE KEYS ====================

const (
	FeedCachePrefix = "feeds:"     // feeds:new-releases:6:zelda
	GenresCacheKey  = "genres:all" // every genre
	RateLimitPrefix = "ratelimit:" // ratelimit:signin:10.0.0.1

	genresTTL = time.Hour
)

// New connects to Redis and checks the connection.
func New(cfg config.RedisConfig, feedTTL time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Cache{client: client, feedTTL: feedTTL}, nil
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

func (c *Cache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}

// Ping reports whether Redis answers. A disabled cache is never an error.
func (c *Cache) Ping(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// ==================== GENERIC CACHE OPERATIONS ====================

// Set stores value as JSON.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Get loads the JSON value under key into dest.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if !c.enabled() {
		return ErrMiss
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to get value: %w", err)
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.enabled() {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

// DeletePattern removes all keys matching pattern.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	if !c.enabled() {
		return nil
	}
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// ==================== FEED CACHING ====================

// FeedKey identifies a cached feed. The search term is case-folded since
// title filters are case-insensitive.
func FeedKey(feed string, opts ranking.Options) string {
	search := strings.ToLower(strings.TrimSpace(opts.Search))
	return fmt.Sprintf("%s%s:%d:%s", FeedCachePrefix, feed, opts.Max, search)
}

func (c *Cache) GetFeed(ctx context.Context, feed string, opts ranking.Options) ([]models.Game, bool) {
	var games []models.Game
	err := c.Get(ctx, FeedKey(feed, opts), &games)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			utils.Log.WithError(err).WithField("feed", feed).Warn("Feed cache read failed")
		}
		monitoring.FeedCacheRequests.WithLabelValues(feed, "miss").Inc()
		return nil, false
	}
	monitoring.FeedCacheRequests.WithLabelValues(feed, "hit").Inc()
	return games, true
}

func (c *Cache) SetFeed(ctx context.Context, feed string, opts ranking.Options, games []models.Game) {
	if !c.enabled() || c.feedTTL <= 0 {
		return
	}
	if err := c.Set(ctx, FeedKey(feed, opts), games, c.feedTTL); err != nil {
		utils.Log.WithError(err).WithField("feed", feed).Warn("Feed cache write failed")
	}
}

func (c *Cache) InvalidateFeeds(ctx context.Context) {
	if err := c.DeletePattern(ctx, FeedCachePrefix+"*"); err != nil {
		utils.Log.WithError(err).Warn("Feed cache invalidation failed")
	}
}

// ==================== GENRE CACHING ====================

func (c *Cache) GetGenres(ctx context.Context) ([]models.Genre, bool) {
	var genres []models.Genre
	if err := c.Get(ctx, GenresCacheKey, &genres); err != nil {
		return nil, false
	}
	return genres, true
}

func (c *Cache) SetGenres(ctx context.Context, genres []models.Genre) {
	if err := c.Set(ctx, GenresCacheKey, genres, genresTTL); err != nil {
		utils.Log.WithError(err).Warn("Genre cache write failed")
	}
}

func (c *Cache) InvalidateGenres(ctx context.Context) {
	if err := c.Delete(ctx, GenresCacheKey); err != nil {
		utils.Log.WithError(err).Warn("Genre cache invalidation failed")
	}
}

// ==================== RATE LIMITING ====================

// RateLimitResult is the outcome of one Allow call.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Allow counts one request against key in a fixed window. Without Redis every
// request is allowed.
func (c *Cache) Allow(ctx context.Context, key string, max int, window time.Duration) (RateLimitResult, error) {
	if !c.enabled() {
		return RateLimitResult{Allowed: true, Remaining: max}, nil
	}

	key = RateLimitPrefix + key
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return RateLimitResult{}, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return RateLimitResult{}, err
		}
	}

	if int(count) > max {
		ttl, err := c.client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = window
		}
		return RateLimitResult{Allowed: false, RetryAfter: ttl}, nil
	}
	return RateLimitResult{Allowed: true, Remaining: max - int(count)}, nil
}
