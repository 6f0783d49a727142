package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/monitoring"
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin     int           // assessment requests per IP per minute
	ReportLimitPerMin int           // PDF renders per IP per minute
	CleanupInterval   time.Duration // how often idle fallback buckets are dropped
	IdleTTL           time.Duration // fallback buckets unused this long are dropped
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:     30,
		ReportLimitPerMin: 10,
		CleanupInterval:   10 * time.Minute,
		IdleTTL:           30 * time.Minute,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
	Backend    string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits by key through Redis when it is reachable and an
// in-process token bucket otherwise.
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	redisClient  *RedisClient
	config       Config
	metrics      *monitoring.Metrics

	mu      sync.Mutex
	buckets map[string]*bucket
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter creates a new rate limiter. redisClient may be nil.
func NewRateLimiter(redisClient *RedisClient, config Config, metrics *monitoring.Metrics) *RateLimiter {
	defaults := DefaultConfig()
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = defaults.IdleTTL
	}
	if redisClient == nil {
		redisClient = &RedisClient{}
	}

	rl := &RateLimiter{
		redisClient: redisClient,
		config:      config,
		metrics:     metrics,
		buckets:     make(map[string]*bucket),
		stop:        make(chan struct{}),
	}

	if redisClient.IsEnabled() {
		rl.redisLimiter = redis_rate.NewLimiter(redisClient.GetClient())
		slog.Info("Redis rate limiter initialized")
	} else {
		slog.Warn("Redis unavailable, using in-memory rate limiting only")
	}

	go rl.cleanupLoop()
	return rl
}

// Close stops the background cleanup
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// AllowIP applies the per-minute assessment limit to ip
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.Allow(ctx, keyFor("ip", ip), rl.config.IPLimitPerMin, time.Minute)
}

func keyFor(scope, ip string) string { return "ratelimit:" + scope + ":" + ip }

// Allow consumes one request from key's budget of limit per period
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	return rl.take(ctx, key, limit, period, 1)
}

// Peek reports key's remaining budget without consuming any of it
func (rl *RateLimiter) Peek(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	return rl.take(ctx, key, limit, period, 0)
}

func (rl *RateLimiter) take(ctx context.Context, key string, limit int, period time.Duration, n int) (*Result, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("rate limit for %s must be positive, got %d", key, limit)
	}

	if rl.redisLimiter != nil {
		result, err := rl.allowRedis(ctx, key, limit, period, n)
		if err == nil {
			return result, nil
		}
		slog.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
	}
	return rl.allowFallback(key, limit, period, n), nil
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string, limit int, period time.Duration, n int) (*Result, error) {
	res, err := rl.redisLimiter.AllowN(ctx, key, redis_rate.Limit{
		Rate:   limit,
		Burst:  limit,
		Period: period,
	}, n)
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    n == 0 || res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
		Backend:    "redis",
	}, nil
}

// allowFallback uses a token bucket refilled at limit/period with a burst
// of limit. A peek (n == 0) never creates a bucket.
func (rl *RateLimiter) allowFallback(key string, limit int, period time.Duration, n int) *Result {
	now := time.Now()
	every := period / time.Duration(limit)

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok && n == 0 {
		rl.mu.Unlock()
		return &Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: now, Backend: "memory"}
	}
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), limit)}
		rl.buckets[key] = b
	}
	if n > 0 {
		b.lastSeen = now
	}
	rl.mu.Unlock()

	res := &Result{
		Allowed: b.limiter.AllowN(now, n),
		Limit:   limit,
		Backend: "memory",
	}

	tokens := b.limiter.TokensAt(now)
	if tokens > 0 {
		res.Remaining = int(tokens)
	}
	// Time until the bucket is full again.
	res.ResetAt = now.Add(time.Duration((float64(limit) - tokens) * float64(every)))
	if !res.Allowed {
		res.RetryAfter = time.Duration((1 - tokens) * float64(every))
	}
	return res
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.cleanup(now)
		}
	}
}

func (rl *RateLimiter) cleanup(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.config.IdleTTL {
			delete(rl.buckets, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Dropped idle fallback rate limiters", "count", removed)
	}
	return removed
}

// HealthCheck reports whether Redis still answers. Memory-only limiting is
// healthy by definition.
func (rl *RateLimiter) HealthCheck(ctx context.Context) error {
	if !rl.redisClient.IsEnabled() {
		return nil
	}
	return rl.redisClient.HealthCheck(ctx)
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.mu.Lock()
	fallbackCount := len(rl.buckets)
	rl.mu.Unlock()

	return map[string]interface{}{
		"redis_enabled":     rl.redisClient.IsEnabled(),
		"fallback_limiters": fallbackCount,
		"ip_per_minute":     rl.config.IPLimitPerMin,
		"report_per_minute": rl.config.ReportLimitPerMin,
		"redis_pool":        rl.redisClient.GetPoolStats(),
	}
}
