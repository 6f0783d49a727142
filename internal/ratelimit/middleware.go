package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
)

// IPRateLimitMiddleware applies the per-IP assessment limit
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return rl.middleware("ip", "", rl.config.IPLimitPerMin)
}

// EndpointRateLimitMiddleware applies a separate per-IP budget for one
// expensive endpoint, on top of the IP limit.
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limit int) gin.HandlerFunc {
	return rl.middleware(endpoint, "Endpoint-", limit)
}

// ReportRateLimitMiddleware limits PDF renders per IP
func (rl *RateLimiter) ReportRateLimitMiddleware() gin.HandlerFunc {
	return rl.EndpointRateLimitMiddleware("report", rl.config.ReportLimitPerMin)
}

func (rl *RateLimiter) middleware(scope, headerInfix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		key := keyFor(scope, ip)

		result, err := rl.Allow(c.Request.Context(), key, limit, time.Minute)
		if err != nil {
			// A broken limiter never blocks screening.
			slog.Error("Rate limit check failed", "scope", scope, "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-"+headerInfix+"Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-"+headerInfix+"Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-"+headerInfix+"Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitBlock(result.Backend)
			}

			retry := retryAfterSeconds(result.RetryAfter)
			c.Header("Retry-After", strconv.Itoa(retry))

			appErr := apperrors.NewRateLimitError(strconv.Itoa(retry) + "s")
			appErr.RequestID = c.GetString("request_id")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, appErr.Response())
			return
		}

		c.Next()
	}
}

// HandleRateLimitStatus reports the caller's remaining budgets without
// spending any of them
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		budgets := gin.H{}
		for _, b := range []struct {
			name  string
			scope string
			limit int
		}{
			{"assessments", "ip", rl.config.IPLimitPerMin},
			{"reports", "report", rl.config.ReportLimitPerMin},
		} {
			res, err := rl.Peek(c.Request.Context(), keyFor(b.scope, ip), b.limit, time.Minute)
			if err != nil {
				_ = c.Error(err)
				return
			}
			budgets[b.name] = gin.H{
				"limit_per_minute": res.Limit,
				"remaining":        res.Remaining,
				"reset_at":         res.ResetAt.UTC().Format(time.RFC3339),
				"backend":          res.Backend,
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"ip":            ip,
			"budgets":       budgets,
			"redis_enabled": rl.redisClient.IsEnabled(),
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func retryAfterSeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}
