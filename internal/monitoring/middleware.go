package monitoring

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader carries the per-request correlation id
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an id, reusing a sane incoming header
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// MonitoringMiddleware creates Gin middleware for request monitoring
func MonitoringMiddleware(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ip := c.ClientIP()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		// Unmatched paths share one label so scanners cannot blow up cardinality.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordRequest(route, method, statusCode, duration)

		logger.RequestLogger(method, path, ip, c.GetString("request_id"), statusCode, duration)

		for _, err := range c.Errors {
			logger.APIErrorLogger(err.Err, method, path, ip, statusCode)
		}

		if duration > 5*time.Second {
			logger.Warn("Slow Request", "path", path, "duration_ms", duration.Milliseconds())
		}
	}
}

// SecurityMonitoringMiddleware logs requests that look like probing
func SecurityMonitoringMiddleware(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userAgent := c.GetHeader("User-Agent")
		details := make(map[string]interface{})

		if containsSQLInjectionPatterns(c.Request.URL.RawQuery) {
			details["type"] = "potential_sql_injection"
			details["query"] = c.Request.URL.RawQuery
		}

		if containsSuspiciousUserAgent(userAgent) {
			details["type"] = "suspicious_user_agent"
		}

		if len(details) > 0 {
			logger.SecurityLogger("suspicious_activity_detected", c.ClientIP(), userAgent, details)
		}

		c.Next()
	}
}

var sqlInjectionPatterns = []string{
	"union select",
	"union all",
	"select * from",
	"drop table",
	"delete from",
	"';--",
	"/*",
	"*/",
	" xp_",
	" sp_",
}

var suspiciousAgents = []string{
	"sqlmap",
	"nmap",
	"masscan",
	"zmap",
	"dirbuster",
	"gobuster",
	"nikto",
	"acunetix",
	"openvas",
	"nessus",
}

func containsSQLInjectionPatterns(query string) bool {
	return containsAny(strings.ToLower(query), sqlInjectionPatterns)
}

func containsSuspiciousUserAgent(userAgent string) bool {
	return containsAny(strings.ToLower(userAgent), suspiciousAgents)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// HealthComponent adds a named section to the health body. Check is
// optional; a failing check is reported but only the model readiness check
// degrades the service.
type HealthComponent struct {
	Name  string
	Stats func() map[string]interface{}
	Check func(ctx context.Context) error
}

// HealthCheck reports liveness plus request stats. ready is optional and
// reports whether the image model can serve.
func HealthCheck(metrics *Metrics, version string, ready func(*gin.Context) error, components ...HealthComponent) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   version,
			"metrics":   metrics.GetStats(),
		}
		if ready != nil {
			if err := ready(c); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["model"] = err.Error()
			} else {
				body["model"] = "available"
			}
		}

		for _, comp := range components {
			section := gin.H{}
			if comp.Stats != nil {
				for k, v := range comp.Stats() {
					section[k] = v
				}
			}
			if comp.Check != nil {
				if err := comp.Check(c.Request.Context()); err != nil {
					section["healthy"] = false
					section["error"] = err.Error()
				} else {
					section["healthy"] = true
				}
			}
			body[comp.Name] = section
		}
		c.JSON(status, body)
	}
}
