package resilience

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ServerError is returned for 5xx responses so the breaker counts them.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// PoolConfig tunes the shared transport.
type PoolConfig struct {
	MaxIdle     int
	MaxActive   int
	IdleTimeout time.Duration
	// Timeout bounds a whole request including reading the body.
	Timeout time.Duration
}

// DefaultPoolConfig is sized for a single model server.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxIdle:     10,
		MaxActive:   20,
		IdleTimeout: 90 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// ConnectionPool is an HTTP client on a tuned, shared transport with
// circuit breaker protection.
type ConnectionPool struct {
	client         *http.Client
	transport      *http.Transport
	circuitBreaker *CircuitBreaker
}

// NewConnectionPool creates a pool. cb may be nil to disable the breaker.
func NewConnectionPool(cfg PoolConfig, cb *CircuitBreaker) *ConnectionPool {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          cfg.MaxIdle,
		MaxConnsPerHost:       cfg.MaxActive,
		MaxIdleConnsPerHost:   cfg.MaxIdle,
		IdleConnTimeout:       cfg.IdleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		client:         &http.Client{Transport: transport, Timeout: cfg.Timeout},
		transport:      transport,
		circuitBreaker: cb,
	}
}

// Breaker returns the pool's circuit breaker, which may be nil.
func (cp *ConnectionPool) Breaker() *CircuitBreaker { return cp.circuitBreaker }

// DoRequest executes an HTTP request. Transport errors and 5xx responses
// count as breaker failures; on a 5xx the body is drained and a *ServerError
// is returned. The caller closes the body of a returned response.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	var resp *http.Response

	call := func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		r, err := cp.client.Do(req)
		duration := time.Since(start)
		if err != nil {
			slog.Warn("Request failed", "url", url, "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		if r.StatusCode >= 500 {
			msg, _ := io.ReadAll(io.LimitReader(r.Body, 512))
			r.Body.Close()
			slog.Warn("Upstream server error", "url", url, "status", r.StatusCode, "duration_ms", duration.Milliseconds())
			return &ServerError{StatusCode: r.StatusCode, Body: string(msg)}
		}

		slog.Debug("Request completed", "url", url, "status", r.StatusCode, "duration_ms", duration.Milliseconds())
		resp = r
		return nil
	}

	var err error
	if cp.circuitBreaker != nil {
		err = cp.circuitBreaker.Call(call)
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// GetStats returns pool statistics for the health endpoint
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"max_idle":        cp.transport.MaxIdleConns,
		"max_active":      cp.transport.MaxConnsPerHost,
		"idle_timeout_ms": cp.transport.IdleConnTimeout.Milliseconds(),
	}
	if cp.circuitBreaker != nil {
		stats["circuit_breaker_state"] = cp.circuitBreaker.State().String()
		stats["circuit_breaker_failures"] = cp.circuitBreaker.Failures()
	}
	return stats
}

// Close releases idle connections
func (cp *ConnectionPool) Close() error {
	cp.transport.CloseIdleConnections()
	slog.Info("Connection pool closed")
	return nil
}
