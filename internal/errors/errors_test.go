package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		status   int
	}{
		{
			name:     "input error maps to validation",
			err:      &analysis.InputError{Problems: map[string]string{"q3": "missing response"}},
			category: CategoryValidation,
			status:   http.StatusBadRequest,
		},
		{
			name:     "wrapped range error maps to range",
			err:      fmt.Errorf("combine: %w", &analysis.RangeError{Field: "image_prob", Value: 1.2}),
			category: CategoryRange,
			status:   http.StatusUnprocessableEntity,
		},
		{
			name:     "invalid scoring config maps to configuration",
			err:      fmt.Errorf("%w: weights", analysis.ErrInvalidConfig),
			category: CategoryConfiguration,
			status:   http.StatusInternalServerError,
		},
		{
			name:     "undecodable image",
			err:      NewAdapterError(AdapterUndecodable, "bad image", nil),
			category: CategoryAdapter,
			status:   http.StatusUnprocessableEntity,
		},
		{
			name:     "model unavailable wrapped",
			err:      fmt.Errorf("classify: %w", NewAdapterError(AdapterUnavailable, "down", nil)),
			category: CategoryAdapter,
			status:   http.StatusServiceUnavailable,
		},
		{
			name:     "upload too large",
			err:      fmt.Errorf("multipart: %w", &http.MaxBytesError{Limit: 10}),
			category: CategoryValidation,
			status:   http.StatusRequestEntityTooLarge,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			category: CategoryTimeout,
			status:   http.StatusGatewayTimeout,
		},
		{
			name:     "connection refused",
			err:      errors.New("dial tcp: connection refused"),
			category: CategoryNetwork,
			status:   http.StatusBadGateway,
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			category: CategoryInternal,
			status:   http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := ToAppError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.category, appErr.Category)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
		})
	}

	assert.Nil(t, ToAppError(nil))
}

func TestInputErrorDetails(t *testing.T) {
	appErr := ToAppError(&analysis.InputError{Problems: map[string]string{
		"q3":  "missing response",
		"q11": "unknown questionnaire item",
	}})

	assert.Equal(t, "[INPUT_ERROR] Invalid questionnaire input", appErr.Error())
	assert.Len(t, appErr.Fields, 2)
	assert.Equal(t, "missing response", appErr.Response().Fields["q3"])
}

func TestAdapterError(t *testing.T) {
	cause := errors.New("503 from serving")
	err := NewAdapterError(AdapterUnavailable, "model unavailable", cause)

	assert.True(t, errors.Is(err, ErrAdapter))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, AdapterUnavailable, err.Kind)
	assert.Equal(t, "[ADAPTER_ERROR] model unavailable", err.Error())
	assert.False(t, errors.Is(NewNetworkError("x", nil), ErrAdapter))
}

func TestRangeErrorKeepsCause(t *testing.T) {
	appErr := ToAppError(&analysis.RangeError{Field: "combined_prob", Value: -1})
	assert.ErrorIs(t, appErr, analysis.ErrOutOfRange)
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"network", NewNetworkError("down", nil), true},
		{"timeout", NewTimeoutError("slow", nil), true},
		{"rate limit", NewRateLimitError("1s"), true},
		{"model unavailable", NewAdapterError(AdapterUnavailable, "down", nil), true},
		{"bad image", NewAdapterError(AdapterUndecodable, "bad", nil), false},
		{"inference", NewAdapterError(AdapterInference, "garbage", nil), false},
		{"input", NewValidationError("bad"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryableError(tt.err))
		})
	}
}

func TestErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/fail", func(c *gin.Context) {
		_ = c.Error(&analysis.InputError{Problems: map[string]string{"q1": "missing response"}})
	})
	router.GET("/panic", RecoveryHandler(), func(c *gin.Context) {
		panic("kaboom")
	})
	router.GET("/unavailable", func(c *gin.Context) {
		_ = c.Error(NewAdapterError(AdapterUnavailable, "image model unavailable", nil))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"validation"`)
	assert.Empty(t, w.Header().Get("Retry-After"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unavailable", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"internal"`)
}

func TestGetRetryDelay(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempt  int
		expected time.Duration
	}{
		{"rate limit grows quadratically", NewRateLimitError("1s"), 2, 4 * time.Second},
		{"network backs off exponentially", NewNetworkError("down", nil), 2, 800 * time.Millisecond},
		{"adapter grows with attempts", NewAdapterError(AdapterUnavailable, "down", nil), 2, 400 * time.Millisecond},
		{"anything else is linear", errors.New("boom"), 3, 300 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetRetryDelay(tt.err, tt.attempt))
		})
	}

	assert.Equal(t, 1, retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, 4, retryAfterSeconds(4*time.Second))
}
