package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DefaultModelURL, cfg.ModelURL)
	assert.Equal(t, "autism_detection_model.h5", cfg.ModelPath)
	assert.Equal(t, 10*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	require.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("INFERENCE_URL", "http://serving:8501")
	t.Setenv("INFERENCE_TIMEOUT", "2s")
	t.Setenv("RATE_LIMIT_PER_MIN", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("ENABLE_HSTS", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "http://serving:8501", cfg.InferenceURL)
	assert.Equal(t, 2*time.Second, cfg.InferenceTimeout)
	assert.Equal(t, 5, cfg.RateLimitPerIP)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.True(t, cfg.EnableHSTS)
	assert.Equal(t, 10, cfg.ReportLimitPerIP)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		hasError bool
	}{
		{"defaults", func(*Config) {}, false},
		{"non numeric port", func(c *Config) { c.Port = "http" }, true},
		{"bad inference url", func(c *Config) { c.InferenceURL = "::" }, true},
		{"empty model name", func(c *Config) { c.ModelName = "" }, true},
		{"short checksum", func(c *Config) { c.ModelSHA256 = "abc" }, true},
		{"zero timeout", func(c *Config) { c.InferenceTimeout = 0 }, true},
		{"zero rate limit", func(c *Config) { c.RateLimitPerIP = 0 }, true},
		{"zero report limit", func(c *Config) { c.ReportLimitPerIP = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(&cfg)
			if tt.hasError {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	} {
		assert.Equal(t, want, Config{LogLevel: in}.SlogLevel(), in)
	}
}
