package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultModelURL is where the pretrained image model is published.
const DefaultModelURL = "https://drive.google.com/uc?id=1wo5U_9ETRvM4psqVIKwUj2Y-mjX6sCMY"

// Config holds all configuration for the risk service.
type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	// Model artifact
	ModelURL    string
	ModelPath   string
	ModelSHA256 string

	// Inference
	InferenceURL     string
	ModelName        string
	InferenceTimeout time.Duration

	ScoringConfigPath string

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RateLimitPerIP   int // requests per minute
	ReportLimitPerIP int // PDF renders per minute

	MaxUploadBytes int64
	RequestTimeout time.Duration
	AllowedOrigins []string
	EnableHSTS     bool
	CSPReportURI   string
}

// Load reads an optional .env file and then the environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	return Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ModelURL:    getEnv("MODEL_URL", DefaultModelURL),
		ModelPath:   getEnv("MODEL_PATH", "autism_detection_model.h5"),
		ModelSHA256: getEnv("MODEL_SHA256", ""),

		InferenceURL:     getEnv("INFERENCE_URL", "http://localhost:8501"),
		ModelName:        getEnv("MODEL_NAME", "autism_detection"),
		InferenceTimeout: getEnvDuration("INFERENCE_TIMEOUT", 10*time.Second),

		ScoringConfigPath: getEnv("SCORING_CONFIG", ""),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		RateLimitPerIP:   getEnvInt("RATE_LIMIT_PER_MIN", 30),
		ReportLimitPerIP: getEnvInt("REPORT_RATE_LIMIT_PER_MIN", 10),

		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:8080"}),
		EnableHSTS:     getEnvBool("ENABLE_HSTS", false),
		CSPReportURI:   getEnv("CSP_REPORT_URI", ""),
	}
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be numeric, got %q", c.Port)
	}
	if _, err := url.ParseRequestURI(c.InferenceURL); err != nil {
		return fmt.Errorf("INFERENCE_URL is invalid: %w", err)
	}
	if c.ModelName == "" {
		return errors.New("MODEL_NAME must not be empty")
	}
	if c.ModelPath == "" {
		return errors.New("MODEL_PATH must not be empty")
	}
	if c.ModelSHA256 != "" && len(c.ModelSHA256) != 64 {
		return fmt.Errorf("MODEL_SHA256 must be 64 hex characters, got %d", len(c.ModelSHA256))
	}
	if c.InferenceTimeout <= 0 {
		return errors.New("INFERENCE_TIMEOUT must be positive")
	}
	if c.RateLimitPerIP <= 0 {
		return errors.New("RATE_LIMIT_PER_MIN must be positive")
	}
	if c.ReportLimitPerIP <= 0 {
		return errors.New("REPORT_RATE_LIMIT_PER_MIN must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
