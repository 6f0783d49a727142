package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/adapters"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/config"
	apperrors "github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/frontend"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/report"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/resilience"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/security"
)

const version = "1.0.0"

// @title AQ-10 Risk Meter API
// @version 1.0
// @description Combines a facial image classifier with the AQ-10 questionnaire into a screening recommendation. Not a diagnosis.
// @BasePath /
func main() {
	cfg := config.Load()

	appLogger := monitoring.NewLogger(cfg.SlogLevel())
	slog.SetDefault(appLogger.Logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scoring, err := analysis.NewConfigStore(cfg.ScoringConfigPath).Load()
	if err != nil {
		slog.Error("Failed to load scoring configuration", "path", cfg.ScoringConfigPath, "error", err)
		os.Exit(1)
	}
	scorer, err := analysis.NewScorer(scoring)
	if err != nil {
		slog.Error("Invalid scoring configuration", "error", err)
		os.Exit(1)
	}

	appMetrics := monitoring.NewMetrics()

	// The artifact is shared with the model server through MODEL_PATH.
	store := adapters.NewArtifactStore(adapters.ArtifactConfig{
		URL:    cfg.ModelURL,
		Path:   cfg.ModelPath,
		SHA256: cfg.ModelSHA256,
	}, nil)
	model, err := store.Ensure(ctx)
	if err != nil {
		slog.Error("Image model is unavailable", "error", err)
		os.Exit(1)
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             "inference",
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		OnStateChange:    appMetrics.BreakerObserver(),
	})
	poolCfg := resilience.DefaultPoolConfig()
	poolCfg.Timeout = cfg.InferenceTimeout
	pool := resilience.NewConnectionPool(poolCfg, breaker)
	defer apperrors.SafeClose(pool, "inference pool")

	tfServing := adapters.NewTFServingClassifier(adapters.TFServingConfig{
		BaseURL:   cfg.InferenceURL,
		ModelName: cfg.ModelName,
		Timeout:   cfg.InferenceTimeout,
	}, model, pool)
	classifier := monitoring.InstrumentClassifier(tfServing, cfg.ModelName, appMetrics, appLogger)

	redisClient, err := ratelimit.NewRedisClient(ctx, ratelimit.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		slog.Warn("Redis unavailable, rate limiting in memory", "error", err)
	}
	defer apperrors.SafeClose(redisClient, "redis")

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		IPLimitPerMin:     cfg.RateLimitPerIP,
		ReportLimitPerMin: cfg.ReportLimitPerIP,
	}, appMetrics)
	defer limiter.Close()

	pages, err := frontend.LoadPages()
	if err != nil {
		slog.Error("Failed to load page templates", "error", err)
		os.Exit(1)
	}

	srv := &server{
		assessor: analysis.NewAssessor(scorer, classifier),
		renderer: report.NewRenderer(),
		pages:    pages,
		limiter:  limiter,
		security: security.NewSecurityMiddleware(security.SecurityConfig{
			MaxBodyBytes:   cfg.MaxUploadBytes,
			AllowedOrigins: cfg.AllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
			EnableHSTS:     cfg.EnableHSTS,
			CSPReportURI:   cfg.CSPReportURI,
		}),
		metrics: appMetrics,
		logger:  appLogger,
		ready:   tfServing.Ready,
		health: []monitoring.HealthComponent{
			{Name: "inference_pool", Stats: pool.GetStats},
		},
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(srv),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		appLogger.SystemLogger("server_start", "port", cfg.Port, "model", model.Name, "scoring", scoring)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	appLogger.SystemLogger("server_stop")
}
