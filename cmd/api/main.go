// Package main is the entrypoint for the teamkeys API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"

	"github.com/penshort/teamkeys/internal/audit"
	"github.com/penshort/teamkeys/internal/auth"
	"github.com/penshort/teamkeys/internal/cache"
	"github.com/penshort/teamkeys/internal/config"
	"github.com/penshort/teamkeys/internal/handler"
	"github.com/penshort/teamkeys/internal/metrics"
	"github.com/penshort/teamkeys/internal/middleware"
	"github.com/penshort/teamkeys/internal/policy"
	"github.com/penshort/teamkeys/internal/repository"
	"github.com/penshort/teamkeys/internal/server"
	"github.com/penshort/teamkeys/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, zapLogger, err := newLogger(cfg)
	if err != nil {
		slog.Error("failed to build logger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = zapLogger.Sync() }()
	slog.SetDefault(logger)

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	var (
		recorder metrics.Recorder = metrics.NewNoop()
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		recorder = metrics.NewPrometheus(reg)
		gatherer = reg
	}

	enforcer, err := policy.New(recorder, logger)
	if err != nil {
		logger.Error("failed to build policy enforcer", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var publisher *audit.Publisher
	opts := service.APIKeyServiceOptions{
		Cache:   cacheClient,
		Metrics: recorder,
		Logger:  logger,
		KeyEnv:  cfg.KeyEnv(),
	}
	if cfg.AuditStreamEnabled {
		publisher = audit.NewPublisher(cacheClient.Client(), logger, recorder)
		opts.Publisher = publisher
	}
	apiKeyService := service.NewAPIKeyService(repo, enforcer, opts)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	router := handler.NewRouter(handler.RouterConfig{
		Logger:   logger,
		Metrics:  recorder,
		Gatherer: gatherer,
		Health:   handler.NewHealthHandler(repo, cacheClient),
		APIKeys:  handler.NewAPIKeyHandler(apiKeyService, logger),
		Auth: middleware.AuthConfig{
			Logger:        logger,
			Users:         repo,
			Keys:          repo,
			Cache:         cacheClient,
			Tokens:        tokens,
			Metrics:       recorder,
			SessionCookie: cfg.SessionCookieName,
			MinDuration:   cfg.AuthMinDuration,
		},
		RateLimit: middleware.RateLimitConfig{
			Logger:     logger,
			Limiter:    cacheClient,
			APIEnabled: cfg.RateLimitAPIEnabled,
			APIRPM:     cfg.RateLimitAPIRPM,
			APIBurst:   cfg.RateLimitAPIBurst,
			IPEnabled:  cfg.RateLimitIPEnabled,
			IPRPS:      cfg.RateLimitIPRPS,
			IPBurst:    cfg.RateLimitIPBurst,
		},
		Pagination: middleware.PaginationConfig{
			DefaultLimit: cfg.PaginationDefaultLimit,
			MaxLimit:     cfg.PaginationMaxLimit,
		},
		Security:           middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORS:               corsCfg,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	})

	srv := server.New(router, cfg.AppPort, cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout, logger)
	if publisher != nil {
		srv.OnShutdown("audit publisher", func(ctx context.Context) error {
			return server.WaitContext(ctx, publisher.Wait)
		})
	}

	logger.Info("starting server",
		slog.Int("port", cfg.AppPort),
		slog.String("env", cfg.AppEnv),
		slog.Bool("metrics", cfg.MetricsEnabled),
		slog.Bool("audit_stream", cfg.AuditStreamEnabled),
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger returns the slog logger used everywhere and the zap logger
// backing it, which the caller syncs on exit.
func newLogger(cfg *config.Config) (*slog.Logger, *zap.Logger, error) {
	zapLogger, err := newZapLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(zapslog.NewHandler(zapLogger.Core(), nil)), zapLogger, nil
}

// newZapLogger builds the zap core behind slog from LOG_LEVEL and LOG_FORMAT.
func newZapLogger(cfg *config.Config) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	switch cfg.LogFormat {
	case "json":
		zapCfg.Encoding = "json"
		zapCfg.EncoderConfig = zap.NewProductionEncoderConfig()
	default:
		zapCfg.Encoding = "console"
	}
	zapCfg.EncoderConfig.TimeKey = "time"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build()
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		if username := parsed.User.Username(); username != "" {
			parsed.User = url.User(username)
		} else {
			parsed.User = url.User("redacted")
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
