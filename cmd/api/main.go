package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"resume-gateway/internal/config"
	hhttp "resume-gateway/internal/handler/http"
	"resume-gateway/internal/handler/http/aigateway"
	"resume-gateway/internal/handler/http/requestid"
	"resume-gateway/internal/infra/aiprovider"
	"resume-gateway/internal/observability/logging"
	"resume-gateway/internal/observability/metrics"
	"resume-gateway/internal/observability/tracing"
	"resume-gateway/internal/resilience/circuitbreaker"
	"resume-gateway/internal/resilience/retry"
	"resume-gateway/internal/usecase/resumeai"
	envconfig "resume-gateway/pkg/config"
	"resume-gateway/pkg/ratelimit"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	logger := initLogger()

	serverCfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("invalid server configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint: serverCfg.OTLPEndpoint,
		Version:  serverCfg.Version,
		Insecure: envconfig.GetEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	})
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}

	components, err := setupServer(ctx, logger, serverCfg)
	if err != nil {
		logger.Error("failed to initialize server", slog.Any("error", err))
		os.Exit(1)
	}

	if err := runServer(ctx, logger, serverCfg, components); err != nil {
		logger.Error("server failed", slog.Any("error", err))
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Warn("failed to flush traces", slog.Any("error", err))
	}
	if components.closeStore != nil {
		if err := components.closeStore(); err != nil {
			logger.Warn("failed to close rate limit store", slog.Any("error", err))
		}
	}
}

func initLogger() *slog.Logger {
	var logger *slog.Logger
	if envconfig.GetEnvString("LOG_FORMAT", "json") == "text" {
		logger = logging.NewTextLogger()
	} else {
		logger = logging.NewLogger()
	}
	slog.SetDefault(logger)
	return logger
}

// ServerComponents holds everything the server needs after initialization.
type ServerComponents struct {
	Handler http.Handler
	Janitor *ratelimit.Janitor

	closeStore func() error
}

// setupServer builds the provider, the resilience layer, the quota limiter
// and the router.
func setupServer(ctx context.Context, logger *slog.Logger, serverCfg *config.ServerConfig) (*ServerComponents, error) {
	aiCfg, err := config.LoadAIConfig()
	if err != nil {
		return nil, err
	}

	provider, err := initProvider(logger, aiCfg)
	if err != nil {
		return nil, err
	}

	rlCfg := envconfig.LoadRateLimitConfig()
	buckets, err := applyQuotaFile(logger, aiCfg.QuotaFile, rlCfg)
	if err != nil {
		return nil, err
	}

	rlMetrics := ratelimit.NewPrometheusMetrics()
	store, closeStore := initStore(ctx, logger, rlCfg, rlMetrics)
	limiter := ratelimit.NewLimiter(store, ratelimit.WithMetrics(rlMetrics))

	breaker := circuitbreaker.New(aiCfg.Breaker.ToCircuitBreaker("ai-provider",
		func(name string, from, to circuitbreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String(), int(to))
		}))

	gateway := resumeai.NewGateway(provider, limiter, breaker, resumeai.Config{
		Quotas:  rlCfg,
		Buckets: buckets,
		Retry:   aiCfg.Retry.ToRetry(),
		RetryOverrides: map[resumeai.Capability]retry.Config{
			resumeai.CapabilityReview: aiCfg.ReviewRetry.ToRetry(),
		},
	})

	health := &hhttp.HealthHandler{AI: gateway, Version: serverCfg.Version}
	if rlCfg.Enabled {
		health.RateLimitStore = store
	}

	corsCfg, err := hhttp.LoadCORSConfig()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(
		hhttp.CORS(corsCfg, logger),
		requestid.Middleware,
		tracing.Middleware,
		hhttp.Logging(logger),
		hhttp.Recover(logger),
		hhttp.MetricsMiddleware,
		hhttp.LimitRequestBody(serverCfg.MaxBodyBytes),
	)
	r.Method(http.MethodGet, "/health", health)
	r.Method(http.MethodGet, "/ready", &hhttp.ReadyHandler{Health: health})
	r.Method(http.MethodGet, "/live", hhttp.LiveHandler{})
	r.Method(http.MethodGet, "/metrics", hhttp.MetricsHandler(rlMetrics.Registry()))
	aigateway.Register(r, gateway, []byte(serverCfg.JWTSecret))

	logger.Info("AI gateway configured",
		slog.String("provider", provider.Name()),
		slog.Bool("provider_configured", aiprovider.Available(provider)),
		slog.Bool("quota_enabled", rlCfg.Enabled),
		slog.String("quota_store", rlCfg.Store),
		slog.Int("breaker_threshold", aiCfg.Breaker.Threshold),
		slog.Duration("breaker_reset_timeout", aiCfg.Breaker.ResetTimeout))

	components := &ServerComponents{Handler: r, closeStore: closeStore}
	if rlCfg.Enabled {
		components.Janitor = ratelimit.NewJanitor(limiter, rlCfg.CleanupInterval)
	}
	return components, nil
}

func initProvider(logger *slog.Logger, aiCfg *config.AIConfig) (aiprovider.Provider, error) {
	provider, err := aiprovider.New(aiprovider.Config{
		Provider:  aiCfg.Provider,
		APIKey:    aiCfg.APIKey,
		Model:     aiCfg.Model,
		MaxTokens: aiCfg.MaxTokens,
		Timeout:   aiCfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	if !aiCfg.Configured() {
		logger.Warn("AI provider API key not set, capability requests will return 503",
			slog.String("provider", aiCfg.Provider))
	}

	throttled := aiprovider.NewThrottled(provider, aiCfg.ProviderRPS, aiCfg.ProviderBurst)
	return aiprovider.NewInstrumented(throttled, aiprovider.NewPrometheusMetrics()), nil
}

// applyQuotaFile merges the optional quota file into rlCfg and returns the
// capability to bucket overrides it declares.
func applyQuotaFile(logger *slog.Logger, path string, rlCfg *ratelimit.Config) (map[resumeai.Capability]string, error) {
	if path == "" {
		return nil, nil
	}
	file, err := config.LoadQuotaFile(path)
	if err != nil {
		return nil, err
	}
	file.Apply(rlCfg)

	buckets := make(map[resumeai.Capability]string, len(file.Capabilities))
	for name, bucket := range file.Capabilities {
		c := resumeai.Capability(name)
		if !c.Valid() {
			return nil, fmt.Errorf("quota file: unknown capability %q", name)
		}
		buckets[c] = bucket
	}

	logger.Info("quota file loaded",
		slog.String("path", path),
		slog.Int("buckets", len(file.Buckets)),
		slog.Int("capability_overrides", len(buckets)))
	return buckets, nil
}

// initStore returns the quota store. A Redis store is guarded so that an
// outage makes the limiter fail open instead of rejecting traffic.
func initStore(ctx context.Context, logger *slog.Logger, rlCfg *ratelimit.Config, m ratelimit.Metrics) (ratelimit.Store, func() error) {
	if rlCfg.Store != ratelimit.StoreRedis {
		return ratelimit.NewMemoryStore(ratelimit.MemoryStoreConfig{MaxKeys: rlCfg.MaxActiveKeys}), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     rlCfg.RedisAddr,
		Password: rlCfg.RedisPassword,
		DB:       rlCfg.RedisDB,
	})
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Warn("failed to instrument redis client", slog.Any("error", err))
	}

	redisStore := ratelimit.NewRedisStore(client, rlCfg.RedisKeyPrefix)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := redisStore.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable at startup, quotas fail open until it recovers",
			slog.String("addr", rlCfg.RedisAddr),
			slog.Any("error", err))
	}

	guarded := ratelimit.NewGuardedStore(redisStore, ratelimit.GuardConfig{
		Name:             "ratelimit-redis",
		FailureThreshold: rlCfg.GuardFailureThreshold,
		ResetTimeout:     rlCfg.GuardResetTimeout,
		Metrics:          m,
	})
	return guarded, client.Close
}

// runServer serves until ctx is cancelled, then drains in-flight requests.
func runServer(ctx context.Context, logger *slog.Logger, serverCfg *config.ServerConfig, components *ServerComponents) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr(),
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second, // Prevent Slowloris attacks
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("version", serverCfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if components.Janitor != nil {
		g.Go(func() error {
			return components.Janitor.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
