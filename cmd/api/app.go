package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/oppscore/internal/api"
	"github.com/onnwee/oppscore/internal/batch"
	"github.com/onnwee/oppscore/internal/config"
	"github.com/onnwee/oppscore/internal/explain"
	"github.com/onnwee/oppscore/internal/health"
	"github.com/onnwee/oppscore/internal/insight"
	"github.com/onnwee/oppscore/internal/jobs"
	"github.com/onnwee/oppscore/internal/middleware"
	"github.com/onnwee/oppscore/internal/ranking"
	"github.com/onnwee/oppscore/internal/scoring"
	"github.com/onnwee/oppscore/internal/tracing"
	"github.com/onnwee/oppscore/internal/vectorize"
)

// app holds the wired HTTP handler and the resources it owns.
type app struct {
	handler  http.Handler
	registry *prometheus.Registry
	closers  []func(context.Context) error
	logger   *slog.Logger
}

// Close releases the app's resources in reverse acquisition order.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("failed to release resource", "error", err)
		}
	}
}

// newApp wires every component described by cfg. Optional collaborators
// (Redis, the insight service, tracing) are only created when configured.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}
	fail := func(err error) (*app, error) {
		a.Close()
		return nil, err
	}

	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	tracingCfg := cfg.TracingConfig(version)
	tracingCfg.Logger = logger
	tp, err := tracing.NewProvider(tracingCfg)
	if err != nil {
		return fail(fmt.Errorf("failed to initialize tracing: %w", err))
	}
	a.closers = append(a.closers, tp.Shutdown)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fail(fmt.Errorf("failed to parse redis url: %w", err))
		}
		redisClient = redis.NewClient(opts)
		a.closers = append(a.closers, func(context.Context) error { return redisClient.Close() })
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Cache and rate limiting fail open; readiness reports the outage.
			logger.Warn("redis unreachable at startup", "error", err)
		}
	}

	// Metrics
	httpMetrics := middleware.NewMetrics()
	scoringMetrics := scoring.NewMetrics()
	batchMetrics := batch.NewMetrics()
	jobMetrics := jobs.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register,
		scoringMetrics.Register,
		batchMetrics.Register,
		jobMetrics.Register,
	} {
		if err := register(a.registry); err != nil {
			return fail(fmt.Errorf("failed to register metrics: %w", err))
		}
	}

	registry, err := scoring.LoadRegistry(cfg.ModelsPath, logger)
	if err != nil {
		return fail(err)
	}

	calibration := ranking.DefaultCalibration()
	if cfg.CalibrationPath != "" {
		calibration, err = ranking.LoadCalibration(cfg.CalibrationPath)
		if err != nil {
			return fail(fmt.Errorf("failed to load ranking calibration: %w", err))
		}
	}

	checks := map[string]health.Checker{}
	if redisClient != nil {
		checks["redis"] = health.NewRedisChecker(redisClient)
	} else {
		checks["redis"] = nil
	}

	var insightService scoring.InsightService
	if cfg.InsightURL != "" {
		client, err := insight.NewClient(insight.Config{
			BaseURL: cfg.InsightURL,
			APIKey:  cfg.InsightAPIKey,
			Timeout: cfg.ProviderTimeout,
			Logger:  logger,
		})
		if err != nil {
			return fail(err)
		}
		insightService = insight.NewCachedService(client, redisClient, insight.CacheConfig{
			TTL:    cfg.CacheTTL,
			Logger: logger,
		})
		checks["insight"] = client
	} else {
		checks["insight"] = nil
		logger.Warn("insight service not configured; delegated components will be unavailable")
	}

	var narrative explain.NarrativeService
	if cfg.NarrativeEnabled {
		client, err := insight.NewClient(insight.Config{
			BaseURL: cfg.NarrativeServiceURL(),
			APIKey:  cfg.InsightAPIKey,
			Timeout: explain.DefaultNarrativeTimeout,
			Logger:  logger,
		})
		if err != nil {
			return fail(err)
		}
		narrative = client
		if cfg.NarrativeURL != "" && cfg.NarrativeURL != cfg.InsightURL {
			checks["narrative"] = client
		}
	}

	engine := scoring.NewEngine(scoring.EngineConfig{
		Providers: scoring.DefaultProviders(registry.Priorities(), insightService, scoring.DelegatedConfig{
			Timeout: cfg.ProviderTimeout,
			Logger:  logger,
		}),
		Logger:  logger,
		Metrics: scoringMetrics,
	})

	runner := batch.NewRunner(batch.Config{
		Concurrency: cfg.BatchConcurrency,
		Logger:      logger,
		Metrics:     batchMetrics,
		JobMetrics:  jobMetrics,
	}, engine)

	handlers := api.NewHandlers(api.Config{
		Scorer:      engine,
		Registry:    registry,
		Calibration: calibration,
		Vectorizer:  vectorize.Options{MaxFeatures: cfg.MaxFeatures},
		Composer: explain.NewComposer(explain.ComposerConfig{
			Narrative: narrative,
			Logger:    logger,
		}),
		Runner: runner,
		Logger: logger,
	})

	// Rate limiting
	var store middleware.RateLimitStore
	if redisClient != nil {
		store = middleware.NewRedisRateLimitStore(redisClient,
			middleware.WithStoreMetrics(httpMetrics),
			middleware.WithStoreLogger(logger))
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		stopCleanup := startCleanup(memStore, time.Minute)
		a.closers = append(a.closers, func(context.Context) error {
			stopCleanup()
			return nil
		})
		store = memStore
	}
	globalLimit := middleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimitRequests,
		WindowDuration:    time.Minute,
	}
	if err := globalLimit.Validate(); err != nil {
		return fail(fmt.Errorf("invalid rate limit: %w", err))
	}
	keyFunc := middleware.ClientKeyFunc()

	mux := api.NewRouter(api.RouterConfig{
		Handlers: handlers,
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			Checks: checks,
		}),
		Metrics:      promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}),
		Version:      version,
		BatchLimiter: middleware.RateLimiter(store, middleware.DefaultBatchLimit(), middleware.ScopedKeyFunc("batch", keyFunc), httpMetrics),
	})

	// Apply middleware: RequestID -> ClientID -> Tracing -> Logging -> HTTPMetrics -> RateLimiter
	var handler http.Handler = middleware.RateLimiter(store, globalLimit, keyFunc, httpMetrics)(mux)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if tp.IsEnabled() {
		handler = middleware.Tracing(config.DefaultServiceName)(handler)
	}
	handler = middleware.ClientID(handler)
	a.handler = middleware.RequestID(handler)

	return a, nil
}

// startCleanup periodically evicts expired in-memory rate limit buckets.
// The returned function stops the loop.
func startCleanup(store *middleware.InMemoryRateLimitStore, every time.Duration) func() {
	ticker := time.NewTicker(every)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				store.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	var stopped bool
	return func() {
		if !stopped {
			stopped = true
			close(done)
		}
	}
}
