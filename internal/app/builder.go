package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/elter-ri/vocabs-sync/internal/api"
	"github.com/elter-ri/vocabs-sync/internal/auth"
	"github.com/elter-ri/vocabs-sync/internal/config"
	"github.com/elter-ri/vocabs-sync/internal/graphstore"
	"github.com/elter-ri/vocabs-sync/internal/httpclient"
	"github.com/elter-ri/vocabs-sync/internal/sources"
	pkgsync "github.com/elter-ri/vocabs-sync/internal/sync"
	"github.com/elter-ri/vocabs-sync/internal/sync/coordinator"
	"github.com/elter-ri/vocabs-sync/internal/sync/scheduler"
	"github.com/elter-ri/vocabs-sync/internal/telemetry"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultReadTimeout    = 10 * time.Second
	defaultIdleTimeout    = 60 * time.Second

	// syncTracerName names the tracer of the sync pipeline
	syncTracerName = "github.com/elter-ri/vocabs-sync/sync"
)

// SyncAppOptions is a function that configures the sync app builder
type SyncAppOptions func(*syncAppConfig) error

// syncAppConfig collects the options of NewSyncApp.
// It supports dependency injection for testing while providing sensible defaults for production.
type syncAppConfig struct {
	config *config.Config

	// Optional component overrides (primarily for testing)
	httpClient    httpclient.Client
	engine        pkgsync.Engine
	waitFunc      scheduler.WaitFunc
	telemetry     *telemetry.Telemetry
	ownsTelemetry bool

	// HTTP server options
	address        string
	middlewares    []func(http.Handler) http.Handler
	requestTimeout time.Duration
	readTimeout    time.Duration
	idleTimeout    time.Duration
}

func baseConfig(opts ...SyncAppOptions) (*syncAppConfig, error) {
	cfg := &syncAppConfig{
		requestTimeout: defaultRequestTimeout,
		readTimeout:    defaultReadTimeout,
		idleTimeout:    defaultIdleTimeout,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.address == "" {
		cfg.address = cfg.config.GetAddress()
	}

	return cfg, nil
}

// NewSyncApp wires the sync pipeline, the scheduler and the HTTP server
func NewSyncApp(
	ctx context.Context,
	opts ...SyncAppOptions,
) (*SyncApp, error) {
	cfg, err := baseConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build base configuration: %w", err)
	}

	if cfg.telemetry == nil {
		cfg.telemetry, err = telemetry.New(ctx, telemetry.WithTelemetryConfig(cfg.config.Telemetry))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		cfg.ownsTelemetry = true
	}

	// Ensure cleanup happens on error
	cleanupNeeded := true
	defer func() {
		if cleanupNeeded && cfg.ownsTelemetry {
			_ = cfg.telemetry.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	registry, syncCoordinator, err := buildSyncComponents(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build sync components: %w", err)
	}

	httpServer, err := buildHTTPServer(cfg, syncCoordinator)
	if err != nil {
		return nil, fmt.Errorf("failed to build HTTP server: %w", err)
	}

	interval := cfg.config.SyncPolicy.GetInterval()
	schedOpts := []scheduler.Option{}
	if cfg.waitFunc != nil {
		schedOpts = append(schedOpts, scheduler.WithWaitFunc(cfg.waitFunc))
	}
	syncScheduler := scheduler.New(syncCoordinator, interval, schedOpts...)

	appCtx, cancel := context.WithCancel(ctx)
	cleanupNeeded = false

	components := &AppComponents{
		Registry:    registry,
		Coordinator: syncCoordinator,
		Scheduler:   syncScheduler,
	}
	if cfg.ownsTelemetry {
		components.Telemetry = cfg.telemetry
	}

	return &SyncApp{
		config:     cfg.config,
		components: components,
		httpServer: httpServer,
		ctx:        appCtx,
		cancelFunc: cancel,
	}, nil
}

// WithConfig sets the configuration
func WithConfig(c *config.Config) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.config = c
		return nil
	}
}

// WithAddress sets the HTTP server address, overriding the configuration
func WithAddress(addr string) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		if addr == "" {
			return fmt.Errorf("address cannot be empty")
		}

		host, port, found := strings.Cut(addr, ":")
		if !found || port == "" {
			return fmt.Errorf("address is not a valid port: %s", addr)
		}
		if host == "localhost" {
			host = "127.0.0.1"
		}
		if host == "" {
			host = "0.0.0.0"
		}

		if _, err := netip.ParseAddrPort(host + ":" + port); err != nil {
			return fmt.Errorf("address is not a valid port: %w", err)
		}

		cfg.address = addr
		return nil
	}
}

// WithMiddlewares sets custom HTTP middlewares
func WithMiddlewares(mw ...func(http.Handler) http.Handler) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.middlewares = mw
		return nil
	}
}

// WithHTTPClient allows injecting the outbound HTTP client (for testing)
func WithHTTPClient(c httpclient.Client) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.httpClient = c
		return nil
	}
}

// WithEngine allows injecting a custom sync engine (for testing)
func WithEngine(e pkgsync.Engine) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.engine = e
		return nil
	}
}

// WithSchedulerWaitFunc replaces the scheduler's timer (for testing)
func WithSchedulerWaitFunc(wait scheduler.WaitFunc) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.waitFunc = wait
		return nil
	}
}

// WithTelemetry injects telemetry providers owned by the caller
func WithTelemetry(t *telemetry.Telemetry) SyncAppOptions {
	return func(cfg *syncAppConfig) error {
		cfg.telemetry = t
		return nil
	}
}

// buildSyncComponents builds the registry, the engine and the coordinator
func buildSyncComponents(b *syncAppConfig) (*sources.Registry, coordinator.Coordinator, error) {
	slog.Info("Initializing sync components")

	registry, err := sources.NewRegistryFromConfig(b.config.Sources)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build source registry: %w", err)
	}

	syncMetrics, err := telemetry.NewSyncMetrics(b.telemetry.MeterProvider())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	if b.engine == nil {
		b.engine, err = buildEngine(b, registry, syncMetrics)
		if err != nil {
			return nil, nil, err
		}
	}

	syncCoordinator := coordinator.New(b.engine,
		coordinator.WithSyncMetrics(syncMetrics),
		coordinator.WithLockFile(b.config.SyncPolicy.LockFile),
	)

	slog.Info("Sync components initialized successfully",
		"sources", registry.Len(),
		"interval", b.config.SyncPolicy.GetInterval().String(),
		"lock_file", b.config.SyncPolicy.LockFile)
	return registry, syncCoordinator, nil
}

func buildEngine(
	b *syncAppConfig,
	registry *sources.Registry,
	syncMetrics *telemetry.SyncMetrics,
) (pkgsync.Engine, error) {
	policy := b.config.SyncPolicy
	store := b.config.Store

	// The client timeout is only a backstop; fetch and publish set their own deadlines
	client := b.httpClient
	if client == nil {
		client = httpclient.NewDefaultClient(max(policy.GetFetchTimeout(), policy.GetPublishTimeout()))
	}

	tracer := b.telemetry.Tracer(syncTracerName)

	fetcher := sources.NewHTTPFetcher(client,
		sources.WithFetchTimeout(policy.GetFetchTimeout()),
		sources.WithFetchTracer(tracer),
	)

	publisher, err := graphstore.NewGSPPublisher(client, store.Endpoint,
		graphstore.WithMethod(store.GetMethod()),
		graphstore.WithBasicAuth(store.Username, store.Password),
		graphstore.WithTimeout(policy.GetPublishTimeout()),
		graphstore.WithTracer(tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph publisher: %w", err)
	}

	return pkgsync.NewEngine(registry, fetcher, publisher,
		pkgsync.WithTracer(tracer),
		pkgsync.WithSyncMetrics(syncMetrics),
	), nil
}

// buildHTTPServer builds the HTTP server with router and middleware
func buildHTTPServer(b *syncAppConfig, coord coordinator.Coordinator) (*http.Server, error) {
	slog.Info("Initializing HTTP server")

	if b.middlewares == nil {
		b.middlewares = []func(http.Handler) http.Handler{
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			api.LoggingMiddleware,
		}
	}

	// Metrics and tracing go first to capture requests rejected by auth
	metricsMiddleware, err := telemetry.MetricsMiddleware(b.telemetry.MeterProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics middleware: %w", err)
	}
	b.middlewares = append([]func(http.Handler) http.Handler{
		telemetry.TracingMiddleware(b.telemetry.TracerProvider()),
		metricsMiddleware,
	}, b.middlewares...)

	triggerAuth, err := auth.NewBearerMiddleware(b.config.Trigger.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build trigger authentication: %w", err)
	}

	router := api.NewServer(coord,
		api.WithMiddlewares(b.middlewares...),
		api.WithTriggerAuth(triggerAuth),
		api.WithMetricsHandler(b.telemetry.MetricsHandler()),
		api.WithRequestTimeout(b.requestTimeout),
	)

	// No WriteTimeout: POST /sync keeps the response open for a whole run
	server := &http.Server{
		Addr:              b.address,
		Handler:           router,
		ReadTimeout:       b.readTimeout,
		ReadHeaderTimeout: b.readTimeout,
		IdleTimeout:       b.idleTimeout,
	}

	slog.Info("HTTP server configured", "address", b.address)
	return server, nil
}
