// Command api serves the circulation HTTP API.
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

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	_ "github.com/ghuser/circulation/docs/swagger"
	"github.com/ghuser/circulation/pkg/app"
	"github.com/ghuser/circulation/pkg/cache"
	"github.com/ghuser/circulation/pkg/config"
	"github.com/ghuser/circulation/pkg/database"
	"github.com/ghuser/circulation/pkg/events"
	"github.com/ghuser/circulation/pkg/httpx"
	"github.com/ghuser/circulation/pkg/logger"
	"github.com/ghuser/circulation/pkg/telemetry"
	circulationApi "github.com/ghuser/circulation/services/circulation/application/api"
)

const shutdownTimeout = 30 * time.Second

// @title					Circulation API
// @version				1.0
// @description			Item lending service: catalog copies, borrowers, borrow and return.
// @termsOfService			http://swagger.io/terms/
// @contact.name			API Support
// @contact.email			support@example.com
// @license.name			MIT
// @license.url			https://opensource.org/licenses/MIT
// @host					localhost:8080
// @BasePath				/api
// @schemes				http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := config.ValidateForProduction(cfg); err != nil {
		slog.Error("production config validation failed", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api failed", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already ran
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	otelShutdown, metricsHandler, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer otelShutdown(context.WithoutCancel(ctx)) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	metrics, err := telemetry.NewLendingMetrics()
	if err != nil {
		return err
	}

	a := &app.Application{Config: cfg, Logger: log, Metrics: metrics}
	checks := httpx.HealthChecks{Store: cfg.StoreBackend}

	if cfg.UsesMemoryStore() {
		log.Warn("using in-memory record store, data is lost on restart")
	} else {
		closeDeps, err := connect(ctx, a, &checks)
		defer closeDeps()
		if err != nil {
			return err
		}
	}

	r := httpx.NewRouter(
		httpx.ServerConfig{
			ServiceName:        cfg.ServiceName,
			IsDevelopment:      cfg.Environment == config.EnvDevelopment,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			RateLimit:          cfg.RateLimitPerMinute,
			MaxBodyBytes:       cfg.MaxBodyBytes,
			HandlerTimeout:     cfg.RequestTimeout,
		},
		httpx.Observability{
			Recovery: logger.Recovery(log),
			Sentry:   telemetry.SentryMiddleware(),
			Tracing:  otelhttp.NewMiddleware(cfg.ServiceName),
			Logging:  logger.Middleware(log),
		},
	)
	r.Get("/health", httpx.HealthHandler(checks))
	r.Get("/metrics", metricsHandler.ServeHTTP)
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	r.Route("/api", func(r chi.Router) {
		circulationApi.CirculationRoutes(r, a)
	})

	return serve(ctx, httpx.NewServer(cfg.HTTPAddr, r, cfg.RequestTimeout), log)
}

// connect opens the postgres pool, the outbox event bus and, when
// configured, Redis. The returned func closes whatever was opened, in
// reverse order, and is valid even when err is non-nil.
func connect(ctx context.Context, a *app.Application, checks *httpx.HealthChecks) (func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pool, err := database.NewPool(ctx, a.Config.DatabaseURL, a.Logger)
	if err != nil {
		return closeAll, err
	}
	closers = append(closers, pool.Close)
	a.Db, checks.Database = pool, pool

	bus, err := events.NewEventBus(pool.DB().DB, events.Options{Forwarder: true}, a.Logger)
	if err != nil {
		return closeAll, err
	}
	closers = append(closers, func() { _ = bus.Close() })
	if err := bus.StartForwarder(ctx); err != nil {
		return closeAll, err
	}
	a.EventBus, checks.EventBus = bus, bus

	if a.Config.RedisURL == "" {
		a.Logger.Info("REDIS_URL not set, item cache disabled")
		return closeAll, nil
	}
	redisClient, err := cache.NewRedisClient(ctx, a.Config.RedisURL)
	if err != nil {
		return closeAll, err
	}
	closers = append(closers, func() { _ = redisClient.Close() })
	a.Redis, checks.Redis = redisClient, redisClient

	a.Logger.Info("dependencies connected", "redis", true)
	return closeAll, nil
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, log logger.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
