// Command worker consumes circulation events from the outbox topics and
// keeps the Redis item read model in step with the record store.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ghuser/circulation/pkg/cache"
	"github.com/ghuser/circulation/pkg/config"
	"github.com/ghuser/circulation/pkg/database"
	"github.com/ghuser/circulation/pkg/events"
	"github.com/ghuser/circulation/pkg/logger"
	"github.com/ghuser/circulation/pkg/telemetry"
)

const consumerGroup = "circulation-worker"

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
		log.Error("worker failed", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already ran
	}
	log.Info("worker stopped")
}

// run wires the worker and blocks until ctx is cancelled. Deferred closes
// run in reverse order, so the bus drains in-flight handlers before the
// pools it uses go away.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	switch {
	case cfg.UsesMemoryStore():
		return errors.New("STORE_BACKEND=memory publishes no events; the worker needs postgres")
	case cfg.RedisURL == "":
		return errors.New("REDIS_URL is required: the worker maintains the item read model")
	}

	otelShutdown, _, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer otelShutdown(context.WithoutCancel(ctx)) //nolint:errcheck

	if err := telemetry.SetupSentry(cfg); err != nil {
		log.Warn("failed to setup sentry, continuing without crash reporting", "error", err)
	}
	defer telemetry.SentryFlush()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	bus, err := events.NewEventBus(pool.DB().DB, events.Options{ConsumerGroup: consumerGroup}, log)
	if err != nil {
		return err
	}
	defer bus.Close() //nolint:errcheck

	redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer redisClient.Close() //nolint:errcheck
	log.Info("worker connected", "consumer_group", consumerGroup)

	subs := &subscribers{cache: cache.NewItemCache(redisClient), log: log}
	if err := subs.register(ctx, bus); err != nil {
		return err
	}

	<-ctx.Done()
	log.Info("shutting down worker")
	return nil
}
