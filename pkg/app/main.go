package app

import (
	"github.com/ghuser/circulation/pkg/cache"
	"github.com/ghuser/circulation/pkg/config"
	"github.com/ghuser/circulation/pkg/database"
	"github.com/ghuser/circulation/pkg/events"
	"github.com/ghuser/circulation/pkg/logger"
	"github.com/ghuser/circulation/pkg/telemetry"
)

// Application holds shared infrastructure dependencies for all services.
// Pass to each service's route function during server initialization.
//
// Logging: app.Logger is backed by a trace-aware handler; use slog's context
// methods and trace_id, span_id and request_id are injected automatically:
//
//	app.Logger.InfoContext(ctx, "borrow requested", "item_id", id)
//
// Optional dependencies are nil when not configured: Db and EventBus with
// the memory store backend, Redis when REDIS_URL is empty.
type Application struct {
	Config   *config.Config
	Logger   logger.Logger
	Db       *database.Database
	EventBus *events.EventBus
	Redis    *cache.RedisClient
	Metrics  *telemetry.LendingMetrics
}
