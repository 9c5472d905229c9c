package httpx

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const healthTimeout = 2 * time.Second

// Probe results.
const (
	probeOK          = "ok"
	probeDisabled    = "disabled"
	probeUnreachable = "unreachable"
)

// HealthChecker is anything with a Ping, such as the database pool, the
// Redis client or the event bus.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthChecks lists the dependencies probed by HealthHandler. Leave a field
// nil when the dependency is not configured; it is then reported as
// "disabled" and does not degrade the status.
type HealthChecks struct {
	// Store names the record store backend, reported verbatim.
	Store    string
	Database HealthChecker
	Redis    HealthChecker
	EventBus HealthChecker
}

type healthResponse struct {
	Status   string `json:"status"`
	Store    string `json:"store,omitempty"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	EventBus string `json:"event_bus"`
}

// HealthHandler probes every configured dependency in parallel. It answers
// 200 when all are reachable and 503 otherwise.
func HealthHandler(checks HealthChecks) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		resp := healthResponse{Status: probeOK, Store: checks.Store}
		var g errgroup.Group
		g.Go(func() error { resp.Database = probe(ctx, checks.Database); return nil })
		g.Go(func() error { resp.Redis = probe(ctx, checks.Redis); return nil })
		g.Go(func() error { resp.EventBus = probe(ctx, checks.EventBus); return nil })
		_ = g.Wait()

		status := http.StatusOK
		for _, s := range []string{resp.Database, resp.Redis, resp.EventBus} {
			if s == probeUnreachable {
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
			}
		}
		JSON(w, status, resp)
	}
}

func probe(ctx context.Context, c HealthChecker) string {
	if c == nil {
		return probeDisabled
	}
	if err := c.Ping(ctx); err != nil {
		return probeUnreachable
	}
	return probeOK
}
