package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	sentryhttp "github.com/getsentry/sentry-go/http"

	"github.com/ghuser/circulation/pkg/config"
)

const sentryFlushTimeout = 2 * time.Second

// SetupSentry initializes the global Sentry client. It does nothing when
// SENTRY_DSN is empty, which leaves ReportError as a no-op.
func SetupSentry(cfg *config.Config) error {
	if cfg.SentryDSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		Release:          fmt.Sprintf("%s@%s", cfg.ServiceName, cfg.ServiceVersion),
		AttachStacktrace: true,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("store_backend", cfg.StoreBackend)
	})
	return nil
}

// SentryFlush waits briefly for queued events. Defer it in main.
func SentryFlush() {
	sentry.Flush(sentryFlushTimeout)
}

// SentryMiddleware binds a hub to each request and captures panics before
// re-raising them for logger.Recovery.
func SentryMiddleware() func(http.Handler) http.Handler {
	return sentryhttp.New(sentryhttp.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         sentryFlushTimeout,
	}).Handle
}

// ReportError captures err with tags on the request's hub, or on the
// current hub outside a request. Events are grouped by the "operation" tag
// when present.
func ReportError(ctx context.Context, err error, tags map[string]string) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if op, ok := tags["operation"]; ok {
			scope.SetFingerprint([]string{"{{ default }}", op})
		}
		hub.CaptureException(err)
	})
}
