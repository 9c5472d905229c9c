package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/ghuser/circulation/pkg/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		ServiceName:    "test-service",
		ServiceVersion: "test",
		Environment:    "testing",
		OtelEndpoint:   "", // disabled
	}
}

func TestSetup_NoOtelEndpoint(t *testing.T) {
	shutdown, handler, err := Setup(context.Background(), baseConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected non-nil shutdown")
	}
	if handler == nil {
		t.Fatal("expected non-nil metrics handler")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestSetup_ExposesLendingMetrics(t *testing.T) {
	ctx := context.Background()
	shutdown, handler, err := Setup(ctx, baseConfig())
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer shutdown(ctx) //nolint:errcheck

	if fields := otel.GetTextMapPropagator().Fields(); !slices.Contains(fields, "traceparent") {
		t.Errorf("trace context propagator not installed, fields %v", fields)
	}

	m, err := NewLendingMetrics()
	if err != nil {
		t.Fatalf("lending metrics: %v", err)
	}
	m.Record(ctx, "borrow", "success", 5*time.Millisecond)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("expected text/plain content-type, got %q", ct)
	}
	if body := rr.Body.String(); !strings.Contains(body, "circulation_lending_operations") {
		t.Errorf("lending counter missing from /metrics output")
	}
}

func TestSetupSentry_EmptyDSNIsNoop(t *testing.T) {
	if err := SetupSentry(baseConfig()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Without a client the capture is dropped silently.
	ReportError(context.Background(), errors.New("boom"), map[string]string{"operation": "borrow"})
}
