package events

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	watermillsql "github.com/ThreeDotsLabs/watermill-sql/v3/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/circulation/pkg/logger"
)

func setupTracer() *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp
}

func TestRetryWithBackoff(t *testing.T) {
	tests := []struct {
		name      string
		failUntil int // handler fails while calls < failUntil
		wantErr   bool
		wantCalls int
	}{
		{"success on first attempt", 1, false, 1},
		{"success after retries", 3, false, 3},
		{"exhausts retries", maxRetries + 10, true, maxRetries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			handler := func(context.Context, *message.Message) error {
				calls++
				if calls < tt.failUntil {
					return errors.New("transient")
				}
				return nil
			}
			err := retryWithBackoff(context.Background(), message.NewMessage("id", nil), handler, maxRetries, time.Millisecond, logger.Nop())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
		})
	}
}

func TestRetryWithBackoff_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	handler := func(context.Context, *message.Message) error {
		calls++
		return errors.New("error")
	}
	err := retryWithBackoff(ctx, message.NewMessage("id", nil), handler, maxRetries, time.Second, logger.Nop())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

// The bus hands database/sql handles straight to watermill-sql.
var (
	_ watermillsql.Beginner        = (*sql.DB)(nil)
	_ watermillsql.ContextExecutor = (*sql.DB)(nil)
	_ watermillsql.ContextExecutor = (*sql.Tx)(nil)
)

func TestNewEventBus_AcceptsStdSQLHandle(t *testing.T) {
	db, err := sql.Open("pgx", "postgres://localhost:1/none?sslmode=disable")
	require.NoError(t, err)
	defer db.Close() //nolint:errcheck

	bus, err := NewEventBus(db, Options{ConsumerGroup: "test"}, logger.Nop())
	require.NoError(t, err)
	assert.NoError(t, bus.Close())
}

func TestStartForwarder_NonForwarderMode(t *testing.T) {
	bus := &EventBus{opts: Options{Forwarder: false}}
	assert.Error(t, bus.StartForwarder(context.Background()))
}

func TestNewMessage_DecodeRoundTrip(t *testing.T) {
	type loanBorrowed struct {
		LoanID string `json:"loan_id"`
		ItemID string `json:"item_id"`
	}

	msg, err := NewMessage(context.Background(), loanBorrowed{LoanID: "l-1", ItemID: "i-1"})
	require.NoError(t, err)
	assert.Equal(t, "application/json", msg.Metadata.Get(metadataContentType))
	assert.JSONEq(t, `{"loan_id":"l-1","item_id":"i-1"}`, string(msg.Payload))

	got, err := Decode[loanBorrowed](msg)
	require.NoError(t, err)
	assert.Equal(t, "l-1", got.LoanID)

	_, err = Decode[loanBorrowed](message.NewMessage("bad", []byte("{nope")))
	assert.Error(t, err)
}

func TestTracePropagation_ThroughMessageMetadata(t *testing.T) {
	tp := setupTracer()
	defer tp.Shutdown(context.Background()) //nolint:errcheck

	ctx, span := otel.Tracer("test").Start(context.Background(), "borrow")
	defer span.End()

	msg, err := NewMessage(ctx, map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NotEmpty(t, msg.Metadata.Get("traceparent"))

	restored := extractTrace(context.Background(), msg)
	got := trace.SpanContextFromContext(restored)
	assert.True(t, got.IsValid())
	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
}
