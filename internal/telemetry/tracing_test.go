package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false, Endpoint: "http://collector:4318"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	shutdown, err = Setup(context.Background(), Config{Enabled: true})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestStartEnd_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := Start(context.Background(), "registration.approve")
	End(span, errors.New("no seats"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "registration.approve", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestOutcome(t *testing.T) {
	errFull := errors.New("full")
	known := map[error]string{errFull: "capacity_exceeded"}

	assert.Equal(t, "ok", Outcome(nil, known))
	assert.Equal(t, "capacity_exceeded", Outcome(fmt.Errorf("approve: %w", errFull), known))
	assert.Equal(t, "error", Outcome(errors.New("db down"), known))
}
