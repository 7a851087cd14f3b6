package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/guildcare/internal/config"
)

func TestDisabledTracingIsNoop(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), config.TracingConfig{Enabled: false}, "dev")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSpanHelpers(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(previous)

	_, span := StartSpan(context.Background(), "triage.analyze")
	AddSpanAttributes(span, map[string]string{"issue.type": "technical", "recommendation.tier": "P3"})
	RecordSpanError(span, errors.New("generation failed"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "triage.analyze", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("issue.type", "technical"))
	assert.Contains(t, ended[0].Attributes(), attribute.String("recommendation.tier", "P3"))
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Len(t, ended[0].Events(), 1)
}

func TestHostnameIsNeverEmpty(t *testing.T) {
	assert.NotEmpty(t, getHostname())
}
