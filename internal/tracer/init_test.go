package tracer

import (
	"context"
	"testing"

	"docuchat-be/internal/config"
	"docuchat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

func TestNewResourceCarriesAppIdentity(t *testing.T) {
	res := newResource(config.AppConfig{Name: "DocuChat", Environment: "staging"})

	name, ok := res.Set().Value(semconv.ServiceNameKey)
	require.True(t, ok)
	assert.Equal(t, "DocuChat", name.AsString())

	env, ok := res.Set().Value(semconv.DeploymentEnvironmentKey)
	require.True(t, ok)
	assert.Equal(t, "staging", env.AsString())
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{name: "full", ratio: 1, want: "AlwaysOnSampler"},
		{name: "above one", ratio: 3, want: "AlwaysOnSampler"},
		{name: "fraction", ratio: 0.25, want: "TraceIDRatioBased{0.25}"},
		{name: "negative", ratio: -1, want: "AlwaysOffSampler"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, newSampler(tt.ratio).Description(), tt.want)
		})
	}
}

func TestInitTracerDisabledIsNoop(t *testing.T) {
	shutdown := InitTracer(&config.Config{App: config.AppConfig{Name: "DocuChat"}}, logger.NewNopLogger())
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
