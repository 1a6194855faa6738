package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNewTracerProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       []TracerProviderOption
		expectNoOp bool
	}{
		{
			name:       "no config",
			expectNoOp: true,
		},
		{
			name:       "tracing disabled",
			opts:       []TracerProviderOption{WithTracingConfig(&TracingConfig{Enabled: false})},
			expectNoOp: true,
		},
		{
			name: "tracing enabled",
			opts: []TracerProviderOption{
				WithTracingConfig(&TracingConfig{Enabled: true, Sampling: 0.5}),
				WithTracerEndpoint("collector.example.com:4318"),
				WithTracerInsecure(true),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			tp, err := NewTracerProvider(ctx, tt.opts...)
			require.NoError(t, err)
			require.NotNil(t, tp)

			if tt.expectNoOp {
				_, ok := tp.(noop.TracerProvider)
				assert.True(t, ok, "expected no-op tracer provider")
				return
			}
			sdkTP, ok := tp.(*sdktrace.TracerProvider)
			require.True(t, ok, "expected SDK tracer provider")
			_ = sdkTP.Shutdown(ctx)
		})
	}
}

func TestNewTracerProvider_CustomExporter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewTracerProvider(ctx,
		WithTracingConfig(&TracingConfig{Enabled: true, Sampling: 1}),
		WithSpanExporter(exporter),
		WithTracerServiceName("vocabs-sync-test"),
		WithTracerServiceVersion("0.0.1"),
	)
	require.NoError(t, err)

	sdkTP, ok := tp.(*sdktrace.TracerProvider)
	require.True(t, ok)

	_, span := tp.Tracer("test").Start(ctx, "sync.run")
	span.End()
	require.NoError(t, sdkTP.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "sync.run", spans[0].Name)

	var serviceName string
	for _, attr := range spans[0].Resource.Attributes() {
		if attr.Key == "service.name" {
			serviceName = attr.Value.AsString()
		}
	}
	assert.Equal(t, "vocabs-sync-test", serviceName)
	require.NoError(t, sdkTP.Shutdown(ctx))
}

func TestTracerProviderOptions(t *testing.T) {
	t.Parallel()

	cfg := &tracerProviderConfig{}
	tc := &TracingConfig{Enabled: true}

	WithTracerServiceName("svc")(cfg)
	WithTracerServiceVersion("2.0.0")(cfg)
	WithTracingConfig(tc)(cfg)
	WithTracerEndpoint("otel:4318")(cfg)
	WithTracerInsecure(true)(cfg)

	assert.Equal(t, "svc", cfg.serviceName)
	assert.Equal(t, "2.0.0", cfg.serviceVersion)
	assert.Same(t, tc, cfg.tracingConfig)
	assert.Equal(t, "otel:4318", cfg.endpoint)
	assert.True(t, cfg.insecure)
}
