package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

func TestNewMeterProvider(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       func() []MeterProviderOption
		expectNoOp bool
	}{
		{
			name:       "no config",
			opts:       func() []MeterProviderOption { return nil },
			expectNoOp: true,
		},
		{
			name: "metrics disabled",
			opts: func() []MeterProviderOption {
				return []MeterProviderOption{WithMetricsConfig(&MetricsConfig{Enabled: false})}
			},
			expectNoOp: true,
		},
		{
			name: "otlp push",
			opts: func() []MeterProviderOption {
				return []MeterProviderOption{
					WithMetricsConfig(&MetricsConfig{Enabled: true}),
					WithMeterInsecure(true),
				}
			},
		},
		{
			name: "prometheus pull",
			opts: func() []MeterProviderOption {
				return []MeterProviderOption{
					WithMetricsConfig(&MetricsConfig{Enabled: true, Prometheus: true}),
					WithPrometheusRegisterer(prometheus.NewRegistry()),
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			mp, err := NewMeterProvider(ctx, tt.opts()...)
			require.NoError(t, err)
			require.NotNil(t, mp)

			if tt.expectNoOp {
				_, ok := mp.(noop.MeterProvider)
				assert.True(t, ok, "expected no-op meter provider")
				return
			}
			sdkMP, ok := mp.(*sdkmetric.MeterProvider)
			require.True(t, ok, "expected SDK meter provider")
			// No collector runs in tests, so the final flush may fail
			_ = sdkMP.Shutdown(ctx)
		})
	}
}

func TestNewMeterProvider_PrometheusRegistersCollector(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	mp, err := NewMeterProvider(ctx,
		WithMetricsConfig(&MetricsConfig{Enabled: true, Prometheus: true}),
		WithPrometheusRegisterer(reg),
	)
	require.NoError(t, err)
	defer func() { _ = mp.(*sdkmetric.MeterProvider).Shutdown(ctx) }()

	metrics, err := NewSyncMetrics(mp)
	require.NoError(t, err)
	metrics.RecordEntryResult(ctx, "http://vocabs.lter-europe.net/EnvThes/", "success", "success")

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "vocabs_sync_entry_results") {
			found = true
		}
	}
	assert.True(t, found, "expected the entry results counter to be exposed")
}

func TestMeterProviderOptions(t *testing.T) {
	t.Parallel()

	cfg := &meterProviderConfig{}
	mc := &MetricsConfig{Enabled: true}
	reader := sdkmetric.NewManualReader()

	WithMeterServiceName("svc")(cfg)
	WithMeterServiceVersion("2.0.0")(cfg)
	WithMetricsConfig(mc)(cfg)
	WithMeterEndpoint("otel:4318")(cfg)
	WithMeterInsecure(true)(cfg)
	WithMetricReader(reader)(cfg)

	assert.Equal(t, "svc", cfg.serviceName)
	assert.Equal(t, "2.0.0", cfg.serviceVersion)
	assert.Same(t, mc, cfg.metricsConfig)
	assert.Equal(t, "otel:4318", cfg.endpoint)
	assert.True(t, cfg.insecure)
	assert.Equal(t, sdkmetric.Reader(reader), cfg.reader)
}
