package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetricsMeterName is the name used for the sync metrics meter
const SyncMetricsMeterName = "github.com/elter-ri/vocabs-sync/sync"

// SyncMetrics holds the instruments recorded around sync runs.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	runDuration  metric.Float64Histogram
	lockWait     metric.Float64Histogram
	entryResults metric.Int64Counter
	graphBytes   metric.Int64Gauge
}

// NewSyncMetrics creates the sync instruments. If provider is nil, it returns nil.
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	runDuration, err := meter.Float64Histogram(
		"vocabs_sync_run_duration_seconds",
		metric.WithDescription("Duration of sync runs in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	lockWait, err := meter.Float64Histogram(
		"vocabs_sync_lock_wait_seconds",
		metric.WithDescription("Time spent waiting for the run lock in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 1, 5, 10, 30, 60, 300),
	)
	if err != nil {
		return nil, err
	}

	entryResults, err := meter.Int64Counter(
		"vocabs_sync_entry_results_total",
		metric.WithDescription("Per-graph sync results"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	graphBytes, err := meter.Int64Gauge(
		"vocabs_sync_graph_payload_bytes",
		metric.WithDescription("Size of the last document published to each graph"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		runDuration:  runDuration,
		lockWait:     lockWait,
		entryResults: entryResults,
		graphBytes:   graphBytes,
	}, nil
}

// RecordRunDuration records a finished run. status is the run status or "error" for a run-level failure.
func (m *SyncMetrics) RecordRunDuration(ctx context.Context, trigger, status string, duration time.Duration) {
	if m == nil || m.runDuration == nil {
		return
	}
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("status", status),
	))
}

// RecordLockWait records how long a run request waited for the run lock
func (m *SyncMetrics) RecordLockWait(ctx context.Context, trigger string, wait time.Duration) {
	if m == nil || m.lockWait == nil {
		return
	}
	m.lockWait.Record(ctx, wait.Seconds(), metric.WithAttributes(
		attribute.String("trigger", trigger),
	))
}

// RecordEntryResult counts the result of one registry entry
func (m *SyncMetrics) RecordEntryResult(ctx context.Context, graph, fetchStatus, publishStatus string) {
	if m == nil || m.entryResults == nil {
		return
	}
	m.entryResults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("graph", graph),
		attribute.String("fetch_status", fetchStatus),
		attribute.String("publish_status", publishStatus),
	))
}

// RecordGraphBytes records the size of the document last published to graph
func (m *SyncMetrics) RecordGraphBytes(ctx context.Context, graph string, size int) {
	if m == nil || m.graphBytes == nil {
		return
	}
	m.graphBytes.Record(ctx, int64(size), metric.WithAttributes(
		attribute.String("graph", graph),
	))
}
