package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/elter-ri/vocabs-sync/internal/graphstore"
	"github.com/elter-ri/vocabs-sync/internal/otel"
	"github.com/elter-ri/vocabs-sync/internal/sources"
	"github.com/elter-ri/vocabs-sync/internal/telemetry"
)

//go:generate mockgen -destination=mocks/mock_engine.go -package=mocks -source=engine.go Engine

// Engine performs synchronization runs over the source registry
type Engine interface {
	// RunOnce fetches and publishes every registry entry once.
	// Per-entry failures are reported in the outcome; the error is
	// non-nil only when the run as a whole failed.
	RunOnce(ctx context.Context) (*RunOutcome, error)
}

// defaultEngine is the default implementation of Engine
type defaultEngine struct {
	registry  *sources.Registry
	fetcher   sources.Fetcher
	publisher graphstore.Publisher

	tracer  trace.Tracer
	metrics *telemetry.SyncMetrics
	now     func() time.Time
}

// EngineOption configures the engine
type EngineOption func(*defaultEngine)

// WithTracer sets the tracer used for run and entry spans
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *defaultEngine) {
		e.tracer = tracer
	}
}

// WithSyncMetrics sets the metrics recorded for each entry
func WithSyncMetrics(metrics *telemetry.SyncMetrics) EngineOption {
	return func(e *defaultEngine) {
		e.metrics = metrics
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *defaultEngine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over registry
func NewEngine(
	registry *sources.Registry,
	fetcher sources.Fetcher,
	publisher graphstore.Publisher,
	opts ...EngineOption,
) Engine {
	e := &defaultEngine{
		registry:  registry,
		fetcher:   fetcher,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunOnce implements Engine
func (e *defaultEngine) RunOnce(ctx context.Context) (outcome *RunOutcome, err error) {
	trigger := TriggerFromContext(ctx)
	outcome = &RunOutcome{
		ID:        uuid.New(),
		Trigger:   trigger,
		StartedAt: e.now(),
	}

	entries := e.registry.Entries()
	ctx, span := otel.StartSpan(ctx, e.tracer, "sync.RunOnce",
		trace.WithAttributes(
			otel.AttrRunID.String(outcome.ID.String()),
			otel.AttrTrigger.String(string(trigger)),
			otel.AttrEntryCount.Int(len(entries)),
		),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRunFailed, r)
			otel.RecordError(span, err)
			slog.ErrorContext(ctx, "Sync run aborted",
				"run_id", outcome.ID.String(),
				"trigger", trigger,
				"panic", r,
			)
			outcome = nil
		}
	}()

	slog.InfoContext(ctx, "Starting sync run",
		"run_id", outcome.ID.String(),
		"trigger", trigger,
		"entries", len(entries),
	)

	outcome.Results = make([]EntryResult, 0, len(entries))
	for _, entry := range entries {
		outcome.Results = append(outcome.Results, e.syncEntry(ctx, entry))
	}
	outcome.FinishedAt = e.now()

	span.SetAttributes(otel.AttrFailedCount.Int(outcome.FailedCount()))
	return outcome, nil
}

// syncEntry fetches one document and, if that worked, publishes it
func (e *defaultEngine) syncEntry(ctx context.Context, entry sources.SourceEntry) EntryResult {
	ctx, span := otel.StartSpan(ctx, e.tracer, "sync.Entry",
		trace.WithAttributes(
			otel.AttrDocumentURI.String(entry.URI),
			otel.AttrGraph.String(entry.Graph),
			otel.AttrFormat.String(string(entry.Format)),
		),
	)
	defer span.End()

	start := e.now()
	result := EntryResult{
		Entry:         entry,
		FetchStatus:   FetchFailed,
		PublishStatus: PublishSkipped,
	}
	defer func() {
		result.Duration = e.now().Sub(start)
		e.metrics.RecordEntryResult(ctx, entry.Graph, string(result.FetchStatus), string(result.PublishStatus))
	}()

	payload, err := e.fetcher.Fetch(ctx, entry.URI)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		otel.RecordError(span, err)
		result.ErrorDetail = err.Error()
		slog.WarnContext(ctx, "Failed to fetch source document",
			"uri", entry.URI,
			"graph", entry.Graph,
			"error", err,
		)
		return result
	}
	result.FetchStatus = FetchSuccess
	result.Bytes = len(payload)
	span.SetAttributes(otel.AttrPayloadBytes.Int(len(payload)))

	if err := e.publisher.Publish(ctx, entry, payload); err != nil {
		err = fmt.Errorf("%w: %w", ErrPublishFailed, err)
		otel.RecordError(span, err)
		result.PublishStatus = PublishFailed
		result.ErrorDetail = err.Error()
		slog.WarnContext(ctx, "Failed to publish graph",
			"uri", entry.URI,
			"graph", entry.Graph,
			"error", err,
		)
		return result
	}
	result.PublishStatus = PublishSuccess
	e.metrics.RecordGraphBytes(ctx, entry.Graph, len(payload))

	slog.InfoContext(ctx, "Synchronized graph",
		"uri", entry.URI,
		"graph", entry.Graph,
		"bytes", len(payload),
	)
	return result
}
