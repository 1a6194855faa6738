// Package otel provides OpenTelemetry span helpers shared by the sync pipeline and the HTTP layer.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys used on sync spans
const (
	AttrRunID        = attribute.Key("sync.run_id")
	AttrTrigger      = attribute.Key("sync.trigger")
	AttrEntryCount   = attribute.Key("sync.entry_count")
	AttrFailedCount  = attribute.Key("sync.failed_count")
	AttrDocumentURI  = attribute.Key("vocab.document_uri")
	AttrGraph        = attribute.Key("vocab.graph")
	AttrFormat       = attribute.Key("vocab.format")
	AttrPayloadBytes = attribute.Key("vocab.payload_bytes")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// The status description stays generic so store credentials or response
// bodies never end up in it; details are kept in the span event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
