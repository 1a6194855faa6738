package sources

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/elter-ri/vocabs-sync/internal/httpclient"
	"github.com/elter-ri/vocabs-sync/internal/otel"
)

// DefaultFetchTimeout bounds a fetch when no timeout is configured
const DefaultFetchTimeout = 60 * time.Second

//go:generate mockgen -destination=mocks/mock_fetcher.go -package=mocks -source=fetcher.go Fetcher

// Fetcher retrieves the raw bytes of a source document
type Fetcher interface {
	// Fetch downloads the document at uri. It never retries.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// HTTPFetcher fetches documents over HTTP(S)
type HTTPFetcher struct {
	client  httpclient.Client
	timeout time.Duration
	tracer  trace.Tracer
}

// HTTPFetcherOption configures an HTTPFetcher
type HTTPFetcherOption func(*HTTPFetcher)

// WithFetchTimeout sets the per-call timeout
func WithFetchTimeout(timeout time.Duration) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithFetchTracer sets the tracer used for fetch spans
func WithFetchTracer(tracer trace.Tracer) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.tracer = tracer
	}
}

// NewHTTPFetcher creates a fetcher on top of client
func NewHTTPFetcher(client httpclient.Client, opts ...HTTPFetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:  client,
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET on uri bounded by the fetch timeout
func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	ctx, span := otel.StartSpan(ctx, f.tracer, "sources.Fetch",
		trace.WithAttributes(otel.AttrDocumentURI.String(uri)),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	data, err := f.client.Get(ctx, uri)
	if err != nil {
		otel.RecordError(span, err)
		return nil, fmt.Errorf("failed to fetch %s: %w", uri, err)
	}

	span.SetAttributes(otel.AttrPayloadBytes.Int(len(data)))
	slog.DebugContext(ctx, "Fetched source document",
		"uri", uri,
		"bytes", len(data),
		"duration", time.Since(start).String(),
	)
	return data, nil
}
