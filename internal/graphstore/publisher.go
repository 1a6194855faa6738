// Package graphstore writes fetched vocabulary documents into named graphs of a
// triple store through the SPARQL 1.1 Graph Store HTTP Protocol.
package graphstore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/elter-ri/vocabs-sync/internal/httpclient"
	"github.com/elter-ri/vocabs-sync/internal/otel"
	"github.com/elter-ri/vocabs-sync/internal/sources"
)

const (
	// DefaultPublishTimeout bounds a publish when no timeout is configured
	DefaultPublishTimeout = 120 * time.Second

	// maxLoggedResponse caps how much of the store's reply is logged
	maxLoggedResponse = 256
)

//go:generate mockgen -destination=mocks/mock_publisher.go -package=mocks -source=publisher.go Publisher

// Publisher replaces the contents of a named graph with a document
type Publisher interface {
	// Publish sends payload to the graph of entry. It never retries.
	Publish(ctx context.Context, entry sources.SourceEntry, payload []byte) error
}

// GSPPublisher publishes to a Graph Store Protocol endpoint such as Fuseki's /<dataset>/data
type GSPPublisher struct {
	client   httpclient.Client
	endpoint *url.URL
	method   string
	username string
	password string
	timeout  time.Duration
	tracer   trace.Tracer
}

// Option configures a GSPPublisher
type Option func(*GSPPublisher) error

// WithMethod selects PUT (the default) or POST.
// POST merges into the graph instead of replacing it.
func WithMethod(method string) Option {
	return func(p *GSPPublisher) error {
		switch m := strings.ToUpper(method); m {
		case "":
			return nil
		case http.MethodPost, http.MethodPut:
			p.method = m
			return nil
		default:
			return fmt.Errorf("unsupported publish method: %s", method)
		}
	}
}

// WithBasicAuth sets the store credentials
func WithBasicAuth(username, password string) Option {
	return func(p *GSPPublisher) error {
		p.username = username
		p.password = password
		return nil
	}
}

// WithTimeout sets the per-call timeout
func WithTimeout(timeout time.Duration) Option {
	return func(p *GSPPublisher) error {
		if timeout < 0 {
			return fmt.Errorf("timeout must not be negative")
		}
		if timeout > 0 {
			p.timeout = timeout
		}
		return nil
	}
}

// WithTracer sets the tracer used for publish spans
func WithTracer(tracer trace.Tracer) Option {
	return func(p *GSPPublisher) error {
		p.tracer = tracer
		return nil
	}
}

// NewGSPPublisher creates a publisher writing to endpoint
func NewGSPPublisher(client httpclient.Client, endpoint string, opts ...Option) (*GSPPublisher, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid store endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("store endpoint must be an http(s) URL, got %q", endpoint)
	}

	p := &GSPPublisher{
		client:   client,
		endpoint: u,
		method:   http.MethodPut,
		timeout:  DefaultPublishTimeout,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// GraphURL returns the request URL addressing graph, keeping any query already on the endpoint
func (p *GSPPublisher) GraphURL(graph string) string {
	u := *p.endpoint
	q := u.Query()
	q.Set("graph", graph)
	u.RawQuery = q.Encode()
	return u.String()
}

// Publish uploads payload to the entry's named graph
func (p *GSPPublisher) Publish(ctx context.Context, entry sources.SourceEntry, payload []byte) error {
	ctx, span := otel.StartSpan(ctx, p.tracer, "graphstore.Publish",
		trace.WithAttributes(
			otel.AttrGraph.String(entry.Graph),
			otel.AttrFormat.String(string(entry.Format)),
			otel.AttrPayloadBytes.Int(len(payload)),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	target := p.GraphURL(entry.Graph)
	resp, err := p.client.Do(ctx, p.method, target, payload,
		httpclient.WithContentType(entry.ContentType()),
		httpclient.WithBasicAuth(p.username, p.password),
	)
	if err != nil {
		otel.RecordError(span, err)
		slog.ErrorContext(ctx, "Failed to upload graph",
			"graph", entry.Graph,
			"method", p.method,
			"error", err,
		)
		return fmt.Errorf("failed to publish graph %s: %w", entry.Graph, err)
	}

	slog.InfoContext(ctx, "Uploaded graph",
		"graph", entry.Graph,
		"method", p.method,
		"bytes", len(payload),
		"response", truncate(strings.TrimSpace(string(resp)), maxLoggedResponse),
	)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
