package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		uri  string
		want Format
	}{
		{uri: "https://raw.githubusercontent.com/LTER-Europe/EnvThes/refs/heads/main/EnvThes.ttl", want: FormatTurtle},
		{uri: "https://example.org/vocab.RDF", want: FormatRDFXML},
		{uri: "https://example.org/ontology.owl", want: FormatRDFXML},
		{uri: "https://example.org/dump.nt?download=1", want: FormatNTriples},
		{uri: "https://example.org/dump.nq", want: FormatNQuads},
		{uri: "https://example.org/ctx.jsonld#frag", want: FormatJSONLD},
		{uri: "https://example.org/all.trig", want: FormatTriG},
		{uri: "https://example.org/rules.n3", want: FormatN3},
		{uri: "https://example.org/vocab", want: FormatTurtle},
		{uri: "https://example.org/vocab.csv", want: FormatTurtle},
		{uri: "https://example.org/", want: FormatTurtle},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, DetectFormat(tt.uri))
		})
	}
}

func TestFormat_ContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		format Format
		want   string
	}{
		{format: FormatTurtle, want: "text/turtle"},
		{format: FormatRDFXML, want: "application/rdf+xml"},
		{format: FormatNTriples, want: "application/n-triples"},
		{format: FormatNQuads, want: "application/n-quads"},
		{format: FormatJSONLD, want: "application/ld+json"},
		{format: FormatTriG, want: "application/trig"},
		{format: FormatN3, want: "text/n3"},
		{format: "unknown", want: "text/turtle"},
		{format: "", want: "text/turtle"},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.format.ContentType())
		})
	}
}

func TestFormatRegistryIsConsistent(t *testing.T) {
	t.Parallel()

	seen := map[string]Format{}
	for name, info := range FormatRegistry {
		assert.Equal(t, name, info.Name)
		assert.NotEmpty(t, info.MIMEType)
		for _, ext := range info.Extensions {
			other, dup := seen[ext]
			assert.False(t, dup, "extension %s claimed by %s and %s", ext, name, other)
			seen[ext] = name
		}
	}
}
