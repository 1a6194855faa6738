package sources

import (
	"net/url"
	"path"
	"strings"
)

// Format identifies an RDF serialization
type Format string

// Supported RDF serializations
const (
	FormatTurtle   Format = "turtle"
	FormatRDFXML   Format = "rdfxml"
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
	FormatJSONLD   Format = "jsonld"
	FormatTriG     Format = "trig"
	FormatN3       Format = "n3"
)

// FormatInfo provides metadata about an RDF serialization
type FormatInfo struct {
	Name Format

	// MIMEType is sent as Content-Type when the document is published
	MIMEType string

	// Extensions are the file extensions (with dot) the format is recognized by
	Extensions []string
}

// FormatRegistry contains metadata for all supported formats
var FormatRegistry = map[Format]FormatInfo{
	FormatTurtle: {
		Name:       FormatTurtle,
		MIMEType:   "text/turtle",
		Extensions: []string{".ttl"},
	},
	FormatRDFXML: {
		Name:       FormatRDFXML,
		MIMEType:   "application/rdf+xml",
		Extensions: []string{".rdf", ".owl", ".xml"},
	},
	FormatNTriples: {
		Name:       FormatNTriples,
		MIMEType:   "application/n-triples",
		Extensions: []string{".nt"},
	},
	FormatNQuads: {
		Name:       FormatNQuads,
		MIMEType:   "application/n-quads",
		Extensions: []string{".nq"},
	},
	FormatJSONLD: {
		Name:       FormatJSONLD,
		MIMEType:   "application/ld+json",
		Extensions: []string{".jsonld"},
	},
	FormatTriG: {
		Name:       FormatTriG,
		MIMEType:   "application/trig",
		Extensions: []string{".trig"},
	},
	FormatN3: {
		Name:       FormatN3,
		MIMEType:   "text/n3",
		Extensions: []string{".n3"},
	},
}

// GetFormatInfo returns metadata for a format
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// DetectFormat infers the serialization from the extension of the URI path.
// Unknown or missing extensions yield FormatTurtle.
func DetectFormat(uri string) Format {
	p := uri
	if u, err := url.Parse(uri); err == nil {
		p = u.Path
	}
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return FormatTurtle
	}
	for name, info := range FormatRegistry {
		for _, candidate := range info.Extensions {
			if candidate == ext {
				return name
			}
		}
	}
	return FormatTurtle
}

// ContentType returns the MIME type of the format, text/turtle for unknown formats
func (f Format) ContentType() string {
	if info, ok := FormatRegistry[f]; ok {
		return info.MIMEType
	}
	return FormatRegistry[FormatTurtle].MIMEType
}
