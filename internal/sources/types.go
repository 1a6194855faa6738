package sources

import (
	"fmt"

	"github.com/elter-ri/vocabs-sync/internal/config"
)

// SourceEntry maps one remote RDF document to the named graph it replaces
type SourceEntry struct {
	// URI is where the document is fetched from
	URI string

	// Graph is the IRI of the target named graph
	Graph string

	// Format is the serialization of the document
	Format Format
}

// ContentType returns the MIME type the document is published with
func (e SourceEntry) ContentType() string {
	return e.Format.ContentType()
}

// String implements fmt.Stringer
func (e SourceEntry) String() string {
	return fmt.Sprintf("%s -> %s", e.URI, e.Graph)
}

// Registry is the immutable, ordered list of entries synchronized on every run
type Registry struct {
	entries []SourceEntry
}

// NewRegistry validates entries and returns a registry preserving their order.
// Entries without a format get one inferred from their URI.
func NewRegistry(entries ...SourceEntry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("at least one source entry is required")
	}

	seen := make(map[string]bool, len(entries))
	copied := make([]SourceEntry, 0, len(entries))
	for i, entry := range entries {
		if entry.URI == "" {
			return nil, fmt.Errorf("entry[%d]: uri is required", i)
		}
		if entry.Graph == "" {
			return nil, fmt.Errorf("entry[%d] (%s): graph is required", i, entry.URI)
		}
		if seen[entry.URI] {
			return nil, fmt.Errorf("entry[%d]: duplicate uri '%s'", i, entry.URI)
		}
		seen[entry.URI] = true

		if entry.Format == "" {
			entry.Format = DetectFormat(entry.URI)
		} else if _, ok := GetFormatInfo(entry.Format); !ok {
			return nil, fmt.Errorf("entry[%d] (%s): unsupported format '%s'", i, entry.URI, entry.Format)
		}
		copied = append(copied, entry)
	}

	return &Registry{entries: copied}, nil
}

// NewRegistryFromConfig builds a registry from the configured sources
func NewRegistryFromConfig(sources []config.SourceConfig) (*Registry, error) {
	entries := make([]SourceEntry, 0, len(sources))
	for _, src := range sources {
		entries = append(entries, SourceEntry{
			URI:    src.URI,
			Graph:  src.Graph,
			Format: Format(src.Format),
		})
	}
	return NewRegistry(entries...)
}

// Entries returns a copy of the entries in registry order
func (r *Registry) Entries() []SourceEntry {
	out := make([]SourceEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of entries
func (r *Registry) Len() int {
	return len(r.entries)
}
