// Package sources describes the vocabulary documents that are synchronized and
// retrieves them.
//
// A Registry is the ordered, immutable list of SourceEntry values, each
// mapping a remote RDF document to the named graph it replaces in the triple
// store. Registries are built from configuration so the mapping can change
// without a code change.
//
// Fetcher abstracts document retrieval. HTTPFetcher performs a plain GET
// through httpclient.Client, follows redirects, never caches and never
// retries; every call is bounded by its own timeout.
package sources
