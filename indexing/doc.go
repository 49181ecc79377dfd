// Package indexing builds the vector index from classified messages.
//
// The Exporter reads only messages whose safety status is safe and whose
// content has at least core.MinIndexableContentLength characters. It embeds
// them in batches on a worker pool, retrying failed requests with
// exponential backoff, and normalizes every vector to unit length.
//
// The Indexer replaces the whole collection with the exported records on
// every run, so a message reclassified away from safe disappears on the
// next rebuild.
package indexing
