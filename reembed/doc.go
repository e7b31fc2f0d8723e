// Package reembed recomputes the vectors of every record in a store with
// the configured embedder.
//
// Records are visited in insertion order, a batch at a time, and each batch
// is enriched sequentially before it is written back. Records that cannot be
// embedded are saved without a vector so the store never keeps a vector
// produced by a different model.
package reembed
