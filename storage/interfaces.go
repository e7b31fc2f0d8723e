package storage

import (
	"context"

	"github.com/poiesic/dataprep/core"
)

// SimilarRecord is a stored record scored against a query vector.
type SimilarRecord struct {
	Record *core.StoredRecord
	Score  float32 // Cosine similarity in [-1, 1]
}

// RecordRepository persists enriched records keyed by their id.
// Implementations must be thread-safe and support concurrent access.
type RecordRepository interface {
	// SaveRecords stores enriched records, replacing any record with the same id.
	// A new record is assigned the next insertion position; a replaced record
	// keeps its original position. Records without values are stored too.
	// Returns the stored form of each record, in input order.
	SaveRecords(ctx context.Context, records ...core.EnrichedRecord) ([]*core.StoredRecord, error)

	// GetRecord retrieves a single record by id.
	// Returns ErrNotFound if the record doesn't exist and ErrCorruptRecord if
	// its metadata no longer matches the stored digest.
	GetRecord(ctx context.Context, id string) (*core.StoredRecord, error)

	// GetRecords retrieves multiple records by id.
	// Returns only the records that exist (no error for missing records).
	GetRecords(ctx context.Context, ids ...string) ([]*core.StoredRecord, error)

	// CountRecords returns the number of stored records and how many carry values.
	CountRecords(ctx context.Context) (total int, embedded int, err error)

	// ListRecords calls fn for every record in insertion order.
	// Iteration stops at the first error returned by fn. Records failing
	// their integrity check are still visited.
	ListRecords(ctx context.Context, fn func(*core.StoredRecord) error) error

	// FindSimilar returns records whose cosine similarity to vector is at least
	// minSimilarity, highest first, up to limit results. Records failing
	// their integrity check are left out.
	FindSimilar(ctx context.Context, vector []float32, minSimilarity float32, limit int) ([]*SimilarRecord, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
