package core

import (
	"encoding/binary"

	"github.com/go-crypt/x/blake2b"
)

// Digest is a content fingerprint of a record's metadata blob.
type Digest uint64

// DigestFromMetadata computes a deterministic digest of a metadata blob using BLAKE2b.
// Identical metadata always produces identical digests.
func DigestFromMetadata(metadata string) Digest {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(metadata))
	sum := h.Sum(nil)
	return Digest(binary.LittleEndian.Uint64(sum))
}

// RawRow is a single row read from a tabular source.
// Only the columns the pipeline cares about are retained.
type RawRow struct {
	ID       string // Kept as text to preserve leading zeros and mixed formats
	TinyLink string
	Content  string // Empty when the cell is missing or blank
}

// NormalizedRecord is a validated row reduced to an identifier and a JSON metadata blob.
type NormalizedRecord struct {
	ID       string
	Metadata string // JSON object {"source": ..., "text": ...}
}

// EnrichedRecord is a NormalizedRecord plus an optional embedding vector.
type EnrichedRecord struct {
	ID       string
	Metadata string
	Values   []float32 // nil when enrichment failed or was skipped
}

// HasValues reports whether the record carries an embedding vector.
func (r *EnrichedRecord) HasValues() bool {
	return len(r.Values) > 0
}

// NormalizedTable is an ordered sequence of normalized records.
type NormalizedTable []NormalizedRecord

// EnrichedTable is an ordered sequence of enriched records.
type EnrichedTable []EnrichedRecord

// NewEnrichedTable copies a normalized table into an enriched table with no vectors attached.
// Row order is preserved.
func NewEnrichedTable(table NormalizedTable) EnrichedTable {
	enriched := make(EnrichedTable, len(table))
	for i, record := range table {
		enriched[i] = EnrichedRecord{
			ID:       record.ID,
			Metadata: record.Metadata,
		}
	}
	return enriched
}

// Embedded returns the number of records carrying a vector.
func (t EnrichedTable) Embedded() int {
	n := 0
	for i := range t {
		if t[i].HasValues() {
			n++
		}
	}
	return n
}

// Complete returns the records carrying a vector, in table order.
func (t EnrichedTable) Complete() EnrichedTable {
	complete := make(EnrichedTable, 0, t.Embedded())
	for _, record := range t {
		if record.HasValues() {
			complete = append(complete, record)
		}
	}
	return complete
}

// StoredRecord is an enriched record as persisted by a record repository.
type StoredRecord struct {
	ID        string
	Metadata  string
	Values    []float32
	Digest    Digest
	Position  uint64 // Insertion order; assigned on first save
	UpdatedAt int64  // Unix microseconds
}

// HasValues reports whether the record carries an embedding vector.
func (r *StoredRecord) HasValues() bool {
	return len(r.Values) > 0
}

// Enriched returns the record without its storage bookkeeping.
func (r *StoredRecord) Enriched() EnrichedRecord {
	return EnrichedRecord{ID: r.ID, Metadata: r.Metadata, Values: r.Values}
}
