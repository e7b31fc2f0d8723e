package ingestion

import "errors"

var (
	// ErrTableRequired is returned when no table is provided.
	ErrTableRequired = errors.New("normalized table required")

	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
