package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/dataprep/ai"
	"github.com/poiesic/dataprep/core"
)

// SkipReason explains why a row was left without a vector.
type SkipReason int

const (
	// SkipInvalidMetadata means the metadata blob is not a JSON object.
	SkipInvalidMetadata SkipReason = iota + 1
	// SkipMissingText means the metadata has no text to embed.
	SkipMissingText
	// SkipEmbeddingFailed means the embedder returned an error or an unusable vector.
	SkipEmbeddingFailed
	// SkipCancelled means the context was done before the row was reached.
	SkipCancelled
)

func (r SkipReason) String() string {
	switch r {
	case SkipInvalidMetadata:
		return "invalid_metadata"
	case SkipMissingText:
		return "missing_text"
	case SkipEmbeddingFailed:
		return "embedding_failed"
	case SkipCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("SkipReason(%d)", int(r))
	}
}

// SkippedRow records a row that was kept without a vector.
type SkippedRow struct {
	Index  int
	ID     string
	Reason SkipReason
	Err    error
}

// Result is the outcome of an enrichment run.
type Result struct {
	// Table has one record per input record, in input order.
	Table core.EnrichedTable

	// Skipped lists the rows left without a vector, in input order.
	Skipped []SkippedRow
}

// Complete returns only the records that received a vector.
func (r *Result) Complete() core.EnrichedTable {
	return r.Table.Complete()
}

// Option configures an enrichment run.
type Option func(*enricher)

type enricher struct {
	observer  Observer
	normalize bool
	logger    *slog.Logger
}

// WithObserver sets the observer notified of progress.
func WithObserver(observer Observer) Option {
	return func(e *enricher) {
		if observer == nil {
			observer = nopObserver{}
		}
		e.observer = observer
	}
}

// WithNormalize scales every vector to unit length before attaching it.
// Default is false.
func WithNormalize(normalize bool) Option {
	return func(e *enricher) {
		e.normalize = normalize
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *enricher) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// EnrichWithEmbeddings attaches an embedding vector to every record of table
// whose metadata text can be embedded.
//
// Rows are processed one at a time, in order. A row whose metadata cannot be
// decoded, whose text is empty, or whose embedding call fails is kept without
// a vector and listed in Result.Skipped. Failed calls are never retried. Once
// ctx is done the remaining rows are skipped with SkipCancelled.
//
// A nil table or embedder is logged and reported as ErrTableRequired or
// ErrEmbedderRequired with a nil Result.
func EnrichWithEmbeddings(ctx context.Context, table core.NormalizedTable, embedder ai.Embedder, opts ...Option) (*Result, error) {
	e := &enricher{
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	logger := e.logger.With("component", "enricher")

	if table == nil {
		logger.Error("enrichment requested without a table")
		return nil, ErrTableRequired
	}
	if embedder == nil {
		logger.Error("enrichment requested without an embedder")
		return nil, ErrEmbedderRequired
	}

	total := len(table)
	result := &Result{Table: core.NewEnrichedTable(table)}

	logger.Info("enriching records", "records", total)
	e.observer.Observe(Event{Kind: EventStart, Index: -1, Total: total})

	for i := range result.Table {
		record := &result.Table[i]

		reason, err := e.enrich(ctx, embedder, record)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedRow{
				Index:  i,
				ID:     record.ID,
				Reason: reason,
				Err:    err,
			})
			if reason != SkipCancelled {
				logger.Warn("skipping record", "id", record.ID, "index", i, "reason", reason, "err", err)
			}
			e.observer.Observe(Event{Kind: EventSkip, Index: i, Total: total, ID: record.ID, Err: err})
			continue
		}

		logger.Debug("record enriched", "id", record.ID, "index", i, "dims", len(record.Values))
		e.observer.Observe(Event{Kind: EventRow, Index: i, Total: total, ID: record.ID})
	}

	if err := ctx.Err(); err != nil {
		logger.Warn("enrichment cancelled", "err", err)
	}
	logger.Info("enrichment finished",
		"records", total,
		"embedded", total-len(result.Skipped),
		"skipped", len(result.Skipped))
	e.observer.Observe(Event{Kind: EventFinish, Index: -1, Total: total})

	return result, nil
}

// enrich attaches a vector to record or reports why it could not.
func (e *enricher) enrich(ctx context.Context, embedder ai.Embedder, record *core.EnrichedRecord) (SkipReason, error) {
	if err := ctx.Err(); err != nil {
		return SkipCancelled, err
	}

	meta, err := core.ValidateNormalizedRecord(&core.NormalizedRecord{ID: record.ID, Metadata: record.Metadata})
	if err != nil {
		if errors.Is(err, core.ErrEmptyText) {
			return SkipMissingText, err
		}
		return SkipInvalidMetadata, err
	}

	vector, err := embedder.EmbedText(ctx, meta.Text)
	if err != nil {
		return SkipEmbeddingFailed, fmt.Errorf("embed %s: %w", record.ID, err)
	}
	if err := core.ValidateVector(vector); err != nil {
		return SkipEmbeddingFailed, err
	}

	if e.normalize {
		vector = core.NormalizeVector(vector)
	}
	record.Values = vector
	return 0, nil
}
