// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/dataprep/ai"
	"github.com/poiesic/dataprep/core"
	"github.com/poiesic/dataprep/ingestion"
	"github.com/poiesic/dataprep/progress"
	"github.com/poiesic/dataprep/storage"
)

var (
	// ErrRepositoryRequired is returned when no repository is supplied.
	ErrRepositoryRequired = errors.New("reembed: repository is required")
	// ErrEmbedderRequired is returned when no embedder is supplied.
	ErrEmbedderRequired = errors.New("reembed: embedder is required")
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// Normalize scales every new vector to unit length
	Normalize bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
	}
}

// Summary describes a finished reembedding run.
type Summary struct {
	Total    int
	Embedded int
	Skipped  []ingestion.SkippedRow // Index is the record's position in the run
	Elapsed  time.Duration
}

// Reembedder recomputes the vector of every record in a repository.
type Reembedder struct {
	repo     storage.RecordRepository
	embedder ai.Embedder
	config   *Config
	progress io.Writer
	iterator *RecordIterator
	logger   *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.RecordRepository, embedder ai.Embedder, config *Config, progress io.Writer) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Reembedder{
		repo:     repo,
		embedder: embedder,
		config:   config,
		progress: progress,
		iterator: NewRecordIterator(repo, config.BatchSize),
		logger:   slog.Default().With("component", "reembedder"),
	}
}

// Run reembeds every record in the repository.
//
// On cancellation the batch in flight is saved up to the last record reached
// and the context error is returned along with the partial summary.
func (r *Reembedder) Run(ctx context.Context) (*Summary, error) {
	if r.repo == nil {
		return nil, ErrRepositoryRequired
	}
	if r.embedder == nil {
		return nil, ErrEmbedderRequired
	}

	total, _, err := r.repo.CountRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	summary := &Summary{Total: total}
	if total == 0 {
		fmt.Fprintf(r.progress, "No records found in database (0 records)\n")
		return summary, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d records (batch size: %d)\n",
		total, r.iterator.batchSize)
	r.logger.Info("reembedding records", "records", total, "batch_size", r.iterator.batchSize)

	tracker := progress.NewTracker(r.progress, r.config.ReportInterval)
	tracker.Start(total)

	// The tracker spans the whole run, so per-batch start and finish are dropped.
	rows := ingestion.ObserverFunc(func(e ingestion.Event) {
		if e.Kind == ingestion.EventRow || e.Kind == ingestion.EventSkip {
			tracker.Observe(e)
		}
	})

	offset := 0
	err = r.iterator.ForEach(ctx, func(records []*core.StoredRecord) error {
		result, err := r.reembedBatch(ctx, records, rows)
		if result == nil {
			return err
		}
		summary.Embedded += result.Table.Embedded()
		for _, skipped := range result.Skipped {
			if skipped.Reason == ingestion.SkipCancelled {
				continue
			}
			skipped.Index += offset
			summary.Skipped = append(summary.Skipped, skipped)
		}
		offset += len(records)
		return err
	})

	tracker.Finish()
	summary.Elapsed = tracker.Elapsed()

	if err != nil {
		r.logger.Error("reembedding stopped", "err", err, "embedded", summary.Embedded)
		return summary, err
	}

	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d records in %v (%.1f records/sec)\n",
		total, summary.Elapsed.Round(time.Second), float64(total)/summary.Elapsed.Seconds())
	r.logger.Info("reembedding finished",
		"records", total,
		"embedded", summary.Embedded,
		"skipped", len(summary.Skipped))

	return summary, nil
}

// reembedBatch enriches one batch and writes it back. Records never reached
// because ctx ended keep their stored vector.
func (r *Reembedder) reembedBatch(ctx context.Context, records []*core.StoredRecord, observer ingestion.Observer) (*ingestion.Result, error) {
	table := make(core.NormalizedTable, len(records))
	for i, record := range records {
		table[i] = core.NormalizedRecord{ID: record.ID, Metadata: record.Metadata}
	}

	result, err := ingestion.EnrichWithEmbeddings(ctx, table, r.embedder,
		ingestion.WithNormalize(r.config.Normalize),
		ingestion.WithObserver(observer))
	if err != nil {
		return nil, err
	}

	cancelled := make(map[int]bool)
	for _, skipped := range result.Skipped {
		if skipped.Reason == ingestion.SkipCancelled {
			cancelled[skipped.Index] = true
		}
	}

	toSave := make([]core.EnrichedRecord, 0, len(result.Table))
	for i, record := range result.Table {
		if !cancelled[i] {
			toSave = append(toSave, record)
		}
	}

	// Saving uses a fresh context so a cancelled run keeps the work already done.
	if _, err := r.repo.SaveRecords(context.WithoutCancel(ctx), toSave...); err != nil {
		return nil, fmt.Errorf("failed to save batch: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}
