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

// Package dataprep composes the preparation pipeline: load and normalize a
// tabular dataset, enrich it with embeddings, then hand the result to the
// configured sinks.
package dataprep

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/poiesic/dataprep/ai"
	"github.com/poiesic/dataprep/ai/openai"
	"github.com/poiesic/dataprep/dataset"
	"github.com/poiesic/dataprep/ingestion"
	"github.com/poiesic/dataprep/storage"
	"github.com/poiesic/dataprep/storage/parquet"
)

// Preparer runs the load, enrich and persist stages over a single source.
type Preparer struct {
	embedder    ai.Embedder
	store       storage.RecordRepository
	parquetPath string
	observer    ingestion.Observer
	normalize   bool
	loadOpts    []dataset.Option
	logger      *slog.Logger
}

// Option configures a Preparer.
type Option func(*preparerOptions)

type preparerOptions struct {
	Preparer
	aiConfig *ai.Config
}

// WithEmbedder sets the embedder used for enrichment.
// When unset, an OpenAI-compatible embedder is built from the AI config.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *preparerOptions) {
		o.embedder = embedder
	}
}

// WithAIConfig sets the configuration for the default embedder.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) Option {
	return func(o *preparerOptions) {
		o.aiConfig = config
	}
}

// WithStore saves every enriched record to store after enrichment.
// The Preparer does not close the store.
func WithStore(store storage.RecordRepository) Option {
	return func(o *preparerOptions) {
		o.store = store
	}
}

// WithParquet exports the enriched table to a Parquet file at path.
func WithParquet(path string) Option {
	return func(o *preparerOptions) {
		o.parquetPath = path
	}
}

// WithObserver sets the observer notified of enrichment progress.
func WithObserver(observer ingestion.Observer) Option {
	return func(o *preparerOptions) {
		o.observer = observer
	}
}

// WithNormalize scales vectors to unit length before they are attached.
func WithNormalize(normalize bool) Option {
	return func(o *preparerOptions) {
		o.normalize = normalize
	}
}

// WithLoadOptions passes options through to the dataset loader.
func WithLoadOptions(opts ...dataset.Option) Option {
	return func(o *preparerOptions) {
		o.loadOpts = append(o.loadOpts, opts...)
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *preparerOptions) {
		o.logger = logger
	}
}

// NewPreparer creates a Preparer.
func NewPreparer(opts ...Option) (*Preparer, error) {
	options := &preparerOptions{aiConfig: ai.DefaultConfig()}
	for _, opt := range opts {
		opt(options)
	}

	p := options.Preparer
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.embedder == nil {
		embedder, err := openai.NewEmbedder(options.aiConfig)
		if err != nil {
			return nil, err
		}
		p.embedder = embedder
	}
	return &p, nil
}

// Report summarizes a preparation run.
type Report struct {
	RunID    string
	Result   *ingestion.Result
	Stored   int    // Records written to the store
	Exported string // Parquet path, if exported
}

// Run loads up to maxRows rows from path, enriches them and writes the result
// to the configured sinks.
//
// Load failures are returned as *dataset.LoadError. Rows that cannot be
// enriched do not fail the run; they are listed in Report.Result.Skipped.
// Sink failures are returned together with the report built so far.
func (p *Preparer) Run(ctx context.Context, path string, maxRows int) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logger := p.logger.With("component", "preparer", "run", report.RunID)

	logger.Info("starting preparation run", "path", path, "max_rows", maxRows)

	loadOpts := append([]dataset.Option{dataset.WithLogger(logger)}, p.loadOpts...)
	table, err := dataset.ImportAndNormalize(path, maxRows, loadOpts...)
	if err != nil {
		return nil, err
	}

	enrichOpts := []ingestion.Option{
		ingestion.WithLogger(logger),
		ingestion.WithNormalize(p.normalize),
	}
	if p.observer != nil {
		enrichOpts = append(enrichOpts, ingestion.WithObserver(p.observer))
	}
	result, err := ingestion.EnrichWithEmbeddings(ctx, table, p.embedder, enrichOpts...)
	if err != nil {
		return nil, err
	}
	report.Result = result

	if p.store != nil {
		stored, err := p.store.SaveRecords(ctx, result.Table...)
		report.Stored = len(stored)
		if err != nil {
			logger.Error("failed to save records", "err", err)
			return report, fmt.Errorf("save records: %w", err)
		}
		logger.Info("records saved", "records", report.Stored)
	}

	if p.parquetPath != "" {
		if err := parquet.Export(p.parquetPath, result.Table); err != nil {
			logger.Error("failed to export parquet", "path", p.parquetPath, "err", err)
			return report, err
		}
		report.Exported = p.parquetPath
		logger.Info("parquet exported", "path", p.parquetPath, "records", len(result.Table))
	}

	logger.Info("preparation run finished",
		"records", len(result.Table),
		"embedded", result.Table.Embedded(),
		"skipped", len(result.Skipped))
	return report, nil
}
