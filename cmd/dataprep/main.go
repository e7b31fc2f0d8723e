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

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/poiesic/dataprep"
	"github.com/poiesic/dataprep/ai"
	"github.com/poiesic/dataprep/ai/openai"
	"github.com/poiesic/dataprep/core"
	"github.com/poiesic/dataprep/dataset"
	"github.com/poiesic/dataprep/ingestion"
	"github.com/poiesic/dataprep/progress"
	"github.com/poiesic/dataprep/reembed"
	"github.com/poiesic/dataprep/storage"
	"github.com/poiesic/dataprep/storage/badger"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "dataprep",
		Usage: "Load, normalize and embed tabular text datasets",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "prepare",
				Usage:  "Load a dataset, embed every record and write the result",
				Action: prepareCommand,
				Flags: append(embeddingFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:     "input",
						Aliases:  []string{"i"},
						Usage:    "Path to the delimited source file (.csv, .tsv, optionally .gz/.zst/.lz4/.bz2)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-rows",
						Usage: "Read at most N data rows (negative reads all)",
						Value: dataset.Unbounded,
					},
					&cli.StringFlag{
						Name:  "delimiter",
						Usage: "Field delimiter (default: comma, tab for .tsv)",
					},
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Save records to the BadgerDB database at this directory",
					},
					&cli.StringFlag{
						Name:  "parquet",
						Usage: "Export records to this Parquet file",
					},
					&cli.StringFlag{
						Name:  "progress",
						Usage: "Progress display (bar, text, none)",
						Value: "text",
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report text progress every N records",
						Value: 100,
					},
					&cli.BoolFlag{
						Name:  "normalize",
						Usage: "Scale vectors to unit length",
					},
					&cli.BoolFlag{
						Name:  "require-complete",
						Usage: "Fail when any record could not be embedded",
					},
				}...),
			},
			{
				Name:   "reembed",
				Usage:  "Recompute the embedding of every record in a database",
				Action: reembedCommand,
				Flags: append(embeddingFlags(), []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to process per batch",
						Value: reembed.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.BoolFlag{
						Name:  "normalize",
						Usage: "Scale vectors to unit length",
					},
				}...),
			},
			{
				Name:   "inspect",
				Usage:  "Summarize a database written by prepare",
				Action: inspectCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "list",
						Usage: "List every record",
					},
					&cli.StringFlag{
						Name:  "similar-to",
						Usage: "Show the records most similar to the record with this id",
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Number of similar records to show",
						Value: 5,
					},
				},
			},
		},
	}
}

func embeddingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML file with embedding settings",
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: ai.DefaultConfig().EmbeddingHost,
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: ai.DefaultConfig().EmbeddingModel,
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the embedding service",
			EnvVars: []string{"DATAPREP_API_KEY", "OPENAI_API_KEY"},
		},
	}
}

// aiConfigFromFlags builds the embedding configuration. Values from --config
// are used as the base; explicitly set flags override them.
func aiConfigFromFlags(c *cli.Context) (*ai.Config, error) {
	var opts []ai.ConfigOption
	if c.IsSet("embedding-host") {
		opts = append(opts, ai.WithEmbeddingHost(c.String("embedding-host")))
	}
	if c.IsSet("embedding-model") {
		opts = append(opts, ai.WithEmbeddingModel(c.String("embedding-model")))
	}
	if c.IsSet("api-key") {
		opts = append(opts, ai.WithAPIKey(c.String("api-key")))
	}

	var cfg *ai.Config
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = ai.LoadConfigFile(path, opts...); err != nil {
			return nil, err
		}
	} else {
		cfg = ai.NewConfig(opts...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	return cfg, nil
}

func progressObserver(c *cli.Context) (ingestion.Observer, error) {
	switch mode := strings.ToLower(c.String("progress")); mode {
	case "bar":
		return progress.NewBar(c.App.ErrWriter, "Embedding "), nil
	case "text":
		if c.Int("report-interval") <= 0 {
			return nil, fmt.Errorf("report-interval must be greater than 0")
		}
		return progress.NewTracker(c.App.ErrWriter, c.Int("report-interval")), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("invalid progress mode %q: must be one of bar, text, none", mode)
	}
}

func loadOptions(c *cli.Context) ([]dataset.Option, error) {
	delim := c.String("delimiter")
	if delim == "" {
		return nil, nil
	}
	if delim == "\\t" {
		delim = "\t"
	}
	r, size := utf8.DecodeRuneInString(delim)
	if size != len(delim) || r == utf8.RuneError {
		return nil, fmt.Errorf("delimiter must be a single character, got %q", delim)
	}
	return []dataset.Option{dataset.WithDelimiter(r)}, nil
}

func prepareCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	aiConfig, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}

	observer, err := progressObserver(c)
	if err != nil {
		return err
	}

	loadOpts, err := loadOptions(c)
	if err != nil {
		return err
	}

	opts := []dataprep.Option{
		dataprep.WithAIConfig(aiConfig),
		dataprep.WithNormalize(c.Bool("normalize")),
		dataprep.WithLoadOptions(loadOpts...),
	}
	if observer != nil {
		opts = append(opts, dataprep.WithObserver(observer))
	}
	if path := c.String("parquet"); path != "" {
		opts = append(opts, dataprep.WithParquet(path))
	}
	if dbPath := c.String("db"); dbPath != "" {
		store, err := badger.NewRepository(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
		opts = append(opts, dataprep.WithStore(store))
	}

	preparer, err := dataprep.NewPreparer(opts...)
	if err != nil {
		return fmt.Errorf("failed to create preparer: %w", err)
	}

	fmt.Fprintf(c.App.ErrWriter, "Input: %s\n", c.String("input"))
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", aiConfig.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	report, err := preparer.Run(ctx, c.String("input"), c.Int("max-rows"))
	if report != nil {
		printReport(c.App.Writer, report)
	}
	if err != nil {
		return fmt.Errorf("preparation failed: %w", err)
	}

	if c.Bool("require-complete") && len(report.Result.Skipped) > 0 {
		return fmt.Errorf("%d of %d records could not be embedded", len(report.Result.Skipped), len(report.Result.Table))
	}
	return nil
}

func printReport(w io.Writer, report *dataprep.Report) {
	fmt.Fprintf(w, "Run: %s\n", report.RunID)
	if report.Result != nil {
		fmt.Fprintf(w, "Records: %d\n", len(report.Result.Table))
		fmt.Fprintf(w, "Embedded: %d\n", report.Result.Table.Embedded())
		fmt.Fprintf(w, "Skipped: %d\n", len(report.Result.Skipped))
		for _, s := range report.Result.Skipped {
			fmt.Fprintf(w, "  %s (row %d): %s: %v\n", s.ID, s.Index, s.Reason, s.Err)
		}
	}
	if report.Stored > 0 {
		fmt.Fprintf(w, "Stored: %d\n", report.Stored)
	}
	if report.Exported != "" {
		fmt.Fprintf(w, "Exported: %s\n", report.Exported)
	}
}

func inspectCommand(c *cli.Context) error {
	ctx := c.Context

	dbPath := c.String("db")
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	repo, err := badger.NewRepository(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	total, embedded, err := repo.CountRecords(ctx)
	if err != nil {
		return err
	}
	w := c.App.Writer
	fmt.Fprintf(w, "Records: %d\n", total)
	fmt.Fprintf(w, "Embedded: %d\n", embedded)

	if c.Bool("list") {
		err := repo.ListRecords(ctx, func(r *core.StoredRecord) error {
			source := ""
			if meta, err := core.DecodeMetadata(r.Metadata); err == nil {
				source = meta.Source
			}
			fmt.Fprintf(w, "%s\t%d\t%s\n", r.ID, len(r.Values), source)
			return nil
		})
		if err != nil {
			return err
		}
	}

	if id := c.String("similar-to"); id != "" {
		record, err := repo.GetRecord(ctx, id)
		if err != nil {
			return fmt.Errorf("record %q: %w", id, err)
		}
		if !record.HasValues() {
			return fmt.Errorf("record %q has no embedding", id)
		}
		top := c.Int("top")
		if top < 0 {
			return fmt.Errorf("top must not be negative")
		}
		// One extra result in case the record itself is among them.
		similar, err := repo.FindSimilar(ctx, record.Values, -1, top+1)
		if err != nil {
			return err
		}
		similar = slices.DeleteFunc(similar, func(s *storage.SimilarRecord) bool {
			return s.Record.ID == id
		})
		if len(similar) > top {
			similar = similar[:top]
		}
		fmt.Fprintf(w, "Similar to %s:\n", id)
		for _, s := range similar {
			fmt.Fprintf(w, "  %.4f\t%s\n", s.Score, s.Record.ID)
		}
	}

	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt)
	defer stop()

	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		Normalize:      c.Bool("normalize"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}

	aiConfig, err := aiConfigFromFlags(c)
	if err != nil {
		return err
	}
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	dbPath := c.String("db")
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	repo, err := badger.NewRepository(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer repo.Close()

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", dbPath)
	fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s\n", aiConfig.EmbeddingModel)
	fmt.Fprintln(c.App.ErrWriter)

	summary, err := reembed.NewReembedder(repo, embedder, config, c.App.ErrWriter).Run(ctx)
	if summary != nil {
		w := c.App.Writer
		fmt.Fprintf(w, "Records: %d\n", summary.Total)
		fmt.Fprintf(w, "Embedded: %d\n", summary.Embedded)
		fmt.Fprintf(w, "Skipped: %d\n", len(summary.Skipped))
		for _, s := range summary.Skipped {
			fmt.Fprintf(w, "  %s (record %d): %s: %v\n", s.ID, s.Index, s.Reason, s.Err)
		}
	}
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
