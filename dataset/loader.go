package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/dataprep/core"
)

// Required column names.
const (
	ColumnID       = "id"
	ColumnTinyLink = "tiny_link"
	ColumnContent  = "content"
)

// Unbounded reads every data row in the source.
const Unbounded = -1

// RequiredColumns lists the columns every source must carry, in canonical order.
var RequiredColumns = []string{ColumnID, ColumnTinyLink, ColumnContent}

// Option configures a load.
type Option func(*loader)

type loader struct {
	delimiter   rune
	compression Compression
	logger      *slog.Logger
}

// WithDelimiter sets the field delimiter.
// Default is ',' or '\t' for .tsv and .tab sources.
func WithDelimiter(delimiter rune) Option {
	return func(l *loader) {
		l.delimiter = delimiter
	}
}

// WithCompression overrides extension-based compression detection.
func WithCompression(c Compression) Option {
	return func(l *loader) {
		l.compression = c
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
	}
}

// table is the parsed, column-projected content of a source.
type table struct {
	columns map[string]int // Column name to index; only required columns are tracked
	rows    []core.RawRow
}

// missing returns the required columns absent from the header, in canonical order.
func (t *table) missing() []string {
	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := t.columns[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// ImportAndNormalize reads up to maxRows data rows from the delimited source at
// path and returns them as normalized records, in source order.
//
// A negative maxRows (see Unbounded) reads every row; zero reads none and
// therefore fails with KindEmptyDataset. Every failure is a *LoadError.
func ImportAndNormalize(path string, maxRows int, opts ...Option) (core.NormalizedTable, error) {
	l := &loader{logger: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	if l.delimiter == 0 {
		l.delimiter = defaultDelimiter(path)
	}
	logger := l.logger.With("component", "dataset-loader", "path", path)

	logger.Info("loading dataset", "max_rows", maxRows)

	if err := checkReadable(path); err != nil {
		logger.Error("dataset not readable", "err", err)
		return nil, err
	}

	t, err := l.parse(path, maxRows)
	if err != nil {
		logger.Error("failed to parse dataset", "err", err)
		return nil, err
	}

	if len(t.rows) == 0 {
		return nil, loadError(KindEmptyDataset, path, nil)
	}

	if missing := t.missing(); len(missing) > 0 {
		logger.Error("dataset is missing required columns", "missing", missing)
		return nil, &LoadError{Kind: KindMissingColumns, Path: path, Missing: missing}
	}

	records, err := Normalize(t.rows)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && le.Path == "" {
			le.Path = path
		}
		logger.Error("failed to normalize dataset", "err", err)
		return nil, err
	}

	logger.Info("dataset loaded", "rows", len(t.rows), "records", len(records), "dropped", len(t.rows)-len(records))
	return records, nil
}

// parse reads the header and up to maxRows data rows, keeping only the
// required columns.
func (l *loader) parse(path string, maxRows int) (*table, error) {
	src, err := openSource(path, l.compression)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	r := csv.NewReader(src)
	r.Comma = l.delimiter
	// Short rows are padded with empty fields; long rows are rejected below.
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			// A file without even a header has no data.
			return &table{columns: map[string]int{}}, nil
		}
		return nil, loadError(KindUnexpectedParse, path, err)
	}

	t := &table{columns: make(map[string]int, len(RequiredColumns))}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		if _, seen := t.columns[name]; seen {
			continue
		}
		for _, required := range RequiredColumns {
			if name == required {
				t.columns[name] = i
			}
		}
	}

	for maxRows < 0 || len(t.rows) < maxRows {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, loadError(KindUnexpectedParse, path, err)
		}
		line, _ := r.FieldPos(0)
		if len(record) > len(header) {
			return nil, loadError(KindUnexpectedParse, path,
				fmt.Errorf("record on line %d: expected %d fields, saw %d", line, len(header), len(record)))
		}

		row := core.RawRow{
			ID:       t.field(record, ColumnID),
			TinyLink: t.field(record, ColumnTinyLink),
			Content:  t.field(record, ColumnContent),
		}
		if !utf8.ValidString(row.ID) || !utf8.ValidString(row.TinyLink) || !utf8.ValidString(row.Content) {
			return nil, loadError(KindUnexpectedParse, path,
				fmt.Errorf("record on line %d: invalid UTF-8", line))
		}
		t.rows = append(t.rows, row)
	}

	return t, nil
}

func (t *table) field(record []string, name string) string {
	i, ok := t.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
