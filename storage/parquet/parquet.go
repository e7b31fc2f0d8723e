package parquet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/poiesic/dataprep/core"
	"github.com/xitongsys/parquet-go-source/local"
	goparquet "github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// parallelism is the number of goroutines the parquet writer and reader use.
const parallelism = 4

// Row is the Parquet schema of an exported record.
type Row struct {
	ID       string    `parquet:"name=id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Source   string    `parquet:"name=source, type=BYTE_ARRAY, convertedtype=UTF8"`
	Text     string    `parquet:"name=text, type=BYTE_ARRAY, convertedtype=UTF8"`
	Metadata string    `parquet:"name=metadata, type=BYTE_ARRAY, convertedtype=UTF8"`
	Embedded bool      `parquet:"name=embedded, type=BOOLEAN"`
	Values   []float32 `parquet:"name=values, type=LIST, valuetype=FLOAT"`
}

// NewRow converts an enriched record to its exported form.
// Source and text are left empty when the metadata cannot be decoded.
func NewRow(record *core.EnrichedRecord) Row {
	row := Row{
		ID:       record.ID,
		Metadata: record.Metadata,
		Embedded: record.HasValues(),
		Values:   record.Values,
	}
	if meta, err := core.DecodeMetadata(record.Metadata); err == nil {
		row.Source = meta.Source
		row.Text = meta.Text
	}
	return row
}

// Record converts an exported row back to an enriched record.
func (r *Row) Record() core.EnrichedRecord {
	record := core.EnrichedRecord{ID: r.ID, Metadata: r.Metadata}
	if r.Embedded && len(r.Values) > 0 {
		record.Values = r.Values
	}
	return record
}

// Export writes table to a Snappy-compressed Parquet file at path, creating
// parent directories as needed. Row order is preserved.
func Export(path string, table core.EnrichedTable) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("parquet export: %w", err)
		}
	}

	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("parquet export: create %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, fw.Close())
	}()

	pw, err := writer.NewParquetWriter(fw, new(Row), parallelism)
	if err != nil {
		return fmt.Errorf("parquet export: create writer: %w", err)
	}
	pw.CompressionType = goparquet.CompressionCodec_SNAPPY

	for i := range table {
		if err := pw.Write(NewRow(&table[i])); err != nil {
			pw.WriteStop()
			return fmt.Errorf("parquet export: write %s: %w", table[i].ID, err)
		}
	}

	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("parquet export: finalize: %w", err)
	}
	return nil
}

// Read loads every row of the Parquet file at path.
func Read(path string) ([]Row, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("parquet read: open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(Row), parallelism)
	if err != nil {
		return nil, fmt.Errorf("parquet read: create reader: %w", err)
	}
	defer pr.ReadStop()

	rows := make([]Row, pr.GetNumRows())
	if len(rows) == 0 {
		return rows, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("parquet read: %w", err)
	}
	return rows, nil
}

// ReadTable loads the Parquet file at path as an enriched table.
func ReadTable(path string) (core.EnrichedTable, error) {
	rows, err := Read(path)
	if err != nil {
		return nil, err
	}
	table := make(core.EnrichedTable, len(rows))
	for i := range rows {
		table[i] = rows[i].Record()
	}
	return table, nil
}
