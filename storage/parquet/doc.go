// Package parquet exports enriched tables to Parquet files and reads them back.
//
// Each record becomes one row with its id, the decoded source and text, the
// raw metadata blob, an embedded flag and the vector values. Rows without a
// vector have embedded=false and an empty values list.
package parquet
