// Package ingestion enriches normalized records with embedding vectors.
//
// EnrichWithEmbeddings walks a normalized table in order and asks an
// ai.Embedder for one vector per record. A row that cannot be enriched is
// kept in the output without a vector and reported as a SkippedRow; the
// batch itself never fails because of a single row.
//
// Processing is sequential: each embedding call starts after the previous one
// returns. Progress can be followed through an Observer and through slog.
package ingestion
