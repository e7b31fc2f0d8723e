// Package dataset loads a delimited tabular source and normalizes it into
// records ready for embedding.
//
// ImportAndNormalize reads the id, tiny_link and content columns from a
// header-prefixed file, drops rows without content and reshapes each
// surviving row into a core.NormalizedRecord whose metadata is the JSON
// object {"source": tiny_link, "text": content}. Row order is preserved.
//
// Expected failures (missing file, permissions, empty data, schema mismatch,
// nothing left after filtering) are reported as *LoadError values whose Kind
// tells them apart; errors.Is also matches the package sentinels. Malformed
// input is wrapped as KindUnexpectedParse with the underlying cause.
//
// Sources ending in .gz, .zst, .lz4 or .bz2 are decompressed transparently.
package dataset
