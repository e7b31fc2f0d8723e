// Package progress reports enrichment progress to a terminal.
//
// Tracker prints a single updating line of counts and throughput. Bar draws an
// mpb progress bar. Both implement ingestion.Observer.
package progress
