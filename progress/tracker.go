package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/poiesic/dataprep/ingestion"
)

// Tracker tracks and reports progress of an enrichment run.
type Tracker struct {
	writer         io.Writer
	total          int
	current        int
	skipped        int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

var _ ingestion.Observer = (*Tracker)(nil)

// NewTracker creates a new progress tracker.
// writer: where to write progress output (typically os.Stderr)
// reportInterval: report progress every N rows
func NewTracker(writer io.Writer, reportInterval int) *Tracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &Tracker{
		writer:         writer,
		reportInterval: reportInterval,
	}
}

// Observe updates the tracker from an enrichment event.
func (p *Tracker) Observe(e ingestion.Event) {
	switch e.Kind {
	case ingestion.EventStart:
		p.Start(e.Total)
	case ingestion.EventRow:
		p.Increment(false)
	case ingestion.EventSkip:
		p.Increment(true)
	case ingestion.EventFinish:
		p.Finish()
	}
}

// Start begins tracking a run of total rows.
func (p *Tracker) Start(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.total = total
	p.current = 0
	p.skipped = 0
	p.lastReported = 0
}

// Increment records one processed row.
func (p *Tracker) Increment(skipped bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if p.current < p.total {
		p.current++
	}
	if skipped {
		p.skipped++
	}

	if p.current-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.current
	}
}

// Finish prints the final progress line.
func (p *Tracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
}

// Skipped returns the number of skipped rows seen so far.
func (p *Tracker) Skipped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.skipped
}

// Elapsed returns the time elapsed since Start was called.
func (p *Tracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.startTime.IsZero() {
		return 0
	}
	return time.Since(p.startTime)
}

// report prints the current progress. Must be called with lock held.
func (p *Tracker) report() {
	elapsed := time.Since(p.startTime)
	rate := 0.0
	if s := elapsed.Seconds(); s > 0 {
		rate = float64(p.current) / s
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.current) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rEmbedding: %d/%d (%.1f%%) - %d skipped - %.1f records/s",
		p.current, p.total, percentage, p.skipped, rate)
}
