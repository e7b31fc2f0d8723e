package progress

import (
	"io"
	"sync"

	"github.com/poiesic/dataprep/ingestion"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bar draws an mpb progress bar for an enrichment run.
// A Bar serves a single run; the bar is created on the start event.
type Bar struct {
	writer io.Writer
	name   string

	mu       sync.Mutex
	progress *mpb.Progress
	bar      *mpb.Bar
	count    int64
}

var _ ingestion.Observer = (*Bar)(nil)

// NewBar creates a progress bar writing to w.
func NewBar(w io.Writer, name string) *Bar {
	return &Bar{writer: w, name: name}
}

// Observe advances the bar from an enrichment event.
func (b *Bar) Observe(e ingestion.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch e.Kind {
	case ingestion.EventStart:
		if b.progress != nil {
			return
		}
		b.progress = mpb.New(mpb.WithOutput(b.writer), mpb.WithWidth(80))
		b.bar = b.progress.AddBar(int64(e.Total),
			mpb.PrependDecorators(
				decor.Name(b.name),
				decor.CountersNoUnit("%d/%d", decor.WCSyncSpace),
				decor.Percentage(decor.WCSyncSpace),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.AverageETA(decor.ET_STYLE_GO), "done!"),
			),
		)
	case ingestion.EventRow, ingestion.EventSkip:
		if b.bar != nil {
			b.bar.Increment()
			b.count++
		}
	case ingestion.EventFinish:
		if b.progress == nil {
			return
		}
		// Completes a zero-length bar too.
		b.bar.SetTotal(-1, true)
		b.progress.Wait()
	}
}

// Current returns the number of rows counted by the bar.
func (b *Bar) Current() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
