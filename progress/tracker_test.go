package progress

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/dataprep/ingestion"
	"github.com/stretchr/testify/assert"
)

func TestTracker_Basic(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 10)

	tracker.Start(30)
	for i := 0; i < 30; i++ {
		tracker.Increment(i%10 == 0)
	}

	assert.Greater(t, tracker.Elapsed(), time.Duration(0))
	assert.Equal(t, 3, tracker.Skipped())

	output := buf.String()
	assert.Contains(t, output, "10/30")
	assert.Contains(t, output, "30/30")
	assert.Contains(t, output, "100.0%")
	assert.Contains(t, output, "3 skipped")
}

func TestTracker_ReportInterval(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 5)

	tracker.Start(20)
	for i := 0; i < 4; i++ {
		tracker.Increment(false)
	}
	assert.Empty(t, buf.String(), "no report before the interval is crossed")

	tracker.Increment(false)
	assert.Equal(t, 1, strings.Count(buf.String(), "\r"))
}

func TestTracker_Finish(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 100)

	tracker.Start(4)
	tracker.Increment(false)
	tracker.Increment(true)
	tracker.Finish()

	output := buf.String()
	assert.Contains(t, output, "2/4")
	assert.Contains(t, output, "1 skipped")
	assert.True(t, strings.HasSuffix(output, "\n"), "finish should print newline")
}

func TestTracker_ZeroTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 10)

	tracker.Start(0)
	tracker.Finish()

	assert.Contains(t, buf.String(), "0/0")
}

func TestTracker_IncrementBeyondTotal(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 1)

	tracker.Start(2)
	tracker.Increment(false)
	tracker.Increment(false)
	tracker.Increment(false)

	output := buf.String()
	assert.Contains(t, output, "2/2")
	assert.NotContains(t, output, "3/2", "should cap at total")
}

func TestTracker_NotStarted(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 1)

	tracker.Increment(false)
	tracker.Finish()

	assert.Empty(t, buf.String())
	assert.Equal(t, time.Duration(0), tracker.Elapsed())
}

func TestTracker_Observe(t *testing.T) {
	var buf bytes.Buffer
	tracker := NewTracker(&buf, 1)

	tracker.Observe(ingestion.Event{Kind: ingestion.EventStart, Index: -1, Total: 2})
	tracker.Observe(ingestion.Event{Kind: ingestion.EventRow, Index: 0, Total: 2, ID: "1"})
	tracker.Observe(ingestion.Event{Kind: ingestion.EventSkip, Index: 1, Total: 2, ID: "2", Err: errors.New("boom")})
	tracker.Observe(ingestion.Event{Kind: ingestion.EventFinish, Index: -1, Total: 2})

	output := buf.String()
	assert.Contains(t, output, "1/2")
	assert.Contains(t, output, "2/2 (100.0%) - 1 skipped")
	assert.Equal(t, 1, tracker.Skipped())
}
