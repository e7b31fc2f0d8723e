package ingestion

// EventKind identifies a point in an enrichment run.
type EventKind int

const (
	// EventStart is emitted once before the first row.
	EventStart EventKind = iota
	// EventRow is emitted after a row receives a vector.
	EventRow
	// EventSkip is emitted after a row is skipped.
	EventSkip
	// EventFinish is emitted once after the last row.
	EventFinish
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventRow:
		return "row"
	case EventSkip:
		return "skip"
	case EventFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// Event describes progress through an enrichment run.
type Event struct {
	Kind  EventKind
	Index int    // Row position; -1 for start and finish events
	Total int    // Number of rows in the run
	ID    string // Row id; empty for start and finish events
	Err   error  // Set on skip events
}

// Observer receives enrichment events in order, on the calling goroutine.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) {
	f(e)
}

type nopObserver struct{}

func (nopObserver) Observe(Event) {}

// Observers fans events out to several observers, in order.
func Observers(observers ...Observer) Observer {
	return ObserverFunc(func(e Event) {
		for _, o := range observers {
			if o != nil {
				o.Observe(e)
			}
		}
	})
}
