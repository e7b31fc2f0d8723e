package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the source path does not reference a file.
	ErrNotFound = errors.New("source file does not exist")

	// ErrPermissionDenied is returned when the source file cannot be read.
	ErrPermissionDenied = errors.New("permission denied when accessing the source file")

	// ErrUnexpectedParse is returned when the source cannot be parsed.
	ErrUnexpectedParse = errors.New("unexpected error while reading the source file")

	// ErrEmptyDataset is returned when the source has no data rows.
	ErrEmptyDataset = errors.New("no data found in the source file")

	// ErrMissingColumns is returned when required columns are absent.
	ErrMissingColumns = errors.New("source file is missing required columns")

	// ErrNoValidRows is returned when every row is dropped for empty content.
	ErrNoValidRows = errors.New("no valid data found after filtering empty content")
)

// Kind classifies a load failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindPermissionDenied
	KindUnexpectedParse
	KindEmptyDataset
	KindMissingColumns
	KindNoValidRowsAfterFiltering
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindUnexpectedParse:
		return "UnexpectedParseError"
	case KindEmptyDataset:
		return "EmptyDataset"
	case KindMissingColumns:
		return "MissingColumns"
	case KindNoValidRowsAfterFiltering:
		return "NoValidRowsAfterFiltering"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindUnexpectedParse:
		return ErrUnexpectedParse
	case KindEmptyDataset:
		return ErrEmptyDataset
	case KindMissingColumns:
		return ErrMissingColumns
	case KindNoValidRowsAfterFiltering:
		return ErrNoValidRows
	default:
		return nil
	}
}

// LoadError describes why a source could not be loaded.
type LoadError struct {
	Kind    Kind
	Path    string
	Missing []string // Set for KindMissingColumns, in canonical column order
	Err     error    // Underlying cause, if any
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("dataset: ")
	if e.Path != "" {
		b.WriteString(e.Path)
		b.WriteString(": ")
	}
	if s := e.Kind.sentinel(); s != nil {
		b.WriteString(s.Error())
	} else {
		b.WriteString(e.Kind.String())
	}
	if len(e.Missing) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		b.WriteString(" (")
		b.WriteString(e.Err.Error())
		b.WriteString(")")
	}
	return b.String()
}

// Is matches the sentinel for the error's kind.
func (e *LoadError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of a *LoadError in err's chain, or 0 if there is none.
func KindOf(err error) Kind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}

func loadError(kind Kind, path string, cause error) *LoadError {
	return &LoadError{Kind: kind, Path: path, Err: cause}
}
