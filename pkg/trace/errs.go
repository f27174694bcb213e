package trace

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTimestampColumn indicates that the power trace header has no "timestamp" column.
	ErrNoTimestampColumn = errors.New("trace: no timestamp column")

	// ErrColumnIndex indicates that a configured column index does not exist in the
	// header, or that two roles were mapped to the same column.
	ErrColumnIndex = errors.New("trace: bad column index")

	// ErrUnordered indicates a power timestamp earlier than its predecessor.
	ErrUnordered = errors.New("trace: timestamps out of order")

	// ErrNegativeDuration indicates a kernel record with a duration below zero.
	ErrNegativeDuration = errors.New("trace: negative duration")

	// ErrTimeOverflow indicates a kernel record whose end does not fit in int64 nanoseconds.
	ErrTimeOverflow = errors.New("trace: start plus duration overflows")
)

// ParseError reports a malformed field in one of the input traces.
// Row is the 1-based data row (the header is not counted).
type ParseError struct {
	Source string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("trace: %s row %d: %v", e.Source, e.Row, e.Err)
	}
	return fmt.Sprintf("trace: %s row %d: bad %s %q: %v", e.Source, e.Row, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
