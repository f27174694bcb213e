package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
)

// KernelColumns locates the fields of a kernel trace by position. A negative
// Label selects the last column.
type KernelColumns struct {
	Start    int `yaml:"start"`
	Duration int `yaml:"duration"`
	Label    int `yaml:"label"`
}

// DefaultKernelColumns matches the nsys cuda_kern_exec_trace layout:
// "Kernel Start (ns)" at 4, "Kernel Dur (ns)" at 5, kernel name last.
func DefaultKernelColumns() KernelColumns {
	return KernelColumns{Start: 4, Duration: 5, Label: -1}
}

type kernelRow struct {
	Start    string `csv:"start"`
	Duration string `csv:"duration"`
	Label    string `csv:"label"`
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true
	return cr
}

// positionalHeader names every column after its index, then renames the
// columns in roles so csvutil can decode by position.
func positionalHeader(n int, roles map[string]int) []string {
	h := make([]string, n)
	for i := range h {
		h[i] = "col" + strconv.Itoa(i)
	}
	for name, i := range roles {
		h[i] = name
	}
	return h
}

// ReadPower reads a power trace. The column named "timestamp" holds the time and
// the second column holds the power reading. An input with only a header (or
// nothing at all) yields no rows.
func ReadPower(r io.Reader) ([]PowerRow, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, &ParseError{Source: "power", Row: 0, Err: err}
	}

	ts := -1
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "timestamp") {
			ts = i
			break
		}
	}
	if ts < 0 {
		return nil, ErrNoTimestampColumn
	}
	if len(header) < 2 || ts == 1 {
		return nil, fmt.Errorf("%w: power column 1 of %d (timestamp at %d)", ErrColumnIndex, len(header), ts)
	}

	dec, err := csvutil.NewDecoder(cr, positionalHeader(len(header), map[string]int{"timestamp": ts, "power": 1})...)
	if err != nil {
		return nil, fmt.Errorf("power: decoder: %w", err)
	}

	var rows []PowerRow
	for {
		var row PowerRow
		if err := dec.Decode(&row); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, &ParseError{Source: "power", Row: len(rows) + 1, Err: err}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadKernels reads a kernel trace using cols to locate start, duration and label.
// Start and duration are integer nanoseconds; a decimal value is rounded.
func ReadKernels(r io.Reader, cols KernelColumns) ([]Event, error) {
	cr := newReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, &ParseError{Source: "kernels", Row: 0, Err: err}
	}

	n := len(header)
	label := cols.Label
	if label < 0 {
		label = n - 1
	}
	for _, i := range []int{cols.Start, cols.Duration, label} {
		if i < 0 || i >= n {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrColumnIndex, i, n)
		}
	}
	if cols.Start == cols.Duration || cols.Start == label || cols.Duration == label {
		return nil, fmt.Errorf("%w: start=%d duration=%d label=%d overlap", ErrColumnIndex, cols.Start, cols.Duration, label)
	}

	dec, err := csvutil.NewDecoder(cr, positionalHeader(n, map[string]int{
		"start":    cols.Start,
		"duration": cols.Duration,
		"label":    label,
	})...)
	if err != nil {
		return nil, fmt.Errorf("kernels: decoder: %w", err)
	}

	var events []Event
	for {
		var row kernelRow
		if err := dec.Decode(&row); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, &ParseError{Source: "kernels", Row: len(events) + 1, Err: err}
		}

		rowN := len(events) + 1
		start, err := parseNanos(row.Start)
		if err != nil {
			return nil, &ParseError{Source: "kernels", Row: rowN, Column: "start", Value: row.Start, Err: err}
		}
		dur, err := parseNanos(row.Duration)
		if err != nil {
			return nil, &ParseError{Source: "kernels", Row: rowN, Column: "duration", Value: row.Duration, Err: err}
		}
		if dur < 0 {
			return nil, &ParseError{Source: "kernels", Row: rowN, Column: "duration", Value: row.Duration, Err: ErrNegativeDuration}
		}
		if start > math.MaxInt64-dur {
			return nil, &ParseError{Source: "kernels", Row: rowN, Column: "duration", Value: row.Duration, Err: ErrTimeOverflow}
		}
		events = append(events, Event{StartNs: start, DurationNs: dur, Label: row.Label})
	}
	return events, nil
}

func parseNanos(s string) (int64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return v, nil
	}
	f, ferr := strconv.ParseFloat(s, 64)
	if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, err
	}
	return int64(math.Round(f)), nil
}
