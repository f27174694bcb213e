// Package trace holds the two input series of a GPU run and turns their raw text
// into typed values.
//
// A power trace is what `nvidia-smi --query-gpu=timestamp,power.draw --format=csv`
// writes: one wall-clock timestamp and one unit-suffixed power reading per row.
// A kernel trace is the `cuda_kern_exec_trace` report of nsys: one row per kernel
// execution with start and duration in nanoseconds on the device clock and the
// kernel name in the last column.
//
// Normalize rebases the power timestamps to nanoseconds since the first row. The
// kernel clock is left untouched; relating the two clocks is up to the caller
// (see attribution.Config.EpochOffset).
package trace

import (
	"github.com/ja7ad/gpuwatt/pkg/types"
)

// PowerRow is one raw row of a power trace.
type PowerRow struct {
	Timestamp string `csv:"timestamp"`
	Power     string `csv:"power"`
}

// PowerSample is a normalized power reading.
type PowerSample struct {
	TNs   int64       // nanoseconds since the first sample
	Watts types.Watts // reading taken at TNs
}

// Event is one kernel execution.
type Event struct {
	StartNs    int64
	DurationNs int64
	Label      string
}

// EndNs returns the exclusive end of e.
func (e Event) EndNs() int64 { return e.StartNs + e.DurationNs }

// Rebase shifts all events so the earliest start becomes zero. It returns the
// shifted copy and the original earliest start. The input is not modified.
func Rebase(events []Event) ([]Event, int64) {
	if len(events) == 0 {
		return nil, 0
	}
	first := events[0].StartNs
	for _, e := range events[1:] {
		if e.StartNs < first {
			first = e.StartNs
		}
	}
	out := make([]Event, len(events))
	for i, e := range events {
		e.StartNs -= first
		out[i] = e
	}
	return out, first
}
