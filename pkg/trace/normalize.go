package trace

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ja7ad/gpuwatt/pkg/types"
)

// TimestampLayout is the nvidia-smi timestamp format. The fractional part is optional.
const TimestampLayout = "2006/01/02 15:04:05.999999999"

// ParseTimestamp parses s in TimestampLayout, ignoring surrounding whitespace.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, strings.TrimSpace(s))
}

// ParseWatts parses the numeric prefix of a unit-suffixed power reading such as
// "71.25 W" or "71.25W". The unit is discarded, not converted.
func ParseWatts(s string) (types.Watts, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0, strconv.ErrSyntax
	}
	num := strings.TrimRightFunc(fields[0], unicode.IsLetter)
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, err
	}
	return types.Watts(v), nil
}

// Normalize converts raw power rows into samples whose time is relative to the
// first row. It fails on the first malformed row; nothing is returned in that case.
func Normalize(rows []PowerRow) ([]PowerSample, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	out := make([]PowerSample, len(rows))
	var first, prev time.Time
	for i, r := range rows {
		at, err := ParseTimestamp(r.Timestamp)
		if err != nil {
			return nil, &ParseError{Source: "power", Row: i + 1, Column: "timestamp", Value: r.Timestamp, Err: err}
		}
		w, err := ParseWatts(r.Power)
		if err != nil {
			return nil, &ParseError{Source: "power", Row: i + 1, Column: "power", Value: r.Power, Err: err}
		}
		if i == 0 {
			first = at
		} else if at.Before(prev) {
			return nil, &ParseError{Source: "power", Row: i + 1, Column: "timestamp", Value: r.Timestamp, Err: ErrUnordered}
		}
		prev = at
		out[i] = PowerSample{TNs: at.Sub(first).Nanoseconds(), Watts: w}
	}
	return out, nil
}
