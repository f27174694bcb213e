package types

import (
	"fmt"
	"math"
	"time"
)

// Watts is a float64 wrapper representing an instantaneous power reading.
type Watts float64

// Humanized returns a human-readable string with automatic unit (mW, W, kW, MW).
func (w Watts) Humanized() string {
	v := float64(w)
	a := math.Abs(v)
	switch {
	case a >= 1e6:
		return fmt.Sprintf("%.2f MW", v/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.2f kW", v/1e3)
	case a >= 1 || a == 0:
		return fmt.Sprintf("%.2f W", v)
	default:
		return fmt.Sprintf("%.2f mW", v*1e3)
	}
}

// Float returns the raw value.
func (w Watts) Float() float64 { return float64(w) }

// Joules returns the energy drawn at this power over d.
func (w Watts) Joules(d time.Duration) float64 { return float64(w) * d.Seconds() }

// Nanos is a relative time offset in nanoseconds.
type Nanos int64

// Duration converts n to a time.Duration.
func (n Nanos) Duration() time.Duration { return time.Duration(n) }

// Seconds returns n in (fractional) seconds.
func (n Nanos) Seconds() float64 { return float64(n) / 1e9 }
