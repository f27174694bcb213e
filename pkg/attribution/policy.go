package attribution

import (
	"fmt"
	"strings"
)

// Policy decides which events count as active in a window.
//
// For an event [s, e) and a window [ws, we):
//
//	starts inside: ws <= s < we
//	ends inside:   ws < e <= we
//	spans:         s <= ws && e >= we
type Policy int

const (
	_ Policy = iota // unset, New falls back to the default

	// StrictContainment keeps events that lie entirely inside the window.
	StrictContainment
	// AnyOverlap keeps events that start inside, end inside, or span the window.
	AnyOverlap
	// AnyOverlapSpanDup is AnyOverlap, but an event reaching past either window
	// edge is listed twice. The duplicate raises the share denominator too.
	AnyOverlapSpanDup
	// StartInWindow keeps events whose start lies in the window, ignoring duration.
	StartInWindow
)

var policyNames = map[Policy]string{
	StrictContainment: "strict-containment",
	AnyOverlap:        "any-overlap",
	AnyOverlapSpanDup: "any-overlap-with-span-duplication",
	StartInWindow:     "start-in-window",
}

func (p Policy) String() string {
	if n, ok := policyNames[p]; ok {
		return n
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// Valid reports whether p is one of the defined policies.
func (p Policy) Valid() bool {
	_, ok := policyNames[p]
	return ok
}

// ParsePolicy maps a policy name (case-insensitive) to its Policy.
func ParsePolicy(s string) (Policy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, n := range policyNames {
		if n == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// PolicyNames lists the accepted policy names in declaration order.
func PolicyNames() []string {
	return []string{
		StrictContainment.String(),
		AnyOverlap.String(),
		AnyOverlapSpanDup.String(),
		StartInWindow.String(),
	}
}

// MarshalText lets Policy appear by name in YAML and JSON.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPolicy, int(p))
	}
	return []byte(p.String()), nil
}

func (p *Policy) UnmarshalText(b []byte) error {
	v, err := ParsePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// active reports whether the event [s, e) is active in w. w must not be empty.
func (p Policy) active(s, e int64, w Window) bool {
	startsIn := w.StartNs <= s && s < w.EndNs
	switch p {
	case StartInWindow:
		return startsIn
	case StrictContainment:
		return startsIn && e <= w.EndNs
	default:
		endsIn := w.StartNs < e && e <= w.EndNs
		spans := s <= w.StartNs && e >= w.EndNs
		return startsIn || endsIn || spans
	}
}

// duplicates reports whether an active event [s, e) is listed twice in w.
func (p Policy) duplicates(s, e int64, w Window) bool {
	return p == AnyOverlapSpanDup && (s < w.StartNs || e > w.EndNs)
}
