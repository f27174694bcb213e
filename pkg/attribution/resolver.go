package attribution

import (
	"math"
	"sort"
	"strings"

	"github.com/Workiva/go-datastructures/augmentedtree"

	"github.com/ja7ad/gpuwatt/pkg/trace"
)

// The ID for augmentedtree.Intervals used in queries. Event spans start at 1.
const queryID uint64 = 0

// span is an event's closed extent [low, high] in the power clock, stored in the
// interval tree. idx points back into Resolver.events.
type span struct {
	low, high int64
	idx       int
	id        uint64
}

// LowAtDimension returns the start of s. Required to support augmentedtree.Interval.
func (s *span) LowAtDimension(uint64) int64 { return s.low }

// HighAtDimension returns the end of s. Required to support augmentedtree.Interval.
func (s *span) HighAtDimension(uint64) int64 { return s.high }

// OverlapsAtDimension returns true if j overlaps s, edges included. Required to
// support augmentedtree.Interval.
func (s *span) OverlapsAtDimension(j augmentedtree.Interval, d uint64) bool {
	return s.HighAtDimension(d) >= j.LowAtDimension(d) &&
		j.HighAtDimension(d) >= s.LowAtDimension(d)
}

// ID returns the unique identifier for s. Required to support augmentedtree.Interval.
func (s *span) ID() uint64 { return s.id }

// Resolver finds the events active in a window. It indexes the events once in an
// interval tree; each lookup returns the closed-overlap candidates, which are
// then filtered with the exact policy predicate. A Resolver is read-only after
// NewResolver and may be shared between goroutines.
type Resolver struct {
	policy  Policy
	events  []trace.Event // offset applied, unlabeled events removed
	skipped int
	tree    augmentedtree.Tree
}

// NewResolver indexes events for policy. offsetNs is added to every start to
// move it into the power trace's time base. Events without a label are dropped.
func NewResolver(events []trace.Event, policy Policy, offsetNs int64) *Resolver {
	if !policy.Valid() {
		policy = _defaultConfig().Policy
	}
	r := &Resolver{
		policy: policy,
		events: make([]trace.Event, 0, len(events)),
		tree:   augmentedtree.New(1),
	}
	spans := make([]augmentedtree.Interval, 0, len(events))
	for _, e := range events {
		if strings.TrimSpace(e.Label) == "" {
			r.skipped++
			continue
		}
		start := addSat(e.StartNs, offsetNs)
		e.StartNs, e.DurationNs = start, addSat(start, e.DurationNs)-start
		spans = append(spans, &span{
			low:  e.StartNs,
			high: e.EndNs(),
			idx:  len(r.events),
			id:   uint64(len(r.events)) + 1,
		})
		r.events = append(r.events, e)
	}
	if len(spans) > 0 {
		r.tree.Add(spans...)
	}
	return r
}

// addSat adds b to a, clamping at the int64 bounds instead of wrapping.
func addSat(a, b int64) int64 {
	s := a + b
	switch {
	case b > 0 && s < a:
		return math.MaxInt64
	case b < 0 && s > a:
		return math.MinInt64
	}
	return s
}

// Policy returns the overlap policy in use.
func (r *Resolver) Policy() Policy { return r.policy }

// Len returns the number of indexed events.
func (r *Resolver) Len() int { return len(r.events) }

// Skipped returns the number of events dropped for having no label.
func (r *Resolver) Skipped() int { return r.skipped }

// Active returns the labels of the events active in w. Under AnyOverlapSpanDup
// the events reaching past an edge of w come first, followed by every active
// event; both groups keep input order. An empty window has no active events.
func (r *Resolver) Active(w Window) []string {
	if w.Empty() || len(r.events) == 0 {
		return nil
	}

	hits := r.tree.Query(&span{low: w.StartNs, high: w.EndNs, id: queryID})
	if len(hits) == 0 {
		return nil
	}
	idx := make([]int, 0, len(hits))
	for _, h := range hits {
		idx = append(idx, h.(*span).idx)
	}
	sort.Ints(idx)

	var spanning, members []string
	for _, i := range idx {
		e := r.events[i]
		s, end := e.StartNs, e.EndNs()
		if !r.policy.active(s, end, w) {
			continue
		}
		members = append(members, e.Label)
		if r.policy.duplicates(s, end, w) {
			spanning = append(spanning, e.Label)
		}
	}
	if len(spanning) == 0 {
		return members
	}
	return append(spanning, members...)
}
