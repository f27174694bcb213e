package attribution

import (
	"math"
	"sort"
)

// neumaier is a compensated running sum.
type neumaier struct {
	sum, c float64
}

func (k *neumaier) add(x float64) {
	t := k.sum + x
	if math.Abs(k.sum) >= math.Abs(x) {
		k.c += (k.sum - t) + x
	} else {
		k.c += (x - t) + k.sum
	}
	k.sum = t
}

func (k *neumaier) value() float64 { return k.sum + k.c }

// Map accumulates watts per label. The zero value is not usable; call NewMap.
// A Map is owned by one run and is not safe for concurrent use; parallel
// workers each fill their own Map and Merge them afterwards.
type Map struct {
	sums map[string]*neumaier
}

func NewMap() *Map { return &Map{sums: make(map[string]*neumaier)} }

// Add adds watts to label's running total.
func (m *Map) Add(label string, watts float64) {
	k, ok := m.sums[label]
	if !ok {
		k = &neumaier{}
		m.sums[label] = k
	}
	k.add(watts)
}

// Get returns label's total and whether label was ever attributed.
func (m *Map) Get(label string) (float64, bool) {
	k, ok := m.sums[label]
	if !ok {
		return 0, false
	}
	return k.value(), true
}

// Len returns the number of labels.
func (m *Map) Len() int { return len(m.sums) }

// Labels returns the labels in lexical order.
func (m *Map) Labels() []string {
	out := make([]string, 0, len(m.sums))
	for l := range m.sums {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Total returns the sum over all labels.
func (m *Map) Total() float64 {
	var t neumaier
	for _, k := range m.sums {
		t.add(k.sum)
		t.add(k.c)
	}
	return t.value()
}

// Totals returns a plain copy of the per-label totals.
func (m *Map) Totals() map[string]float64 {
	out := make(map[string]float64, len(m.sums))
	for l, k := range m.sums {
		out[l] = k.value()
	}
	return out
}

// Merge adds other's totals label by label. other is left unchanged.
func (m *Map) Merge(other *Map) {
	for l, o := range other.sums {
		k, ok := m.sums[l]
		if !ok {
			k = &neumaier{}
			m.sums[l] = k
		}
		k.add(o.sum)
		k.c += o.c
	}
}

// Attribute splits w's watts evenly over labels and adds each share to m. A
// repeated label receives one share per occurrence. With no labels m is left
// untouched.
func Attribute(w Window, labels []string, m *Map) {
	Split(float64(w.Watts), labels, m)
}

// Split divides value evenly over labels and adds each share to m.
func Split(value float64, labels []string, m *Map) {
	if len(labels) == 0 {
		return
	}
	share := value / float64(len(labels))
	for _, l := range labels {
		m.Add(l, share)
	}
}
