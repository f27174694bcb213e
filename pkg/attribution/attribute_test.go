package attribution

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttribute_EvenSplit(t *testing.T) {
	m := NewMap()
	Attribute(Window{StartNs: 0, EndNs: 10, Watts: 10}, []string{"A", "B"}, m)
	assert.Equal(t, map[string]float64{"A": 5, "B": 5}, m.Totals())
}

func TestAttribute_DuplicatesGetOneSharePerOccurrence(t *testing.T) {
	m := NewMap()
	Attribute(Window{StartNs: 0, EndNs: 10, Watts: 9}, []string{"A", "A", "B"}, m)
	a, _ := m.Get("A")
	b, _ := m.Get("B")
	assert.InDelta(t, 6.0, a, 1e-12)
	assert.InDelta(t, 3.0, b, 1e-12)
}

func TestAttribute_IdleWindowIsNoop(t *testing.T) {
	m := NewMap()
	m.Add("A", 1.5)
	before := m.Totals()

	Attribute(Window{StartNs: 0, EndNs: 10, Watts: 100}, nil, m)
	Attribute(Window{StartNs: 0, EndNs: 10, Watts: 100}, []string{}, m)

	assert.Equal(t, before, m.Totals())
	assert.Equal(t, 1, m.Len())
}

func TestAttribute_WindowSumInvariant(t *testing.T) {
	cases := [][]string{
		{"A"},
		{"A", "B", "C"},
		{"A", "A", "B", "C", "C", "C", "D"},
	}
	for _, labels := range cases {
		for _, watts := range []float64{0.1, 1, 71.25, 300.333, 1e-7} {
			m := NewMap()
			Attribute(Window{StartNs: 0, EndNs: 1, Watts: wattsOf(watts)}, labels, m)
			require.InEpsilon(t, watts, m.Total(), 1e-9, "labels=%v watts=%g", labels, watts)
		}
	}
}

func TestMap_GetMissing(t *testing.T) {
	m := NewMap()
	v, ok := m.Get("nope")
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestMap_Labels_Sorted(t *testing.T) {
	m := NewMap()
	for _, l := range []string{"c", "a", "b"} {
		m.Add(l, 1)
	}
	assert.Equal(t, []string{"a", "b", "c"}, m.Labels())
}

func TestMap_Merge(t *testing.T) {
	a, b := NewMap(), NewMap()
	a.Add("x", 1)
	a.Add("y", 2)
	b.Add("y", 3)
	b.Add("z", 4)

	a.Merge(b)
	assert.Equal(t, map[string]float64{"x": 1, "y": 5, "z": 4}, a.Totals())
	assert.Equal(t, map[string]float64{"y": 3, "z": 4}, b.Totals(), "merge source untouched")
}

func TestMap_MergeOrderIrrelevant(t *testing.T) {
	parts := make([]*Map, 3)
	for i := range parts {
		parts[i] = NewMap()
		for j := 0; j < 100; j++ {
			parts[i].Add("k", 0.1*float64(i+1))
		}
	}
	ab := NewMap()
	for _, p := range parts {
		ab.Merge(p)
	}
	ba := NewMap()
	for i := len(parts) - 1; i >= 0; i-- {
		ba.Merge(parts[i])
	}
	x, _ := ab.Get("k")
	y, _ := ba.Get("k")
	assert.InDelta(t, 60.0, x, 1e-9)
	assert.InDelta(t, x, y, 1e-12)
}

func TestMap_CompensatedSum(t *testing.T) {
	m := NewMap()
	m.Add("k", 1e16)
	for i := 0; i < 1000; i++ {
		m.Add("k", 1.0)
	}
	m.Add("k", -1e16)

	got, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, 1000.0, got)

	var naive float64 = 1e16
	for i := 0; i < 1000; i++ {
		naive += 1.0
	}
	naive -= 1e16
	assert.NotEqual(t, 1000.0, naive, "plain float addition loses the small terms")
}

func TestSplit(t *testing.T) {
	m := NewMap()
	Split(12, []string{"a", "b", "c"}, m)
	Split(math.NaN(), nil, m)
	assert.Equal(t, map[string]float64{"a": 4, "b": 4, "c": 4}, m.Totals())
}
