package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	for _, name := range PolicyNames() {
		p, err := ParsePolicy(name)
		require.NoError(t, err, name)
		assert.Equal(t, name, p.String())
		assert.True(t, p.Valid())
	}

	p, err := ParsePolicy("  Any-Overlap ")
	require.NoError(t, err)
	assert.Equal(t, AnyOverlap, p)

	_, err = ParsePolicy("nearest")
	assert.ErrorIs(t, err, ErrUnknownPolicy)

	assert.False(t, Policy(0).Valid())
	assert.Equal(t, "policy(0)", Policy(0).String())
}

func TestPolicy_Text(t *testing.T) {
	b, err := AnyOverlapSpanDup.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "any-overlap-with-span-duplication", string(b))

	var p Policy
	require.NoError(t, p.UnmarshalText([]byte("strict-containment")))
	assert.Equal(t, StrictContainment, p)
	assert.Error(t, p.UnmarshalText([]byte("bogus")))

	_, err = Policy(42).MarshalText()
	assert.Error(t, err)
}

func TestPolicy_Active(t *testing.T) {
	w := Window{StartNs: 100, EndNs: 200}

	// {strict, any, start-in}
	cases := []struct {
		name   string
		s, e   int64
		strict bool
		any    bool
		start  bool
		dup    bool
	}{
		{name: "inside", s: 120, e: 180, strict: true, any: true, start: true},
		{name: "exactly_window", s: 100, e: 200, strict: true, any: true, start: true},
		{name: "starts_at_end_edge", s: 200, e: 250},
		{name: "ends_at_start_edge", s: 50, e: 100},
		{name: "starts_inside_runs_past", s: 150, e: 250, any: true, start: true, dup: true},
		{name: "starts_before_ends_inside", s: 50, e: 150, any: true, dup: true},
		{name: "spans_window", s: 50, e: 250, any: true, dup: true},
		{name: "before", s: 10, e: 20},
		{name: "after", s: 300, e: 400},
		{name: "zero_length_at_start", s: 100, e: 100, strict: true, any: true, start: true},
		{name: "zero_length_at_end", s: 200, e: 200, any: true},
		{name: "ends_on_end_edge", s: 150, e: 200, strict: true, any: true, start: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.strict, StrictContainment.active(tc.s, tc.e, w), "strict")
			assert.Equal(t, tc.any, AnyOverlap.active(tc.s, tc.e, w), "any")
			assert.Equal(t, tc.any, AnyOverlapSpanDup.active(tc.s, tc.e, w), "any-dup")
			assert.Equal(t, tc.start, StartInWindow.active(tc.s, tc.e, w), "start")
			if tc.any {
				assert.Equal(t, tc.dup, AnyOverlapSpanDup.duplicates(tc.s, tc.e, w), "dup")
			}
			assert.False(t, AnyOverlap.duplicates(tc.s, tc.e, w))
		})
	}
}
