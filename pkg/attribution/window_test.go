package attribution

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/gpuwatt/pkg/trace"
	"github.com/ja7ad/gpuwatt/pkg/types"
)

func samplesAt(ts []int64, watts ...float64) []trace.PowerSample {
	out := make([]trace.PowerSample, len(ts))
	for i, t := range ts {
		var w float64
		if i < len(watts) {
			w = watts[i]
		}
		out[i] = trace.PowerSample{TNs: t, Watts: types.Watts(w)}
	}
	return out
}

func TestBuildWindows_Basic(t *testing.T) {
	ws, err := BuildWindows(samplesAt([]int64{0, 1_000_000_000, 2_000_000_000}, 10, 20, 30))
	require.NoError(t, err)
	assert.Equal(t, []Window{
		{StartNs: 0, EndNs: 1_000_000_000, Watts: 10},
		{StartNs: 1_000_000_000, EndNs: 2_000_000_000, Watts: 20},
	}, ws, "last sample only closes the final window")
}

func TestBuildWindows_InsufficientData(t *testing.T) {
	for _, n := range []int{0, 1} {
		ws, err := BuildWindows(samplesAt(make([]int64, n)))
		assert.ErrorIs(t, err, ErrInsufficientData, "n=%d", n)
		assert.Nil(t, ws)
	}
}

func TestBuildWindows_PartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 200; iter++ {
		n := 2 + rng.Intn(50)
		ts := make([]int64, n)
		for i := 1; i < n; i++ {
			ts[i] = ts[i-1] + 1 + rng.Int63n(1_000_000)
		}
		ws, err := BuildWindows(samplesAt(ts))
		require.NoError(t, err)
		require.Len(t, ws, n-1)

		assert.Equal(t, ts[0], ws[0].StartNs)
		assert.Equal(t, ts[n-1], ws[len(ws)-1].EndNs)
		for i, w := range ws {
			require.Less(t, w.StartNs, w.EndNs)
			if i > 0 {
				require.Equal(t, ws[i-1].EndNs, w.StartNs, "windows are contiguous")
			}
		}
	}
}

func TestBuildWindows_DuplicateTimestamp(t *testing.T) {
	ws, err := BuildWindows(samplesAt([]int64{0, 5, 5, 9}, 1, 2, 3, 4))
	require.NoError(t, err)
	require.Len(t, ws, 3)
	assert.True(t, ws[1].Empty())
	assert.False(t, ws[0].Empty())
}

func TestWindow_String(t *testing.T) {
	assert.Equal(t, "[0,10) 12.50 W", Window{StartNs: 0, EndNs: 10, Watts: 12.5}.String())
}
