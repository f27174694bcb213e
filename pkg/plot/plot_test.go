package plot

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ja7ad/gpuwatt/pkg/trace"
	"github.com/ja7ad/gpuwatt/pkg/types"
)

func ramp(n int) []trace.PowerSample {
	out := make([]trace.PowerSample, n)
	for i := range out {
		out[i] = trace.PowerSample{TNs: int64(i) * 100_000_000, Watts: types.Watts(60 + 5*(i%7))}
	}
	return out
}

func TestSeries(t *testing.T) {
	xs, ys := Series([]trace.PowerSample{{TNs: 0, Watts: 10}, {TNs: 1_500_000_000, Watts: 20}})
	assert.Equal(t, []float64{0, 1.5}, xs)
	assert.Equal(t, []float64{10, 20}, ys)
}

func TestPowerPNG(t *testing.T) {
	for _, ema := range []float64{0, 0.3} {
		var buf bytes.Buffer
		require.NoError(t, PowerPNG(&buf, ramp(50), Options{EMA: ema, Width: 640, Height: 320}))

		img, err := png.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, 640, img.Bounds().Dx())
		assert.Equal(t, 320, img.Bounds().Dy())
	}
}

func TestPowerPNG_TooFewPoints(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, PowerPNG(&buf, ramp(1), Options{}), ErrTooFewPoints)
	assert.Zero(t, buf.Len())
}
