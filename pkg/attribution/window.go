package attribution

import (
	"fmt"

	"github.com/ja7ad/gpuwatt/pkg/trace"
	"github.com/ja7ad/gpuwatt/pkg/types"
)

// Window is the half-open interval [StartNs, EndNs) between two consecutive power
// samples. Watts is the reading of the earlier sample.
type Window struct {
	StartNs int64       `json:"start_ns"`
	EndNs   int64       `json:"end_ns"`
	Watts   types.Watts `json:"watts"`
}

// Empty reports whether w covers no time. Two samples with the same timestamp
// produce an empty window.
func (w Window) Empty() bool { return w.EndNs <= w.StartNs }

func (w Window) String() string {
	return fmt.Sprintf("[%d,%d) %s", w.StartNs, w.EndNs, w.Watts.Humanized())
}

// BuildWindows pairs each sample with its successor. N samples give exactly N-1
// contiguous windows; the last sample only closes the final window, so its
// reading is never attributed.
func BuildWindows(samples []trace.PowerSample) ([]Window, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientData, len(samples))
	}
	out := make([]Window, len(samples)-1)
	for i := range out {
		out[i] = Window{
			StartNs: samples[i].TNs,
			EndNs:   samples[i+1].TNs,
			Watts:   samples[i].Watts,
		}
	}
	return out, nil
}
