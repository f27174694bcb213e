package attribution

import (
	"time"

	"github.com/ja7ad/gpuwatt/pkg/util"
)

// Config holds the run parameters.
//   - Policy: overlap policy; unset selects AnyOverlapSpanDup
//   - EpochOffset: added to every kernel start to express it in the power
//     trace's clock (power_time = kernel_time + EpochOffset)
//   - Workers: windows are split over this many goroutines; <= 1 runs inline
//   - KeepRecords: also return the per-window active labels
type Config struct {
	Policy      Policy        `yaml:"policy" json:"policy"`
	EpochOffset time.Duration `yaml:"epoch_offset" json:"epoch_offset"`
	Workers     int           `yaml:"workers" json:"workers"`
	KeepRecords bool          `yaml:"keep_records" json:"keep_records"`
}

// _defaultConfig returns a Config that reproduces the observed attribution:
// span duplication, no clock offset, single-threaded.
func _defaultConfig() *Config {
	return &Config{
		Policy:      AnyOverlapSpanDup,
		EpochOffset: 0,
		Workers:     1,
		KeepRecords: false,
	}
}

// Record is the reconciled view of one window: which labels were active and the
// share each occurrence received.
type Record struct {
	Window
	Labels []string `json:"labels"`
	Share  float64  `json:"share"`
}

// Stats summarises a run.
type Stats struct {
	Windows           int     `json:"windows"`
	IdleWindows       int     `json:"idle_windows"`  // non-empty windows without active events
	EmptyWindows      int     `json:"empty_windows"` // zero-length windows
	ActivePairs       int     `json:"active_pairs"`  // (window, label) occurrences, duplicates included
	Events            int     `json:"events"`
	SkippedEvents     int     `json:"skipped_events"`
	AttributedWatts   float64 `json:"attributed_watts"`
	UnattributedWatts float64 `json:"unattributed_watts"`
	DurationNs        int64   `json:"duration_ns"`
}

func (s *Stats) add(o Stats) {
	s.Windows += o.Windows
	s.IdleWindows += o.IdleWindows
	s.EmptyWindows += o.EmptyWindows
	s.ActivePairs += o.ActivePairs
	s.AttributedWatts += o.AttributedWatts
	s.UnattributedWatts += o.UnattributedWatts
	s.DurationNs += o.DurationNs
}

// MeanWatts is the average reading over the attributed and idle windows.
func (s Stats) MeanWatts() float64 {
	return util.SafeDiv(s.AttributedWatts+s.UnattributedWatts, float64(s.Windows-s.EmptyWindows))
}

// Coverage is the fraction of window watts that reached some label.
func (s Stats) Coverage() float64 {
	return util.Clamp01(util.SafeDiv(s.AttributedWatts, s.AttributedWatts+s.UnattributedWatts))
}

// Result is the outcome of one run.
type Result struct {
	Totals  *Map     // watts per label
	Energy  *Map     // joules per label: each share times its window's duration
	Records []Record // only with Config.KeepRecords
	Stats   Stats
}
