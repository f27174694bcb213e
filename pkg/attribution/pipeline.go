package attribution

import (
	"sync"
	"time"

	"github.com/ja7ad/gpuwatt/pkg/trace"
)

// Pipeline turns power samples and kernel events into per-label totals.
type Pipeline struct {
	cfg *Config
}

// New creates a pipeline with the given config.
// Fields set in cfg override defaults.
// Notes:
//   - an unset or unknown Policy keeps the default
//   - EpochOffset is accepted verbatim, negative offsets included
//   - Workers below 1 is treated as 1
func New(cfg *Config) *Pipeline {
	base := _defaultConfig()
	if cfg == nil {
		return &Pipeline{cfg: base}
	}

	merged := *base
	if cfg.Policy.Valid() {
		merged.Policy = cfg.Policy
	}
	merged.EpochOffset = cfg.EpochOffset
	if cfg.Workers > 1 {
		merged.Workers = cfg.Workers
	}
	merged.KeepRecords = cfg.KeepRecords

	return &Pipeline{cfg: &merged}
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config { return *p.cfg }

// Run builds the windows, resolves the active events of each, and attributes the
// window's watts. It fails only when fewer than two samples are given; an empty
// event list yields an empty aggregate.
func (p *Pipeline) Run(samples []trace.PowerSample, events []trace.Event) (*Result, error) {
	windows, err := BuildWindows(samples)
	if err != nil {
		return nil, err
	}
	res := NewResolver(events, p.cfg.Policy, p.cfg.EpochOffset.Nanoseconds())

	workers := p.cfg.Workers
	if workers > len(windows) {
		workers = len(windows)
	}
	if workers <= 1 {
		out := p.attribute(res, windows)
		out.Stats.Events = res.Len()
		out.Stats.SkippedEvents = res.Skipped()
		return out, nil
	}

	// Contiguous chunks keep the merged records in window order.
	parts := make([]*Result, workers)
	size := (len(windows) + workers - 1) / workers
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		lo := i * size
		if lo >= len(windows) {
			break
		}
		hi := min(lo+size, len(windows))
		wg.Add(1)
		go func(i int, ws []Window) {
			defer wg.Done()
			parts[i] = p.attribute(res, ws)
		}(i, windows[lo:hi])
	}
	wg.Wait()

	out := &Result{Totals: NewMap(), Energy: NewMap()}
	for _, part := range parts {
		if part == nil {
			continue
		}
		out.Totals.Merge(part.Totals)
		out.Energy.Merge(part.Energy)
		out.Records = append(out.Records, part.Records...)
		out.Stats.add(part.Stats)
	}
	out.Stats.Events = res.Len()
	out.Stats.SkippedEvents = res.Skipped()
	return out, nil
}

// attribute runs the resolver and attributor over ws into fresh maps.
func (p *Pipeline) attribute(res *Resolver, ws []Window) *Result {
	out := &Result{Totals: NewMap(), Energy: NewMap()}
	if p.cfg.KeepRecords {
		out.Records = make([]Record, 0, len(ws))
	}

	for _, w := range ws {
		out.Stats.Windows++
		out.Stats.DurationNs += w.EndNs - w.StartNs

		labels := res.Active(w)
		switch {
		case w.Empty():
			out.Stats.EmptyWindows++
		case len(labels) == 0:
			out.Stats.IdleWindows++
			out.Stats.UnattributedWatts += float64(w.Watts)
		default:
			out.Stats.ActivePairs += len(labels)
			out.Stats.AttributedWatts += float64(w.Watts)
		}

		Attribute(w, labels, out.Totals)
		Split(w.Watts.Joules(time.Duration(w.EndNs-w.StartNs)), labels, out.Energy)

		if p.cfg.KeepRecords {
			rec := Record{Window: w, Labels: labels}
			if len(labels) > 0 {
				rec.Share = float64(w.Watts) / float64(len(labels))
			}
			out.Records = append(out.Records, rec)
		}
	}
	return out
}
