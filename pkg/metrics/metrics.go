// Package metrics exposes the statistics of an attribution run as Prometheus
// gauges. There is no HTTP endpoint; the registry is written to a text file in
// the exposition format, as read by node_exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ja7ad/gpuwatt/pkg/attribution"
	"github.com/ja7ad/gpuwatt/pkg/report"
)

const namespace = "gpuwatt"

// Recorder holds the gauges of one run.
type Recorder struct {
	reg *prometheus.Registry

	windows      prometheus.Gauge
	idleWindows  prometheus.Gauge
	activePairs  prometheus.Gauge
	events       prometheus.Gauge
	skipped      prometheus.Gauge
	attributed   prometheus.Gauge
	unattributed prometheus.Gauge
	duration     prometheus.Gauge
	kernelWatts  *prometheus.GaugeVec
	kernelJoules *prometheus.GaugeVec
}

// NewRecorder creates a recorder whose series carry target as the "run" label.
func NewRecorder(target string) *Recorder {
	constLabels := prometheus.Labels{"run": target}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: name, Help: help, ConstLabels: constLabels,
		})
	}

	r := &Recorder{
		reg:          prometheus.NewRegistry(),
		windows:      gauge("windows", "Number of power sample windows."),
		idleWindows:  gauge("idle_windows", "Windows without any active kernel."),
		activePairs:  gauge("active_pairs", "Window/kernel occurrences that received a share."),
		events:       gauge("kernel_events", "Kernel executions indexed for lookup."),
		skipped:      gauge("skipped_events", "Kernel executions dropped for lacking a label."),
		attributed:   gauge("attributed_watts_sum", "Sum of the readings of windows with active kernels."),
		unattributed: gauge("unattributed_watts_sum", "Sum of the readings of idle windows."),
		duration:     gauge("duration_seconds", "Time covered by the windows."),
		kernelWatts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "kernel_watts", Help: "Watts attributed to a kernel.", ConstLabels: constLabels,
		}, []string{"kernel"}),
		kernelJoules: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "kernel_joules", Help: "Energy attributed to a kernel.", ConstLabels: constLabels,
		}, []string{"kernel"}),
	}
	r.reg.MustRegister(
		r.windows, r.idleWindows, r.activePairs, r.events, r.skipped,
		r.attributed, r.unattributed, r.duration, r.kernelWatts, r.kernelJoules,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Observe sets the gauges from res. Only the top kernels by watts get a
// per-kernel series; topN <= 0 keeps all of them.
func (r *Recorder) Observe(res *attribution.Result, topN int) {
	s := res.Stats
	r.windows.Set(float64(s.Windows))
	r.idleWindows.Set(float64(s.IdleWindows))
	r.activePairs.Set(float64(s.ActivePairs))
	r.events.Set(float64(s.Events))
	r.skipped.Set(float64(s.SkippedEvents))
	r.attributed.Set(s.AttributedWatts)
	r.unattributed.Set(s.UnattributedWatts)
	r.duration.Set(float64(s.DurationNs) / 1e9)

	r.kernelWatts.Reset()
	r.kernelJoules.Reset()
	for _, row := range report.TopRows(res, topN) {
		r.kernelWatts.WithLabelValues(row.Label).Set(row.Watts)
		r.kernelJoules.WithLabelValues(row.Label).Set(row.Joules)
	}
}

// WriteTextfile writes the registry to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
