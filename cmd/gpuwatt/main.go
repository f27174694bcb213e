package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ja7ad/gpuwatt/pkg/attribution"
	"github.com/ja7ad/gpuwatt/pkg/config"
	"github.com/ja7ad/gpuwatt/pkg/logutil"
	"github.com/ja7ad/gpuwatt/pkg/metrics"
	"github.com/ja7ad/gpuwatt/pkg/plot"
	"github.com/ja7ad/gpuwatt/pkg/report"
	"github.com/ja7ad/gpuwatt/pkg/trace"
)

const (
	smiSuffix    = "-smi.csv"
	kernelSuffix = "_cuda_kern_exec_trace_base.csv"

	windowsSuffix = "_windows.json"
	htmlSuffix    = "_report.html"
	promSuffix    = "_gpuwatt.prom"
)

type opts struct {
	configPath  string
	powerPath   string
	kernelsPath string
	logLevel    string
	verbose     bool

	// run file overrides, applied only when the flag is set
	policy      string
	epochOffset time.Duration
	workers     int
	rebase      bool
	startCol    int
	durCol      int
	labelCol    int
	target      string
	outDir      string
	plot        bool
	ema         float64
	records     bool
	html        bool
	metrics     bool
	top         int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logutil.GetLogger().Error("gpuwatt failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var o opts

	root := &cobra.Command{
		Use:   "gpuwatt [flags] [RUN.csv]",
		Short: "Attribute GPU power samples to the kernels running under them",
		Long: `The gpuwatt tool correlates an nvidia-smi power trace with an nsys kernel
execution trace. Each interval between two power samples is split evenly over
the kernels active in it, and the per-kernel totals are written in collapsed
stack format for flame graph tools.

Given RUN.csv, the inputs RUN-smi.csv and RUN_cuda_kern_exec_trace_base.csv are
read and RUN_gpu.collapsed is written next to them.

Examples:
  gpuwatt traces/resnet.csv
  gpuwatt --power smi.csv --kernels kern.csv --target resnet --policy any-overlap
  gpuwatt --epoch-offset=-2.5s --records --html --metrics traces/resnet.csv`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := logutil.InitLogger(o.logLevel); err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			defer func() { _ = logutil.GetLogger().Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd, o, args)
		},
	}

	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	f := root.Flags()
	f.StringVarP(&o.configPath, "config", "c", "", "YAML run file; flags override its values")
	f.StringVar(&o.powerPath, "power", "", "power trace CSV (default RUN-smi.csv)")
	f.StringVar(&o.kernelsPath, "kernels", "", "kernel trace CSV (default RUN_cuda_kern_exec_trace_base.csv)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "log the active kernels of every window")

	f.StringVarP(&o.policy, "policy", "p", attribution.AnyOverlapSpanDup.String(),
		"overlap policy: "+strings.Join(attribution.PolicyNames(), ", "))
	f.DurationVar(&o.epochOffset, "epoch-offset", 0, "added to kernel times to reach the power clock (e.g. -1.5s)")
	f.IntVarP(&o.workers, "workers", "w", 1, "goroutines resolving windows")
	f.BoolVar(&o.rebase, "rebase-kernels", false, "shift kernel times so the first kernel starts at 0")
	f.IntVar(&o.startCol, "start-col", 4, "kernel trace column holding the start (ns)")
	f.IntVar(&o.durCol, "dur-col", 5, "kernel trace column holding the duration (ns)")
	f.IntVar(&o.labelCol, "label-col", -1, "kernel trace column holding the label (-1 = last)")
	f.StringVarP(&o.target, "target", "t", "", "run identifier used in outputs (default from the input name)")
	f.StringVarP(&o.outDir, "out-dir", "o", "", "output directory (default the power trace's directory)")
	f.BoolVar(&o.plot, "plot", true, "write the power plot and power CSV")
	f.Float64Var(&o.ema, "ema", 0, "EMA alpha for a smoothed plot overlay [0..1], 0 = off")
	f.BoolVar(&o.records, "records", false, "write the per-window records as JSON")
	f.BoolVar(&o.html, "html", false, "write an HTML report")
	f.BoolVar(&o.metrics, "metrics", false, "write Prometheus textfile metrics")
	f.IntVar(&o.top, "top", 20, "kernels shown in the summary (0 = all)")

	root.AddCommand(newInspectCmd(), newConfigCmd())
	return root
}

// settings merges the run file (or defaults) with the flags the user set.
func settings(cmd *cobra.Command, o opts) (config.File, error) {
	file := config.Default()
	if o.configPath != "" {
		var err error
		if file, err = config.Load(o.configPath); err != nil {
			return config.File{}, err
		}
	}

	set := cmd.Flags().Changed
	if set("policy") {
		file.Policy = o.policy
	}
	if set("epoch-offset") {
		file.EpochOffset = o.epochOffset
	}
	if set("workers") {
		file.Workers = o.workers
	}
	if set("rebase-kernels") {
		file.RebaseKernels = o.rebase
	}
	if set("start-col") {
		file.Columns.Start = o.startCol
	}
	if set("dur-col") {
		file.Columns.Duration = o.durCol
	}
	if set("label-col") {
		file.Columns.Label = o.labelCol
	}
	if set("target") {
		file.Target = o.target
	}
	if set("out-dir") {
		file.OutDir = o.outDir
	}
	if set("plot") {
		file.Plot = o.plot
	}
	if set("ema") {
		file.EMA = o.ema
	}
	if set("records") {
		file.Records = o.records
	}
	if set("html") {
		file.HTML = o.html
	}
	if set("metrics") {
		file.Metrics = o.metrics
	}
	if set("top") {
		file.Top = o.top
	}
	return file, file.Validate()
}

type paths struct {
	power, kernels string
	target, outDir string
}

// resolvePaths derives the input files and the run identifier. RUN.csv names
// both inputs; --power and --kernels override them one by one.
func resolvePaths(o opts, file config.File, args []string) (paths, error) {
	var p paths
	var base string
	if len(args) == 1 {
		base = strings.TrimSuffix(args[0], filepath.Ext(args[0]))
		p.power = base + smiSuffix
		p.kernels = base + kernelSuffix
	}
	if o.powerPath != "" {
		p.power = o.powerPath
	}
	if o.kernelsPath != "" {
		p.kernels = o.kernelsPath
	}
	if p.power == "" || p.kernels == "" {
		return paths{}, fmt.Errorf("need RUN.csv or both --power and --kernels")
	}

	p.target = file.Target
	if p.target == "" {
		if base != "" {
			p.target = filepath.Base(base)
		} else {
			name := filepath.Base(p.power)
			p.target = strings.TrimSuffix(name, filepath.Ext(name))
		}
	}

	p.outDir = file.OutDir
	if p.outDir == "" {
		p.outDir = filepath.Dir(p.power)
	}
	return p, nil
}

func run(ctx context.Context, cmd *cobra.Command, o opts, args []string) error {
	logger := logutil.GetLogger()

	file, err := settings(cmd, o)
	if err != nil {
		return err
	}
	p, err := resolvePaths(o, file, args)
	if err != nil {
		return err
	}
	cfg, err := file.Attribution()
	if err != nil {
		return err
	}
	cfg.KeepRecords = file.Records || o.verbose

	logger.Info("inputs",
		zap.String("power", p.power),
		zap.String("kernels", p.kernels),
		zap.String("target", p.target),
		zap.Stringer("policy", cfg.Policy),
		zap.Duration("epoch_offset", cfg.EpochOffset),
	)

	samples, err := loadPower(p.power)
	if err != nil {
		return err
	}
	events, err := loadKernels(p.kernels, file.Columns)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		logger.Warn("kernel trace is empty, every window is idle", zap.String("kernels", p.kernels))
	}
	if file.RebaseKernels {
		var first int64
		events, first = trace.Rebase(events)
		logger.Info("kernels rebased", zap.Int64("first_start_ns", first))
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	pipe := attribution.New(&cfg)
	res, err := pipe.Run(samples, events)
	if err != nil {
		return err
	}
	logger.Info("attributed",
		zap.Int("windows", res.Stats.Windows),
		zap.Int("idle_windows", res.Stats.IdleWindows),
		zap.Int("kernels", res.Totals.Len()),
		zap.Float64("coverage", res.Stats.Coverage()),
	)
	if o.verbose {
		for _, r := range res.Records {
			logger.Info("window",
				zap.Int64("start_ns", r.StartNs),
				zap.Int64("end_ns", r.EndNs),
				zap.Float64("watts", r.Watts.Float()),
				zap.Strings("kernels", r.Labels),
			)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := writeOutputs(p, file, pipe.Config().Policy, samples, res); err != nil {
		return err
	}

	printSummary(os.Stdout, p.target, res, file.Top)
	return nil
}

func loadPower(path string) ([]trace.PowerSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("power trace: %w", err)
	}
	defer f.Close()

	rows, err := trace.ReadPower(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	samples, err := trace.Normalize(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

func loadKernels(path string, cols trace.KernelColumns) ([]trace.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kernel trace: %w", err)
	}
	defer f.Close()

	events, err := trace.ReadKernels(f, cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

func writeOutputs(p paths, file config.File, policy attribution.Policy, samples []trace.PowerSample, res *attribution.Result) error {
	logger := logutil.GetLogger()
	out := func(suffix string) string { return filepath.Join(p.outDir, p.target+suffix) }

	collapsed := out(report.CollapsedSuffix)
	if err := writeFile(collapsed, func(w io.Writer) error {
		return report.WriteCollapsed(w, p.target, res.Totals.Totals())
	}); err != nil {
		return fmt.Errorf("collapsed: %w", err)
	}
	logger.Info("written", zap.String("file", collapsed))

	if file.Plot {
		png := out(plot.PNGSuffix)
		err := writeFile(png, func(w io.Writer) error {
			return plot.PowerPNG(w, samples, plot.Options{EMA: file.EMA})
		})
		if err != nil {
			// The attribution result stands on its own; a chart failure is not fatal.
			logger.Warn("plot failed", zap.String("file", png), zap.Error(err))
		} else {
			logger.Info("written", zap.String("file", png))
		}

		csvPath := out(report.PowerCSVSuffix)
		if err := writeFile(csvPath, func(w io.Writer) error {
			return report.WritePowerCSV(w, samples)
		}); err != nil {
			return fmt.Errorf("power csv: %w", err)
		}
		logger.Info("written", zap.String("file", csvPath))
	}

	if file.Records {
		path := out(windowsSuffix)
		doc := report.Windows{Target: p.target, Policy: policy, Stats: res.Stats, Records: res.Records}
		if err := writeFile(path, func(w io.Writer) error { return report.WriteWindowsJSON(w, doc) }); err != nil {
			return fmt.Errorf("records: %w", err)
		}
		logger.Info("written", zap.String("file", path))
	}

	if file.HTML {
		path := out(htmlSuffix)
		if err := writeFile(path, func(w io.Writer) error {
			return report.WriteHTML(w, p.target, policy, res, time.Now())
		}); err != nil {
			return fmt.Errorf("html: %w", err)
		}
		logger.Info("written", zap.String("file", path))
	}

	if file.Metrics {
		path := out(promSuffix)
		rec := metrics.NewRecorder(p.target)
		rec.Observe(res, file.Top)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		if err := rec.WriteTextfile(path); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		logger.Info("written", zap.String("file", path))
	}
	return nil
}

// writeFile creates path (and its directory) and hands it to fn. Close errors
// are reported together with fn's.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))
	return fn(f)
}

func printSummary(w io.Writer, target string, res *attribution.Result, top int) {
	s := res.Stats
	fmt.Fprintf(w, _console, target, s.Windows, float64(s.DurationNs)/1e9, s.IdleWindows,
		s.Events, s.SkippedEvents, res.Stats.MeanWatts(), 100*s.Coverage())

	tw := newTable(w)
	printTableHeader(tw)
	for _, r := range report.TopRows(res, top) {
		printTableRow(tw, r)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printTableHeader(tw *tabwriter.Writer) {
	fmt.Fprintln(tw, "KERNEL\tWATTS\tENERGY (J)\tSHARE")
	fmt.Fprintln(tw, "------\t-----\t----------\t-----")
}

func printTableRow(tw *tabwriter.Writer, r report.Row) {
	fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.2f%%\n", shorten(r.Label, 60), r.Watts, r.Joules, r.Percent)
}

func shorten(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}

const _console = `gpuwatt - GPU power attribution per kernel

       Run: %s
       Windows: %d over %.3f s (%d idle)
       Kernels: %d indexed, %d without label
       Mean power: %.3f W
       Coverage: %.1f%%

`
