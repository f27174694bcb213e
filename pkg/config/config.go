// Package config loads an optional YAML run file. Every key is optional;
// missing keys keep the defaults.
//
//	policy: any-overlap-with-span-duplication
//	epoch_offset: -1.5s
//	workers: 4
//	rebase_kernels: false
//	columns: {start: 4, duration: 5, label: -1}
//	target: run1
//	out_dir: ./out
//	plot: true
//	ema: 0.3
//	records: true
//	html: true
//	metrics: true
//	top: 20
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ja7ad/gpuwatt/pkg/attribution"
	"github.com/ja7ad/gpuwatt/pkg/trace"
)

// File is the run file.
type File struct {
	Policy        string              `yaml:"policy"`
	EpochOffset   time.Duration       `yaml:"epoch_offset"`
	Workers       int                 `yaml:"workers"`
	RebaseKernels bool                `yaml:"rebase_kernels"`
	Columns       trace.KernelColumns `yaml:"columns"`
	Target        string              `yaml:"target"`
	OutDir        string              `yaml:"out_dir"`
	Plot          bool                `yaml:"plot"`
	EMA           float64             `yaml:"ema"`
	Records       bool                `yaml:"records"`
	HTML          bool                `yaml:"html"`
	Metrics       bool                `yaml:"metrics"`
	Top           int                 `yaml:"top"`
}

// Default returns the settings used when no run file is given.
func Default() File {
	return File{
		Policy:  attribution.AnyOverlapSpanDup.String(),
		Workers: 1,
		Columns: trace.DefaultKernelColumns(),
		Plot:    true,
		Top:     20,
	}
}

// Load reads path on top of Default. Unknown keys are an error.
func Load(path string) (File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: %w", err)
	}
	f, err := Parse(b)
	if err != nil {
		return File{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a run file on top of Default.
func Parse(b []byte) (File, error) {
	f := Default()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, err
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate checks value ranges.
func (f File) Validate() error {
	if _, err := attribution.ParsePolicy(f.Policy); err != nil {
		return err
	}
	if f.EMA < 0 || f.EMA > 1 {
		return fmt.Errorf("config: ema must be in [0,1], got %g", f.EMA)
	}
	if f.Columns.Start < 0 || f.Columns.Duration < 0 {
		return fmt.Errorf("config: column indices must be >= 0 (start=%d duration=%d)", f.Columns.Start, f.Columns.Duration)
	}
	return nil
}

// Attribution converts f into a pipeline config.
func (f File) Attribution() (attribution.Config, error) {
	p, err := attribution.ParsePolicy(f.Policy)
	if err != nil {
		return attribution.Config{}, err
	}
	return attribution.Config{
		Policy:      p,
		EpochOffset: f.EpochOffset,
		Workers:     f.Workers,
		KeepRecords: f.Records,
	}, nil
}

// Marshal renders f as YAML, e.g. for `gpuwatt config`.
func (f File) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}
