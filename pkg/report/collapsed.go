// Package report writes the artifacts of an attribution run: the collapsed-stack
// file read by flame graph tools, the power series as CSV, the per-window records
// as JSON, and a standalone HTML summary.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ja7ad/gpuwatt/pkg/util"
)

// CollapsedSuffix is appended to the run identifier to name the collapsed file.
const CollapsedSuffix = "_gpu.collapsed"

var (
	// ErrCollapsedLine indicates a line that is not "<target>;<label> <value>".
	ErrCollapsedLine = errors.New("report: malformed collapsed line")

	// ErrMixedTargets indicates lines with different run identifiers in one file.
	ErrMixedTargets = errors.New("report: mixed run identifiers")
)

var (
	labelReplacer  = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	targetReplacer = strings.NewReplacer(";", "_", "\r\n", " ", "\n", " ", "\r", " ")
)

// CollapsedName returns the conventional file name for target.
func CollapsedName(target string) string { return target + CollapsedSuffix }

// WriteCollapsed writes one "<target>;<label> <value>" line per label, labels in
// lexical order. Line breaks inside a label are replaced with spaces. The target
// is a single frame: its line breaks become spaces and its ';' become '_'.
func WriteCollapsed(w io.Writer, target string, totals map[string]float64) error {
	target = targetReplacer.Replace(target)
	labels := make([]string, 0, len(totals))
	for l := range totals {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	bw := bufio.NewWriter(w)
	for _, l := range labels {
		if _, err := fmt.Fprintf(bw, "%s;%s %s\n", target, labelReplacer.Replace(l), util.FmtFloat(totals[l])); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadCollapsed parses a file written by WriteCollapsed. Repeated labels are
// summed. Blank lines are skipped.
func ReadCollapsed(r io.Reader) (string, map[string]float64, error) {
	var target string
	totals := make(map[string]float64)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sp := strings.LastIndexByte(line, ' ')
		if sp < 0 {
			return "", nil, fmt.Errorf("%w: line %d: no value", ErrCollapsedLine, n)
		}
		v, err := strconv.ParseFloat(line[sp+1:], 64)
		if err != nil {
			return "", nil, fmt.Errorf("%w: line %d: %v", ErrCollapsedLine, n, err)
		}
		t, label, ok := strings.Cut(line[:sp], ";")
		if !ok {
			return "", nil, fmt.Errorf("%w: line %d: no ';'", ErrCollapsedLine, n)
		}
		if target == "" {
			target = t
		} else if t != target {
			return "", nil, fmt.Errorf("%w: %q and %q", ErrMixedTargets, target, t)
		}
		totals[label] += v
	}
	if err := sc.Err(); err != nil {
		return "", nil, err
	}
	return target, totals, nil
}
