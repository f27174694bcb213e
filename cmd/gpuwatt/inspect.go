package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ja7ad/gpuwatt/pkg/config"
	"github.com/ja7ad/gpuwatt/pkg/report"
	"github.com/ja7ad/gpuwatt/pkg/util"
)

func newInspectCmd() *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "inspect FILE.collapsed",
		Short: "Print the heaviest kernels of a collapsed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			target, totals, err := report.ReadCollapsed(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			var sum float64
			rows := make([]report.Row, 0, len(totals))
			for l, v := range totals {
				rows = append(rows, report.Row{Label: l, Watts: v})
				sum += v
			}
			sort.Slice(rows, func(i, j int) bool {
				if rows[i].Watts != rows[j].Watts {
					return rows[i].Watts > rows[j].Watts
				}
				return rows[i].Label < rows[j].Label
			})
			if top > 0 && len(rows) > top {
				rows = rows[:top]
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s: %d kernels, %s W total\n\n", target, len(totals), util.FmtFloat(sum))
			tw := newTable(w)
			fmt.Fprintln(tw, "KERNEL\tWATTS\tSHARE")
			fmt.Fprintln(tw, "------\t-----\t-----")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%.3f\t%.2f%%\n", shorten(r.Label, 60), r.Watts, 100*util.SafeDiv(r.Watts, sum))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&top, "top", 20, "kernels shown (0 = all)")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config [FILE.yaml]",
		Short: "Print the effective run file (defaults, or FILE merged over them)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := config.Default()
			if len(args) == 1 {
				var err error
				if file, err = config.Load(args[0]); err != nil {
					return err
				}
			}
			b, err := file.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
