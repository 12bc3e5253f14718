package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emission-sim/emission-sim/sim/table"
)

var (
	tableQuantity   string    // quantity selected from multi-quantity binary tables
	tableWavelength float64   // spectral coordinate to evaluate, 0 = none
	tableParams     []float64 // parameter coordinates for evaluation and CDF
	tableCDFRange   []float64 // min,max of the spectral sub-range to integrate
)

// --- emission-sim inspect-table ---

var inspectTableCmd = &cobra.Command{
	Use:   "inspect-table <file>",
	Short: "Print the axes of a stored table and optionally evaluate it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		t, err := table.ReadFile(args[0], tableQuantity)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if err := inspectTable(os.Stdout, t, tableWavelength, tableParams, tableCDFRange); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// inspectTable describes t and, when requested, evaluates it at a point or
// integrates it over a spectral sub-range.
func inspectTable(w io.Writer, t *table.Table, wavelength float64, params, cdfRange []float64) error {
	q := t.Quantity()
	size := 1
	fmt.Fprintf(w, "Table %s: %s (%s, %s scale)\n", t.Name(), q.Name, q.Unit, q.Scale)
	for k := 0; k < t.NumAxes(); k++ {
		ax := t.Axis(k)
		size *= len(ax.Points)
		r := t.AxisRange(k)
		fmt.Fprintf(w, "  axis %d: %-8s %-8s %-3s %6s points  [%g, %g]\n",
			k, ax.Name, "("+ax.Unit+")", ax.Scale, humanize.Comma(int64(len(ax.Points))), r.Min, r.Max)
	}
	fmt.Fprintf(w, "  values: %s\n", humanize.Comma(int64(size)))

	if wavelength == 0 && len(cdfRange) == 0 {
		return nil
	}
	if len(params) != t.NumAxes()-1 {
		return fmt.Errorf("table has %d parameter axes, got %d --params values", t.NumAxes()-1, len(params))
	}
	if wavelength != 0 {
		fmt.Fprintf(w, "value at %g %v: %g %s\n", wavelength, params, t.Value(wavelength, params...), q.Unit)
	}
	if len(cdfRange) > 0 {
		if len(cdfRange) != 2 {
			return fmt.Errorf("--cdf takes min,max, got %v", cdfRange)
		}
		var d table.Distribution
		total := t.CDF(&d, table.NewRange(cdfRange[0], cdfRange[1]), params...)
		fmt.Fprintf(w, "integral over [%g, %g]: %g (%d samples)\n", cdfRange[0], cdfRange[1], total, d.Len())
		if d.Len() > 0 {
			fmt.Fprintf(w, "median wavelength: %g\n", d.Sample(0.5))
		}
	}
	return nil
}

// --- emission-sim convert-table ---

var convertTableCmd = &cobra.Command{
	Use:   "convert-table <in> <out>",
	Short: "Convert a stored table between the binary (.stab) and YAML (.stab.yaml) forms",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if err := convertTable(args[0], args[1], tableQuantity); err != nil {
			logrus.Fatalf("Table conversion failed: %v", err)
		}
		logrus.Infof("Wrote %s", args[1])
	},
}

// isYAMLPath reports whether path names a YAML table.
func isYAMLPath(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

// convertTable decodes in and encodes it to out, choosing both codecs by
// file extension.
func convertTable(in, out, quantity string) error {
	t, err := table.ReadFile(in, quantity)
	if err != nil {
		return err
	}
	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("creating %s: %w", out, err)
	}
	if isYAMLPath(out) {
		err = table.EncodeYAML(f, t)
	} else {
		err = table.EncodeStab(f, t)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	for _, c := range []*cobra.Command{inspectTableCmd, convertTableCmd} {
		c.Flags().StringVar(&tableQuantity, "quantity", "", "Quantity to read from binary tables (default: first)")
	}
	inspectTableCmd.Flags().Float64Var(&tableWavelength, "wavelength", 0, "Spectral coordinate at which to evaluate the table")
	inspectTableCmd.Flags().Float64SliceVar(&tableParams, "params", nil, "Comma-separated parameter coordinates (table units)")
	inspectTableCmd.Flags().Float64SliceVar(&tableCDFRange, "cdf", nil, "Comma-separated min,max spectral range to integrate")
}
