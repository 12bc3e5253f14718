package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/emission-sim/emission-sim/sim/sed"
	"github.com/emission-sim/emission-sim/sim/units"
)

// ColumnOptions describes the column layout of a text snapshot. Columns appear
// in this order: position (x y z) or cell extent (xmin ymin zmin xmax ymax zmax),
// then velocity (vx vy vz) if Velocity, dispersion if Dispersion, bias factor if
// Bias, then one column per family parameter.
type ColumnOptions struct {
	Options `yaml:",inline"`
	Cells   bool `yaml:"cells"`
}

// Column is one expected input column.
type Column struct {
	Description string
	Quantity    string
	Unit        string // default unit, overridden by a header declaration
}

// Layout returns the expected columns for the options and family parameters.
func Layout(opts ColumnOptions, params []sed.Parameter) []Column {
	var cols []Column
	if opts.Cells {
		for _, d := range []string{"xmin", "ymin", "zmin", "xmax", "ymax", "zmax"} {
			cols = append(cols, Column{d, units.Length, "pc"})
		}
	} else {
		for _, d := range []string{"x", "y", "z"} {
			cols = append(cols, Column{d, units.Length, "pc"})
		}
	}
	if opts.Velocity {
		for _, d := range []string{"vx", "vy", "vz"} {
			cols = append(cols, Column{d, units.Velocity, "km/s"})
		}
	}
	if opts.Dispersion {
		cols = append(cols, Column{"velocity dispersion", units.Velocity, "km/s"})
	}
	if opts.Bias {
		cols = append(cols, Column{"bias factor", units.Dimensionless, ""})
	}
	for _, p := range params {
		cols = append(cols, Column{p.Description, p.Quantity, p.DefaultUnit})
	}
	return cols
}

// headerPattern matches "# column 3: description (unit)"; the unit is optional.
var headerPattern = regexp.MustCompile(`^#\s*[Cc]olumn\s+(\d+)\s*:\s*([^(]*?)\s*(?:\(([^)]*)\))?\s*$`)

// ReadColumns reads a whitespace-separated column text snapshot from path.
func ReadColumns(path string, opts ColumnOptions, params []sed.Parameter) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer func() { _ = f.Close() }()
	s, err := DecodeColumns(f, opts, params)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	logrus.Infof("Imported %d entities from %s (%d columns)", s.Count(), path, len(Layout(opts, params)))
	return s, nil
}

// DecodeColumns parses column text from r. Lines starting with '#' are comments,
// except header lines of the form "# column N: description (unit)" which set
// the unit of column N (1-based). Extra data columns are ignored.
func DecodeColumns(r io.Reader, opts ColumnOptions, params []sed.Parameter) (*Memory, error) {
	cols := Layout(opts, params)
	factors := make([]float64, len(cols))
	for i, c := range cols {
		fac, err := units.ToSI(c.Quantity, c.Unit)
		if err != nil {
			return nil, fmt.Errorf("column %d (%s): %w", i+1, c.Description, err)
		}
		factors[i] = fac
	}

	var (
		entities []Entity
		row      = make([]float64, len(cols))
		lineNo   int
		warned   bool
	)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line[0] == '#' {
			if len(entities) > 0 {
				continue
			}
			if err := applyHeader(line, cols, factors); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < len(cols) {
			return nil, fmt.Errorf("line %d: %d columns, expected %d", lineNo, len(fields), len(cols))
		}
		if len(fields) > len(cols) && !warned {
			logrus.Warnf("snapshot line %d has %d columns, ignoring all beyond %d", lineNo, len(fields), len(cols))
			warned = true
		}
		for i := range cols {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", lineNo, i+1, err)
			}
			row[i] = v * factors[i]
		}
		entities = append(entities, entityFromRow(row, opts, len(params)))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewMemory(entities, opts.Options), nil
}

// applyHeader updates the conversion factor of the column declared on line.
func applyHeader(line string, cols []Column, factors []float64) error {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	n, _ := strconv.Atoi(m[1])
	if n < 1 || n > len(cols) {
		return nil
	}
	c := &cols[n-1]
	unit := strings.TrimSpace(m[3])
	if unit == "" && c.Quantity != units.Dimensionless {
		return nil
	}
	fac, err := units.ToSI(c.Quantity, unit)
	if err != nil {
		return fmt.Errorf("column %d (%s): %w", n, c.Description, err)
	}
	c.Unit = unit
	factors[n-1] = fac
	return nil
}

func entityFromRow(row []float64, opts ColumnOptions, numParams int) Entity {
	var e Entity
	i := 0
	if opts.Cells {
		e.Cell = &Box{
			Min: r3.Vec{X: row[0], Y: row[1], Z: row[2]},
			Max: r3.Vec{X: row[3], Y: row[4], Z: row[5]},
		}
		i = 6
	} else {
		e.Position = r3.Vec{X: row[0], Y: row[1], Z: row[2]}
		i = 3
	}
	if opts.Velocity {
		e.Velocity = r3.Vec{X: row[i], Y: row[i+1], Z: row[i+2]}
		i += 3
	}
	if opts.Dispersion {
		e.Dispersion = row[i]
		i++
	}
	if opts.Bias {
		e.Bias = row[i]
		i++
	}
	e.Params = append([]float64(nil), row[i:i+numParams]...)
	return e
}

// WriteColumns writes s as column text with unit headers, converting from SI
// to the default units of the layout.
func WriteColumns(w io.Writer, s *Memory, opts ColumnOptions, params []sed.Parameter) error {
	cols := Layout(opts, params)
	bw := bufio.NewWriter(w)
	for i, c := range cols {
		if c.Unit == "" {
			fmt.Fprintf(bw, "# column %d: %s\n", i+1, c.Description)
		} else {
			fmt.Fprintf(bw, "# column %d: %s (%s)\n", i+1, c.Description, c.Unit)
		}
	}
	factors := make([]float64, len(cols))
	for i, c := range cols {
		fac, err := units.ToSI(c.Quantity, c.Unit)
		if err != nil {
			return err
		}
		factors[i] = fac
	}
	for m := 0; m < s.Count(); m++ {
		row := rowFromEntity(s.Entity(m), opts)
		for i, v := range row {
			if i > 0 {
				bw.WriteByte(' ')
			}
			bw.WriteString(strconv.FormatFloat(v/factors[i], 'g', -1, 64))
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func rowFromEntity(e Entity, opts ColumnOptions) []float64 {
	var row []float64
	if opts.Cells {
		b := e.Cell
		if b == nil {
			b = &Box{Min: e.Position, Max: e.Position}
		}
		row = append(row, b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	} else {
		row = append(row, e.Position.X, e.Position.Y, e.Position.Z)
	}
	if opts.Velocity {
		row = append(row, e.Velocity.X, e.Velocity.Y, e.Velocity.Z)
	}
	if opts.Dispersion {
		row = append(row, e.Dispersion)
	}
	if opts.Bias {
		row = append(row, e.Bias)
	}
	return append(row, e.Params...)
}
