// Package table implements immutable N-dimensional tabulated functions over one
// spectral axis (axis 0, wavelength) and zero or more parameter axes, loaded from
// stored-table resources.
//
// A Table supports point evaluation with per-axis linear or logarithmic
// interpolation and the construction of a normalized cumulative distribution over
// a sub-range of the spectral axis for a fixed parameter point (see CDF).
//
// Tables are built once during setup and are read-only afterwards, so any number
// of goroutines may query the same Table concurrently.
package table

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// MaxAxes is the largest number of axes a Table may have.
const MaxAxes = 8

// Scale selects the interpolation rule of an axis or quantity.
type Scale int

const (
	// Linear interpolates in the raw coordinate.
	Linear Scale = iota
	// Log interpolates in the logarithm of the coordinate.
	Log
)

func (s Scale) String() string {
	if s == Log {
		return "log"
	}
	return "lin"
}

// ParseScale parses "lin" or "log" (case-insensitive, surrounding spaces ignored).
func ParseScale(s string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lin", "linear":
		return Linear, nil
	case "log":
		return Log, nil
	default:
		return Linear, fmt.Errorf("unknown interpolation scale %q", s)
	}
}

// Axis is the sample grid of one table dimension.
type Axis struct {
	Name   string
	Unit   string
	Scale  Scale
	Points []float64 // strictly increasing
}

// Quantity describes the tabulated values.
type Quantity struct {
	Name  string
	Unit  string
	Scale Scale
}

// Table is an N-dimensional tabulated function. Values are stored densely with
// axis 0 varying fastest.
type Table struct {
	name     string
	axes     []Axis
	quantity Quantity
	values   []float64
	strides  []int
	logs     [][]float64 // natural log of the points of log-scaled axes, nil otherwise
}

// New builds a Table from explicit axes and values after validating that every
// axis is non-empty and strictly increasing, that log-scaled axes are positive,
// and that len(values) equals the product of the axis lengths.
func New(name string, axes []Axis, quantity Quantity, values []float64) (*Table, error) {
	if len(axes) == 0 {
		return nil, resourceErrorf(name, nil, "table has no axes")
	}
	if len(axes) > MaxAxes {
		return nil, resourceErrorf(name, nil, "table has %d axes, at most %d supported", len(axes), MaxAxes)
	}
	t := &Table{
		name:     name,
		axes:     make([]Axis, len(axes)),
		quantity: quantity,
		strides:  make([]int, len(axes)),
		logs:     make([][]float64, len(axes)),
	}
	size := 1
	for k, ax := range axes {
		if len(ax.Points) == 0 {
			return nil, resourceErrorf(name, nil, "axis %q has no points", ax.Name)
		}
		for i := 1; i < len(ax.Points); i++ {
			if !(ax.Points[i] > ax.Points[i-1]) {
				return nil, resourceErrorf(name, nil, "axis %q is not strictly increasing at index %d", ax.Name, i)
			}
		}
		if ax.Scale == Log {
			if ax.Points[0] <= 0 {
				return nil, resourceErrorf(name, nil, "log-scaled axis %q has non-positive point %g", ax.Name, ax.Points[0])
			}
			t.logs[k] = make([]float64, len(ax.Points))
			for i, p := range ax.Points {
				t.logs[k][i] = math.Log(p)
			}
		}
		t.axes[k] = Axis{Name: ax.Name, Unit: ax.Unit, Scale: ax.Scale, Points: append([]float64(nil), ax.Points...)}
		t.strides[k] = size
		size *= len(ax.Points)
	}
	if len(values) != size {
		return nil, resourceErrorf(name, nil, "value array has %d entries, axes require %d", len(values), size)
	}
	t.values = append([]float64(nil), values...)
	return t, nil
}

// Name returns the resource name the table was loaded from.
func (t *Table) Name() string { return t.name }

// NumAxes returns the number of axes, including the spectral axis.
func (t *Table) NumAxes() int { return len(t.axes) }

// Axis returns a copy of the metadata and points of axis k.
func (t *Table) Axis(k int) Axis {
	ax := t.axes[k]
	ax.Points = append([]float64(nil), ax.Points...)
	return ax
}

// Quantity returns the metadata of the tabulated values.
func (t *Table) Quantity() Quantity { return t.quantity }

// AxisRange returns the [min, max] extent of axis k.
func (t *Table) AxisRange(k int) Range {
	pts := t.axes[k].Points
	return Range{Min: pts[0], Max: pts[len(pts)-1]}
}

// Value returns the interpolated table value at the given spectral coordinate and
// parameter point. len(params) must equal NumAxes()-1; this is not checked.
//
// A spectral coordinate outside axis 0 yields 0. Parameter coordinates outside
// their axis are clamped to the nearest end point. At grid nodes the stored value
// is returned exactly.
func (t *Table) Value(spectral float64, params ...float64) float64 {
	if !t.AxisRange(0).Contains(spectral) {
		return 0
	}

	var idx [MaxAxes]int
	var frac [MaxAxes]float64
	var active [MaxAxes]int
	numActive := 0

	base := 0
	for k := range t.axes {
		x := spectral
		if k > 0 {
			x = params[k-1]
		}
		i, f := t.locate(k, x)
		idx[k], frac[k] = i, f
		base += i * t.strides[k]
		if f > 0 {
			active[numActive] = k
			numActive++
		}
	}
	if numActive == 0 {
		return t.values[base]
	}

	numCorners := 1 << numActive
	useLog := t.quantity.Scale == Log
	sumLin, sumLog := 0.0, 0.0
	for c := 0; c < numCorners; c++ {
		offset := base
		w := 1.0
		for a := 0; a < numActive; a++ {
			k := active[a]
			if c&(1<<a) != 0 {
				offset += t.strides[k]
				w *= frac[k]
			} else {
				w *= 1 - frac[k]
			}
		}
		v := t.values[offset]
		sumLin += w * v
		if useLog {
			if v > 0 {
				sumLog += w * math.Log(v)
			} else {
				useLog = false
			}
		}
	}
	if useLog {
		return math.Exp(sumLog)
	}
	return sumLin
}

// locate returns the lower node index on axis k bracketing x and the fractional
// position of x within the bracket, honoring the axis scale. Out-of-range and
// non-finite coordinates clamp to an end node with zero fraction.
func (t *Table) locate(k int, x float64) (int, float64) {
	pts := t.axes[k].Points
	n := len(pts)
	if n == 1 || math.IsNaN(x) || x <= pts[0] {
		return 0, 0
	}
	if x >= pts[n-1] {
		return n - 1, 0
	}
	i := sort.SearchFloat64s(pts, x)
	if pts[i] == x {
		return i, 0
	}
	i--
	if lg := t.logs[k]; lg != nil {
		return i, (math.Log(x) - lg[i]) / (lg[i+1] - lg[i])
	}
	return i, (x - pts[i]) / (pts[i+1] - pts[i])
}

// normalizeSlices rescales every spectral slice so that its integral over
// axis 0, with the bin shapes used by CDF, equals one. Slices with zero
// integral are left untouched.
func (t *Table) normalizeSlices() {
	lambda := t.axes[0].Points
	n0 := len(lambda)
	if n0 < 2 {
		return
	}
	var d Distribution
	for base := 0; base < len(t.values); base += n0 {
		slice := t.values[base : base+n0]
		d.Reset()
		d.LambdaScale, d.PDFScale = t.axes[0].Scale, t.quantity.Scale
		d.Lambda = append(d.Lambda, lambda...)
		d.PDF = append(d.PDF, slice...)
		if total := d.Cumulate(); total > 0 {
			floats.Scale(1/total, slice)
		}
	}
}
