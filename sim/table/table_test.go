package table

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// newSEDTable builds a small 3D table shaped like a stellar-population SED
// family: lambda(m) log, Z(1) linear, t(yr) log, log-scaled values.
func newSEDTable(t *testing.T) *Table {
	t.Helper()
	lambda := make([]float64, 25)
	floats.LogSpan(lambda, 1e-7, 1e-4)
	z := []float64{0.001, 0.01, 0.02, 0.04}
	age := []float64{1e6, 1e7, 1e8}
	values := make([]float64, 0, len(lambda)*len(z)*len(age))
	for _, tv := range age {
		for _, zv := range z {
			for _, lv := range lambda {
				// blackbody-ish bump, peak moves with age, amplitude with metallicity
				x := lv / (1e-6 * math.Log10(tv))
				values = append(values, (1+10*zv)*1e20/(x*x*x*x*x*(math.Exp(1/x)-1)))
			}
		}
	}
	tab, err := New("test-sed",
		[]Axis{
			{Name: "lambda", Unit: "m", Scale: Log, Points: lambda},
			{Name: "Z", Unit: "1", Scale: Linear, Points: z},
			{Name: "t", Unit: "yr", Scale: Log, Points: age},
		},
		Quantity{Name: "Llambda", Unit: "W/m", Scale: Log},
		values)
	require.NoError(t, err)
	return tab
}

func TestNew_RejectsInconsistentInput(t *testing.T) {
	lin := func(pts ...float64) Axis { return Axis{Name: "x", Unit: "1", Points: pts} }
	tests := []struct {
		name   string
		axes   []Axis
		values []float64
	}{
		{"no axes", nil, nil},
		{"empty axis", []Axis{lin()}, nil},
		{"non-monotonic axis", []Axis{lin(1, 3, 2)}, []float64{1, 2, 3}},
		{"duplicate point", []Axis{lin(1, 1, 2)}, []float64{1, 2, 3}},
		{"size mismatch", []Axis{lin(1, 2), lin(1, 2, 3)}, []float64{1, 2, 3, 4, 5}},
		{"non-positive log axis", []Axis{{Name: "x", Scale: Log, Points: []float64{0, 1}}}, []float64{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("bad", tt.axes, Quantity{Name: "q"}, tt.values)
			var rerr *ResourceError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, "bad", rerr.Name)
		})
	}
}

func TestValue_ReproducesStoredValuesAtNodes(t *testing.T) {
	tab := newSEDTable(t)
	lambda, z, age := tab.axes[0].Points, tab.axes[1].Points, tab.axes[2].Points
	i := 0
	for _, tv := range age {
		for _, zv := range z {
			for _, lv := range lambda {
				assert.Equal(t, tab.values[i], tab.Value(lv, zv, tv), "node (%g, %g, %g)", lv, zv, tv)
				i++
			}
		}
	}
}

func TestValue_LinearInterpolation(t *testing.T) {
	// GIVEN a 2D linear table f(x, y) = x + 10y
	tab, err := New("lin",
		[]Axis{
			{Name: "x", Points: []float64{0, 1, 2}},
			{Name: "y", Points: []float64{0, 1}},
		},
		Quantity{Name: "f"},
		[]float64{0, 1, 2, 10, 11, 12})
	require.NoError(t, err)

	// THEN interior points are exact for a bilinear function
	assert.InDelta(t, 0.5+10*0.25, tab.Value(0.5, 0.25), 1e-12)
	assert.InDelta(t, 1.75+10*0.5, tab.Value(1.75, 0.5), 1e-12)

	// AND parameter coordinates outside the axis clamp to the end nodes
	assert.InDelta(t, 1.5+10, tab.Value(1.5, 7), 1e-12)
	assert.InDelta(t, 1.5, tab.Value(1.5, -3), 1e-12)
	assert.InDelta(t, 1.5, tab.Value(1.5, math.NaN()), 1e-12)

	// AND spectral coordinates outside axis 0 yield zero
	assert.Equal(t, 0.0, tab.Value(-0.1, 0.5))
	assert.Equal(t, 0.0, tab.Value(2.1, 0.5))
}

func TestValue_LogScaledAxisAndQuantity(t *testing.T) {
	// GIVEN a power law f(x) = x^2 tabulated on a log axis with log values
	tab, err := New("pow",
		[]Axis{{Name: "x", Scale: Log, Points: []float64{1, 10, 100}}},
		Quantity{Name: "f", Scale: Log},
		[]float64{1, 100, 10000})
	require.NoError(t, err)

	// THEN log-log interpolation reproduces the power law between nodes
	for _, x := range []float64{2, 3.3, 31.6, 70} {
		assert.InEpsilon(t, x*x, tab.Value(x), 1e-12, "x=%g", x)
	}
}

func TestValue_LogQuantityFallsBackToLinearForZeroCorners(t *testing.T) {
	tab, err := New("zeros",
		[]Axis{{Name: "x", Points: []float64{0, 1}}},
		Quantity{Name: "f", Scale: Log},
		[]float64{0, 4})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, tab.Value(0.25), 1e-12)
}

// denseQuadrature integrates tab.Value over r on a fine logarithmic grid.
func denseQuadrature(tab *Table, r Range, params ...float64) float64 {
	x := make([]float64, 200001)
	floats.LogSpan(x, r.Min, r.Max)
	y := make([]float64, len(x))
	for i, xv := range x {
		y[i] = tab.Value(xv, params...)
	}
	return integrate.Trapezoidal(x, y)
}

func TestCDF_TotalMatchesIndependentQuadrature(t *testing.T) {
	tab := newSEDTable(t)
	for _, params := range [][]float64{{0.01, 1e7}, {0.04, 1e6}, {0.001, 1e8}, {0.015, 3e7}} {
		// WHEN the full spectral range is integrated
		var d Distribution
		got := tab.CDF(&d, tab.AxisRange(0), params...)

		// THEN the total equals a dense quadrature of the interpolated values
		assert.InEpsilon(t, denseQuadrature(tab, tab.AxisRange(0), params...), got, 1e-6, "params %v", params)
		assert.Equal(t, len(tab.axes[0].Points), d.Len())

		// AND so does a sub-range cutting through bins
		r := NewRange(1.7e-7, 3.1e-5)
		assert.InEpsilon(t, denseQuadrature(tab, r, params...), tab.CDF(&d, r, params...), 1e-6, "params %v", params)
	}
}

func TestCDF_MixedScalesMatchQuadrature(t *testing.T) {
	lambda := make([]float64, 12)
	floats.LogSpan(lambda, 1e-7, 1e-5)
	values := make([]float64, len(lambda))
	for i, l := range lambda {
		values[i] = 1e20 * math.Exp(-math.Abs(math.Log(l/1e-6)))
	}
	tests := []struct {
		name      string
		axisScale Scale
		valScale  Scale
	}{
		{"log axis, linear values", Log, Linear},
		{"linear axis, log values", Linear, Log},
		{"linear axis, linear values", Linear, Linear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab, err := New("mixed",
				[]Axis{{Name: "lambda", Unit: "m", Scale: tt.axisScale, Points: lambda}},
				Quantity{Name: "Llambda", Unit: "W/m", Scale: tt.valScale},
				values)
			require.NoError(t, err)
			var d Distribution
			got := tab.CDF(&d, tab.AxisRange(0))
			assert.InEpsilon(t, denseQuadrature(tab, tab.AxisRange(0)), got, 1e-6)
		})
	}
}

func TestDistribution_SampleFollowsInterpolatedSpectrum(t *testing.T) {
	// GIVEN the distribution of a log-log table over a sub-range
	tab := newSEDTable(t)
	params := []float64{0.02, 2e7}
	r := NewRange(2.5e-7, 4e-5)
	var d Distribution
	total := tab.CDF(&d, r, params...)
	require.Greater(t, total, 0.0)

	for _, u := range []float64{0.001, 0.1, 0.37, 0.5, 0.83, 0.999} {
		// WHEN a deviate is mapped to a wavelength
		x := d.Sample(u)

		// THEN the spectrum below it holds fraction u of the power
		below := denseQuadrature(tab, NewRange(r.Min, x), params...)
		assert.InDelta(t, u, below/total, 1e-6, "u=%g", u)
	}
}

func TestCDF_MonotoneAndNormalizedOnSubRange(t *testing.T) {
	tab := newSEDTable(t)
	var d Distribution
	r := NewRange(3.3e-7, 2.2e-5)
	total := tab.CDF(&d, r, 0.015, 3e7)
	require.Greater(t, total, 0.0)

	// sample grid starts and ends at the clipped range
	assert.Equal(t, r.Min, d.Lambda[0])
	assert.Equal(t, r.Max, d.Lambda[d.Len()-1])
	assert.Equal(t, 0.0, d.CDF[0])
	assert.Equal(t, 1.0, d.CDF[d.Len()-1])
	for i := 1; i < d.Len(); i++ {
		assert.GreaterOrEqual(t, d.CDF[i], d.CDF[i-1], "CDF decreases at %d", i)
		assert.Greater(t, d.Lambda[i], d.Lambda[i-1])
	}
	// normalized PDF scaled by the total reproduces the table
	for i, l := range d.Lambda {
		assert.InEpsilon(t, tab.Value(l, 0.015, 3e7), d.PDF[i]*total, 1e-12)
	}
}

func TestCDF_DegenerateRangesReturnZero(t *testing.T) {
	tab := newSEDTable(t)
	zero, err := New("dark",
		[]Axis{{Name: "lambda", Unit: "m", Points: []float64{1, 2, 3}}},
		Quantity{Name: "Llambda"},
		[]float64{0, 0, 0})
	require.NoError(t, err)

	tests := []struct {
		name string
		tab  *Table
		r    Range
	}{
		{"zero width", tab, NewRange(1e-6, 1e-6)},
		{"inverted", tab, NewRange(1e-5, 1e-6)},
		{"outside axis", tab, NewRange(1, 2)},
		{"zero power", zero, NewRange(1, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Distribution{Lambda: []float64{9, 9}, PDF: []float64{9, 9}, CDF: []float64{9, 9}}
			var total float64
			require.NotPanics(t, func() {
				if tt.tab.NumAxes() == 1 {
					total = tt.tab.CDF(&d, tt.r)
				} else {
					total = tt.tab.CDF(&d, tt.r, 0.01, 1e7)
				}
			})
			assert.Equal(t, 0.0, total)
			assert.LessOrEqual(t, len(d.CDF), 1)
			assert.Equal(t, 0.0, d.Sample(0.5))
		})
	}
}

func TestDistribution_SampleInvertsCDF(t *testing.T) {
	// GIVEN a flat spectrum on [2, 6]
	d := Distribution{Lambda: []float64{2, 4, 6}, PDF: []float64{3, 3, 3}}
	require.InDelta(t, 12.0, d.Cumulate(), 1e-12)

	// THEN the inverse CDF is linear
	assert.InDelta(t, 2.0, d.Sample(0), 1e-12)
	assert.InDelta(t, 3.0, d.Sample(0.25), 1e-12)
	assert.InDelta(t, 5.0, d.Sample(0.75), 1e-12)
	assert.InDelta(t, 6.0, d.Sample(1), 1e-12)
}

func TestDistribution_SampleInvertsSlopedBin(t *testing.T) {
	// GIVEN a density rising linearly from 0 to 2 on [0, 1]
	d := Distribution{Lambda: []float64{0, 1}, PDF: []float64{0, 2}}
	require.InDelta(t, 1.0, d.Cumulate(), 1e-12)

	// THEN the inverse CDF is sqrt(u)
	for _, u := range []float64{0.04, 0.25, 0.81} {
		assert.InDelta(t, math.Sqrt(u), d.Sample(u), 1e-12)
	}
}

func TestDistribution_PowerLawBins(t *testing.T) {
	// GIVEN f(x) = 1/x^2 on [1, 4], exactly a power law in every bin
	d := Distribution{
		Lambda:      []float64{1, 2, 4},
		PDF:         []float64{1, 0.25, 0.0625},
		LambdaScale: Log,
		PDFScale:    Log,
	}

	// THEN the integral is exact, 1 - 1/4
	require.InDelta(t, 0.75, d.Cumulate(), 1e-12)
	// AND the inverse CDF of F(x) = (1 - 1/x) / 0.75 is exact
	for _, u := range []float64{0.1, 0.5, 0.9} {
		assert.InDelta(t, 1/(1-0.75*u), d.Sample(u), 1e-12)
	}
}

func TestNormalizeSlices(t *testing.T) {
	tab, err := New("n",
		[]Axis{{Name: "x", Points: []float64{0, 1, 2}}, {Name: "p", Points: []float64{1, 2}}},
		Quantity{Name: "f"},
		[]float64{2, 2, 2, 0, 0, 0})
	require.NoError(t, err)
	tab.normalizeSlices()
	assert.InDelta(t, 0.5, tab.Value(1, 1), 1e-12)
	// a zero slice stays zero
	assert.Equal(t, 0.0, tab.Value(1, 2))
}

func TestStabCodec_RoundTripAndTruncation(t *testing.T) {
	tab := newSEDTable(t)
	var buf bytes.Buffer
	require.NoError(t, EncodeStab(&buf, tab))

	got, err := DecodeStab("copy", bytes.NewReader(buf.Bytes()), "Llambda")
	require.NoError(t, err)
	assert.Equal(t, tab.axes, got.axes)
	assert.Equal(t, tab.quantity, got.quantity)
	assert.Equal(t, tab.values, got.values)

	// WHEN the value block is cut short
	_, err = DecodeStab("short", bytes.NewReader(buf.Bytes()[:buf.Len()-64]), "")
	var rerr *ResourceError
	assert.ErrorAs(t, err, &rerr)

	// WHEN the requested quantity does not exist
	_, err = DecodeStab("copy", bytes.NewReader(buf.Bytes()), "Lnu")
	assert.ErrorAs(t, err, &rerr)
}

func TestDecodeStab_RejectsOversizedGridBeforeReadingIt(t *testing.T) {
	// GIVEN a header whose second axis claims 2^28 points
	var buf bytes.Buffer
	word := func(v uint64) {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], v)
		buf.Write(b[:])
	}
	text := func(s string) { buf.WriteString(fmt.Sprintf("%-8s", s)) }
	text(stabHeader)
	word(2)
	for _, s := range []string{"lambda", "t", "m", "yr", "log", "log"} {
		text(s)
	}
	word(2)
	word(math.Float64bits(1e-7))
	word(math.Float64bits(1e-6))
	word(1 << 28)

	// WHEN it is decoded
	_, err := DecodeStab("huge", bytes.NewReader(buf.Bytes()), "")

	// THEN the size check fails, not the truncated point list
	var rerr *ResourceError
	require.ErrorAs(t, err, &rerr)
	assert.Contains(t, err.Error(), "too large")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tab := newSEDTable(t)

	f, err := os.Create(filepath.Join(dir, "BpassSEDFamily_Test.stab"))
	require.NoError(t, err)
	require.NoError(t, EncodeStab(f, tab))
	require.NoError(t, f.Close())

	yf, err := os.Create(filepath.Join(dir, "YamlFamily.stab.yaml"))
	require.NoError(t, err)
	require.NoError(t, EncodeYAML(yf, tab))
	require.NoError(t, yf.Close())

	loc := NewLocator("", filepath.Join(dir, "missing"), dir)

	t.Run("binary resource", func(t *testing.T) {
		got, err := Open(loc, "BpassSEDFamily_Test", "lambda(m),Z(1),t(yr)", "Llambda(W/m)", false)
		require.NoError(t, err)
		assert.Equal(t, "BpassSEDFamily_Test", got.Name())
		assert.Equal(t, tab.AxisRange(0), got.AxisRange(0))
	})

	t.Run("yaml resource", func(t *testing.T) {
		got, err := Open(loc, "YamlFamily", "lambda(m),Z(1),t(yr)", "Llambda(W/m)", false)
		require.NoError(t, err)
		assert.InEpsilon(t, tab.Value(2e-6, 0.02, 3e6), got.Value(2e-6, 0.02, 3e6), 1e-12)
	})

	t.Run("missing resource", func(t *testing.T) {
		_, err := Open(loc, "NoSuchFamily", "lambda(m)", "Llambda(W/m)", false)
		var rerr *ResourceError
		require.ErrorAs(t, err, &rerr)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("axis spec mismatch", func(t *testing.T) {
		_, err := Open(loc, "BpassSEDFamily_Test", "lambda(m),Z(1),age(yr)", "Llambda(W/m)", false)
		var rerr *ResourceError
		require.ErrorAs(t, err, &rerr)
		assert.Contains(t, err.Error(), "age")
	})

	t.Run("axis count mismatch", func(t *testing.T) {
		_, err := Open(loc, "BpassSEDFamily_Test", "lambda(m),Z(1)", "Llambda(W/m)", false)
		assert.Error(t, err)
	})

	t.Run("malformed spec", func(t *testing.T) {
		_, err := Open(loc, "BpassSEDFamily_Test", "lambda,Z(1),t(yr)", "Llambda(W/m)", false)
		assert.Error(t, err)
	})
}

func TestRange(t *testing.T) {
	r := NewRange(1, 3)
	assert.Equal(t, 2.0, r.Width())
	assert.True(t, r.Contains(1))
	assert.True(t, r.Contains(3))
	assert.False(t, r.Contains(3.0001))
	assert.Equal(t, NewRange(2, 3), r.Intersect(NewRange(2, 5)))
	assert.True(t, r.Intersect(NewRange(4, 5)).Empty())
	assert.Equal(t, 0.0, NewRange(5, 4).Width())
}
