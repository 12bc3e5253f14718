package table

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Distribution is a tabulated spectral distribution: sample wavelengths, the
// normalized probability density at each sample, and the cumulative distribution.
// LambdaScale and PDFScale select how the density varies between samples, matching
// the interpolation of the table it was built from: with both Log each bin is a
// power law, with both Linear it is a straight line.
// The slices are reused across calls to avoid per-launch allocation; a
// Distribution must not be shared between goroutines while it is being rebuilt.
type Distribution struct {
	Lambda []float64
	PDF    []float64
	CDF    []float64

	LambdaScale Scale
	PDFScale    Scale
}

// Reset truncates all slices to length zero, keeping their capacity, and
// restores linear bins.
func (d *Distribution) Reset() {
	d.Lambda = d.Lambda[:0]
	d.PDF = d.PDF[:0]
	d.CDF = d.CDF[:0]
	d.LambdaScale, d.PDFScale = Linear, Linear
}

// Len returns the number of samples.
func (d *Distribution) Len() int { return len(d.Lambda) }

// Cumulate integrates PDF over Lambda bin by bin, normalizes both PDF and CDF
// so that CDF ends at exactly 1, and returns the un-normalized integral. A
// distribution with fewer than two samples or without positive total power is
// reset and yields 0.
func (d *Distribution) Cumulate() float64 {
	n := len(d.Lambda)
	if n < 2 || len(d.PDF) != n {
		d.Reset()
		return 0
	}
	d.CDF = d.CDF[:0]
	d.CDF = append(d.CDF, 0)
	for i := 1; i < n; i++ {
		b := d.bin(i - 1)
		d.CDF = append(d.CDF, d.CDF[i-1]+b.partial(b.x1))
	}
	total := d.CDF[n-1]
	if !(total > 0) || math.IsInf(total, 0) {
		d.Reset()
		return 0
	}
	floats.Scale(1/total, d.PDF)
	floats.Scale(1/total, d.CDF)
	d.CDF[n-1] = 1
	return total
}

// Sample maps a uniform deviate u in [0,1) to a wavelength by inverting the
// cumulative distribution exactly within the bracketing bin.
// An empty distribution yields 0.
func (d *Distribution) Sample(u float64) float64 {
	n := len(d.CDF)
	switch n {
	case 0:
		return 0
	case 1:
		return d.Lambda[0]
	}
	i := sort.SearchFloat64s(d.CDF, u)
	if i == 0 {
		return d.Lambda[0]
	}
	if i >= n {
		i = n - 1
	}
	p0, p1 := d.CDF[i-1], d.CDF[i]
	if !(p1 > p0) {
		return d.Lambda[i]
	}
	b := d.bin(i - 1)
	return b.invert(math.Min(u, p1) - p0)
}

// binKind is the shape of the density inside one bin.
type binKind int

const (
	linLin binKind = iota // straight line
	logLog                // power law
	linLog                // exponential in lambda
	logLin                // linear in log lambda
)

// bin is the density between two adjacent samples.
type bin struct {
	kind           binKind
	x0, x1, y0, y1 float64
}

func (d *Distribution) bin(i int) bin {
	b := bin{x0: d.Lambda[i], x1: d.Lambda[i+1], y0: d.PDF[i], y1: d.PDF[i+1]}
	logX := d.LambdaScale == Log && b.x0 > 0
	logY := d.PDFScale == Log && b.y0 > 0 && b.y1 > 0
	switch {
	case logX && logY:
		b.kind = logLog
	case logY:
		b.kind = linLog
	case logX:
		b.kind = logLin
	}
	return b
}

// nearZero bounds exponents treated as zero to avoid cancellation.
const nearZero = 1e-9

// partial returns the integral of the bin density from x0 to x.
func (b bin) partial(x float64) float64 {
	switch b.kind {
	case logLog:
		s := math.Log(x / b.x0)
		e := math.Log(b.y1/b.y0)/math.Log(b.x1/b.x0) + 1
		if math.Abs(e*s) < nearZero {
			return b.y0 * b.x0 * s
		}
		return b.y0 * b.x0 * math.Expm1(e*s) / e
	case linLog:
		dx := x - b.x0
		k := math.Log(b.y1/b.y0) / (b.x1 - b.x0)
		if math.Abs(k*dx) < nearZero {
			return b.y0 * dx
		}
		return b.y0 * math.Expm1(k*dx) / k
	case logLin:
		s := math.Log(x / b.x0)
		slope := (b.y1 - b.y0) / math.Log(b.x1/b.x0)
		es := math.Exp(s)
		return b.x0 * (b.y0*(es-1) + slope*(s*es-es+1))
	default:
		dx := x - b.x0
		slope := (b.y1 - b.y0) / (b.x1 - b.x0)
		return b.y0*dx + 0.5*slope*dx*dx
	}
}

// invert returns the x in [x0, x1] at which partial reaches f.
func (b bin) invert(f float64) float64 {
	var x float64
	switch b.kind {
	case logLog:
		e := math.Log(b.y1/b.y0)/math.Log(b.x1/b.x0) + 1
		q := f / (b.y0 * b.x0)
		if math.Abs(e*q) < nearZero {
			x = b.x0 * math.Exp(q)
		} else {
			x = b.x0 * math.Exp(math.Log1p(e*q)/e)
		}
	case linLog:
		k := math.Log(b.y1/b.y0) / (b.x1 - b.x0)
		q := f / b.y0
		if math.Abs(k*q) < nearZero {
			x = b.x0 + q
		} else {
			x = b.x0 + math.Log1p(k*q)/k
		}
	case logLin:
		// partial is increasing in x; bisect in log space
		lo, hi := 0.0, math.Log(b.x1/b.x0)
		for it := 0; it < 64; it++ {
			mid := 0.5 * (lo + hi)
			if b.partial(b.x0*math.Exp(mid)) < f {
				lo = mid
			} else {
				hi = mid
			}
		}
		x = b.x0 * math.Exp(0.5*(lo+hi))
	default:
		slope := (b.y1 - b.y0) / (b.x1 - b.x0)
		den := b.y0 + math.Sqrt(math.Max(0, b.y0*b.y0+2*slope*f))
		if !(den > 0) {
			return b.x0
		}
		x = b.x0 + 2*f/den
	}
	return math.Max(b.x0, math.Min(b.x1, x))
}

// CDF builds on dst the spectral distribution of the table for the given
// parameter point, restricted to the sub-range r of the spectral axis. The sample
// wavelengths are the native axis-0 points strictly inside r plus the two clipped
// end points. Bins follow the interpolation of Value, so the returned integral is
// the exact integral of Value over the sub-range; an empty intersection or zero
// power returns 0 with dst reset.
func (t *Table) CDF(dst *Distribution, r Range, params ...float64) float64 {
	dst.Reset()
	dst.LambdaScale, dst.PDFScale = t.axes[0].Scale, t.quantity.Scale
	r = r.Intersect(t.AxisRange(0))
	if r.Empty() {
		return 0
	}

	pts := t.axes[0].Points
	dst.Lambda = append(dst.Lambda, r.Min)
	for i := sort.SearchFloat64s(pts, r.Min); i < len(pts) && pts[i] < r.Max; i++ {
		if pts[i] > r.Min {
			dst.Lambda = append(dst.Lambda, pts[i])
		}
	}
	dst.Lambda = append(dst.Lambda, r.Max)

	for _, lambda := range dst.Lambda {
		dst.PDF = append(dst.PDF, math.Max(0, t.Value(lambda, params...)))
	}
	return dst.Cumulate()
}
