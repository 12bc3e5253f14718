package sed

import (
	"math"

	"github.com/emission-sim/emission-sim/sim/table"
	"github.com/emission-sim/emission-sim/sim/units"
)

const (
	// spinFlipHalfWidth is the relative half width of the intrinsic range
	// around the rest wavelength.
	spinFlipHalfWidth = 0.03

	// samplesPerDispersion is the number of wavelength grid intervals per
	// wavelength dispersion unit when tabulating the line profile.
	samplesPerDispersion = 100

	// maxLineSamples caps the tabulated grid for very narrow lines.
	maxLineSamples = 1 << 20
)

// SpinFlip is the analytic 21 cm hydrogen line family: a Gaussian profile in
// velocity space around the rest wavelength. Parameters: line luminosity and
// velocity dispersion.
type SpinFlip struct{}

// NewSpinFlip returns the spin-flip line family. It has no backing table.
func NewSpinFlip() *SpinFlip { return &SpinFlip{} }

// unitGaussian is the normal density with zero mean and unit dispersion.
func unitGaussian(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func (f *SpinFlip) ParameterInfo() []Parameter {
	return []Parameter{
		Custom("line luminosity", units.BolLuminosity, "W"),
		Custom("dispersion", units.Velocity, "km/s"),
	}
}

func (f *SpinFlip) IntrinsicWavelengthRange() table.Range {
	return table.NewRange(units.LambdaSpinFlip*(1-spinFlipHalfWidth), units.LambdaSpinFlip*(1+spinFlipHalfWidth))
}

// wavelengthDispersion converts a velocity dispersion (m/s) to wavelength (m).
func wavelengthDispersion(s float64) float64 {
	return s * units.LambdaSpinFlip / units.C
}

func (f *SpinFlip) SpecificLuminosity(wavelength float64, params []float64) float64 {
	if !f.IntrinsicWavelengthRange().Contains(wavelength) {
		return 0
	}
	L, sigma := params[0], wavelengthDispersion(params[1])
	if !(sigma > 0) {
		return 0
	}
	return L * unitGaussian((wavelength-units.LambdaSpinFlip)/sigma) / sigma
}

// CDF tabulates the line profile on a linear grid with samplesPerDispersion
// intervals per wavelength dispersion unit over r and integrates it.
func (f *SpinFlip) CDF(dst *table.Distribution, r table.Range, params []float64) float64 {
	dst.Reset()
	r = clipToIntrinsic(f, r)
	L, sigma := params[0], wavelengthDispersion(params[1])
	if r.Empty() || !(sigma > 0) {
		return 0
	}

	n := int(math.Ceil(samplesPerDispersion * r.Width() / sigma))
	n = max(1, min(n, maxLineSamples))
	step := r.Width() / float64(n)
	for i := 0; i <= n; i++ {
		lambda := r.Min + float64(i)*step
		if i == n {
			lambda = r.Max
		}
		dst.Lambda = append(dst.Lambda, lambda)
		dst.PDF = append(dst.PDF, L*unitGaussian((lambda-units.LambdaSpinFlip)/sigma)/sigma)
	}
	return dst.Cumulate()
}
