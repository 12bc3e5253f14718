package sed

import (
	"fmt"

	"github.com/emission-sim/emission-sim/sim/table"
	"github.com/emission-sim/emission-sim/sim/units"
)

// ToddlersMode selects how TODDLERS star-forming region templates are scaled.
type ToddlersMode string

const (
	// ModeSFRNormalized uses templates pre-integrated over time and the cloud
	// mass spectrum, scaled by the star formation rate.
	ModeSFRNormalized ToddlersMode = "sfr-normalized"
	// ModeCloud uses templates of individual clouds with explicit time evolution.
	ModeCloud ToddlersMode = "cloud"
)

// StellarTemplate selects the stellar population model, IMF and evolution.
type StellarTemplate string

const (
	SB99Kroupa100Sin StellarTemplate = "SB99Kroupa100Sin"
	BPASSChab100Bin  StellarTemplate = "BPASSChab100Bin"
	BPASSChab300Bin  StellarTemplate = "BPASSChab300Bin"
)

// Resolution selects the wavelength resolution of the templates.
type Resolution string

const (
	ResolutionLow  Resolution = "low"
	ResolutionHigh Resolution = "high"
)

// SFRPeriod is the period over which the star formation rate is averaged.
type SFRPeriod string

const (
	Period10Myr SFRPeriod = "10Myr"
	Period30Myr SFRPeriod = "30Myr"
)

var templateSuffix = map[StellarTemplate]string{
	SB99Kroupa100Sin: "SB99_kroupa100_sin",
	BPASSChab100Bin:  "BPASS_chab100_bin",
	BPASSChab300Bin:  "BPASS_chab300_bin",
}

func resolutionSuffix(r Resolution) (string, error) {
	switch r {
	case ResolutionLow, "":
		return "lr", nil
	case ResolutionHigh:
		return "hr", nil
	default:
		return "", fmt.Errorf("unknown resolution %q", r)
	}
}

// ToddlersOptions configures a Toddlers family. Zero values select the
// defaults: SFR-normalized mode, SB99 Kroupa template, low resolution, 10 Myr.
type ToddlersOptions struct {
	Mode            ToddlersMode
	StellarTemplate StellarTemplate
	IncludeDust     bool
	Resolution      Resolution
	SFRPeriod       SFRPeriod // only used in SFR-normalized mode
}

func (o ToddlersOptions) withDefaults() ToddlersOptions {
	if o.Mode == "" {
		o.Mode = ModeSFRNormalized
	}
	if o.StellarTemplate == "" {
		o.StellarTemplate = SB99Kroupa100Sin
	}
	if o.Resolution == "" {
		o.Resolution = ResolutionLow
	}
	if o.SFRPeriod == "" {
		o.SFRPeriod = Period10Myr
	}
	return o
}

// ResourceName returns the table resource for the options.
func (o ToddlersOptions) ResourceName() (string, error) {
	o = o.withDefaults()
	name := "ToddlersSEDFamily_"
	switch o.Mode {
	case ModeCloud:
		name += "Cloud_"
	case ModeSFRNormalized:
		name += "SFRNormalized_"
	default:
		return "", &ConfigurationError{Family: "toddlers", Reason: fmt.Sprintf("unknown mode %q", o.Mode)}
	}
	tmpl, ok := templateSuffix[o.StellarTemplate]
	if !ok {
		return "", &ConfigurationError{Family: "toddlers", Reason: fmt.Sprintf("unknown stellar template %q", o.StellarTemplate)}
	}
	name += tmpl + "_"
	if o.IncludeDust {
		name += "Dust_"
	} else {
		name += "noDust_"
	}
	res, err := resolutionSuffix(o.Resolution)
	if err != nil {
		return "", &ConfigurationError{Family: "toddlers", Reason: err.Error()}
	}
	name += res
	if o.Mode == ModeSFRNormalized {
		switch o.SFRPeriod {
		case Period10Myr:
			name += "_10Myr"
		case Period30Myr:
			name += "_30Myr"
		default:
			return "", &ConfigurationError{Family: "toddlers", Reason: fmt.Sprintf("unknown SFR period %q", o.SFRPeriod)}
		}
	}
	return name, nil
}

// Toddlers is the TODDLERS family of star-forming region templates.
//
// Cloud mode parameters: age, metallicity, star formation efficiency, cloud
// number density, cloud mass, scaling factor. The table is indexed by
// (time Myr, Z, SFE, n_cl 1/cm3, M_cl Msun) and scaled by the scaling factor.
//
// SFR-normalized mode parameters: metallicity, star formation efficiency, cloud
// number density, star formation rate. The table is indexed by
// (Z, SFE, n_cl 1/cm3) and scaled by the SFR in Msun/yr.
type Toddlers struct {
	opts  ToddlersOptions
	table *table.Table
}

// NewToddlers validates the options and opens the matching table.
func NewToddlers(loc table.Locator, opts ToddlersOptions) (*Toddlers, error) {
	opts = opts.withDefaults()
	name, err := opts.ResourceName()
	if err != nil {
		return nil, err
	}
	var t *table.Table
	if opts.Mode == ModeCloud {
		t, err = table.Open(loc, name, "lambda(m),time(Myr),Z(1),SFE(1),n_cl(1/cm3),M_cl(Msun)", "Llambda(W/m)", false)
	} else {
		t, err = table.Open(loc, name, "lambda(m),Z(1),SFE(1),n_cl(1/cm3)", "Llambda(W/m)", false)
	}
	if err != nil {
		return nil, err
	}
	return &Toddlers{opts: opts, table: t}, nil
}

// Mode returns the configured scaling mode.
func (f *Toddlers) Mode() ToddlersMode { return f.opts.Mode }

func (f *Toddlers) ParameterInfo() []Parameter {
	if f.opts.Mode == ModeCloud {
		return []Parameter{
			Age(),
			Metallicity(),
			Custom("star formation efficiency", "", ""),
			Custom("cloud number density", units.NumberVolumeDensity, "1/cm3"),
			Custom("cloud mass", units.Mass, "Msun"),
			Custom("scaling", "", ""),
		}
	}
	return sfrNormalizedInfo()
}

func sfrNormalizedInfo() []Parameter {
	return []Parameter{
		Metallicity(),
		Custom("star formation efficiency", "", ""),
		Custom("cloud number density", units.NumberVolumeDensity, "1/cm3"),
		Custom("star formation rate", units.MassRate, "Msun/yr"),
	}
}

func (f *Toddlers) IntrinsicWavelengthRange() table.Range {
	return f.table.AxisRange(0)
}

// tableParams converts the SI parameter vector into the scale factor and the
// table coordinates, written into q.
func (f *Toddlers) tableParams(params []float64, q *[table.MaxAxes]float64) (float64, int) {
	if f.opts.Mode == ModeCloud {
		q[0] = params[0] / (1e6 * units.Year) // s -> Myr
		q[1] = params[1]
		q[2] = params[2]
		q[3] = params[3] / 1e6 // 1/m3 -> 1/cm3
		q[4] = params[4] / units.Msun
		return params[5], 5
	}
	return sfrNormalizedParams(params, q)
}

func sfrNormalizedParams(params []float64, q *[table.MaxAxes]float64) (float64, int) {
	q[0] = params[0]
	q[1] = params[1]
	q[2] = params[2] / 1e6                        // 1/m3 -> 1/cm3
	return params[3] / units.Msun * units.Year, 3 // kg/s -> Msun/yr
}

func (f *Toddlers) SpecificLuminosity(wavelength float64, params []float64) float64 {
	var q [table.MaxAxes]float64
	scale, k := f.tableParams(params, &q)
	return scale * f.table.Value(wavelength, q[:k]...)
}

func (f *Toddlers) CDF(dst *table.Distribution, r table.Range, params []float64) float64 {
	var q [table.MaxAxes]float64
	scale, k := f.tableParams(params, &q)
	return scale * f.table.CDF(dst, r, q[:k]...)
}
