package sed

import (
	"fmt"

	"github.com/emission-sim/emission-sim/sim/table"
)

// Selector values of the SFR-normalized TODDLERS family.
const (
	TemplateSB99  = "SB99"
	TemplateBPASS = "BPASS"

	IMFKroupa100 = "kroupa100"
	IMFChab100   = "chab100"
	IMFChab300   = "chab300"

	StarSingle = "sin"
	StarBinary = "bin"
)

// validSFRCombinations lists the template/IMF/star-type triples for which
// resources exist.
var validSFRCombinations = map[[3]string]bool{
	{TemplateSB99, IMFKroupa100, StarSingle}: true,
	{TemplateBPASS, IMFChab100, StarBinary}:  true,
	{TemplateBPASS, IMFChab300, StarBinary}:  true,
}

// ToddlersSFROptions configures a ToddlersSFRNormalized family. Empty selector
// strings select SB99, kroupa100, sin and low resolution; NoDust selects the
// incident stellar continuum variant.
type ToddlersSFROptions struct {
	StellarTemplate string
	IMF             string
	StarType        string
	NoDust          bool
	Resolution      Resolution
}

func (o ToddlersSFROptions) withDefaults() ToddlersSFROptions {
	if o.StellarTemplate == "" {
		o.StellarTemplate = TemplateSB99
	}
	if o.IMF == "" {
		o.IMF = IMFKroupa100
	}
	if o.StarType == "" {
		o.StarType = StarSingle
	}
	if o.Resolution == "" {
		o.Resolution = ResolutionLow
	}
	return o
}

// Validate reports a *ConfigurationError for selector combinations without a
// corresponding resource.
func (o ToddlersSFROptions) Validate() error {
	o = o.withDefaults()
	if !validSFRCombinations[[3]string{o.StellarTemplate, o.IMF, o.StarType}] {
		return &ConfigurationError{
			Family: "toddlers-sfr",
			Reason: fmt.Sprintf("no templates for stellar template %q with IMF %q and star type %q (valid: SB99/kroupa100/sin, BPASS/chab100/bin, BPASS/chab300/bin)",
				o.StellarTemplate, o.IMF, o.StarType),
		}
	}
	if _, err := resolutionSuffix(o.Resolution); err != nil {
		return &ConfigurationError{Family: "toddlers-sfr", Reason: err.Error()}
	}
	return nil
}

// ResourceName returns the table resource for the options. Options must be valid.
func (o ToddlersSFROptions) ResourceName() string {
	o = o.withDefaults()
	name := "ToddlersSFRNormalizedSEDFamily_" + o.StellarTemplate + "_" + o.IMF + "_" + o.StarType + "_"
	if o.NoDust {
		name += "noDust_"
	}
	res, _ := resolutionSuffix(o.Resolution)
	return name + res
}

// ToddlersSFRNormalized is the TODDLERS family normalized by star formation
// rate. Parameters: metallicity, star formation efficiency, cloud number
// density, star formation rate.
type ToddlersSFRNormalized struct {
	opts  ToddlersSFROptions
	table *table.Table
}

// NewToddlersSFRNormalized validates the selector combination eagerly and opens
// the matching table.
func NewToddlersSFRNormalized(loc table.Locator, opts ToddlersSFROptions) (*ToddlersSFRNormalized, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	t, err := table.Open(loc, opts.ResourceName(), "lambda(m),Z(1),SFE(1),n_cl(1/cm3)", "Llambda(W/m)", false)
	if err != nil {
		return nil, err
	}
	return &ToddlersSFRNormalized{opts: opts, table: t}, nil
}

func (f *ToddlersSFRNormalized) ParameterInfo() []Parameter {
	return sfrNormalizedInfo()
}

func (f *ToddlersSFRNormalized) IntrinsicWavelengthRange() table.Range {
	return f.table.AxisRange(0)
}

func (f *ToddlersSFRNormalized) SpecificLuminosity(wavelength float64, params []float64) float64 {
	var q [table.MaxAxes]float64
	sfr, k := sfrNormalizedParams(params, &q)
	return sfr * f.table.Value(wavelength, q[:k]...)
}

func (f *ToddlersSFRNormalized) CDF(dst *table.Distribution, r table.Range, params []float64) float64 {
	var q [table.MaxAxes]float64
	sfr, k := sfrNormalizedParams(params, &q)
	return sfr * f.table.CDF(dst, r, q[:k]...)
}
