// Package sed provides parameterized spectral energy distribution families.
//
// A Family maps a caller-supplied parameter vector (SI units, order declared by
// ParameterInfo) to a specific luminosity at a wavelength and to a normalized
// spectral distribution over a wavelength sub-range. Table-backed families open
// their stored tables once at construction and are immutable afterwards; all
// methods are safe for concurrent use provided each goroutine passes its own
// table.Distribution to CDF.
//
// Passing a parameter vector whose length or order does not match
// ParameterInfo is a contract violation and is not checked.
package sed

import (
	"fmt"

	"github.com/emission-sim/emission-sim/sim/table"
	"github.com/emission-sim/emission-sim/sim/units"
)

// Family is the capability set shared by all SED family variants.
type Family interface {
	// ParameterInfo declares, in order, the meaning and default import unit of
	// every slot of the parameter vector accepted by the family.
	ParameterInfo() []Parameter

	// IntrinsicWavelengthRange returns the wavelength range (m) on which the
	// family is defined.
	IntrinsicWavelengthRange() table.Range

	// SpecificLuminosity returns L_lambda (W/m) at the wavelength (m) for the
	// given parameters, or 0 outside the intrinsic wavelength range.
	SpecificLuminosity(wavelength float64, params []float64) float64

	// CDF builds on dst the normalized spectral distribution restricted to r and
	// returns the luminosity (W) integrated over r. Degenerate ranges return 0.
	CDF(dst *table.Distribution, r table.Range, params []float64) float64
}

// Parameter declares one slot of a family's parameter vector.
type Parameter struct {
	Description string // human-readable meaning
	Quantity    string // physical quantity, one of the units.* quantity names
	DefaultUnit string // unit assumed for imported columns without unit header
}

func (p Parameter) String() string {
	if p.Quantity == units.Dimensionless {
		return p.Description
	}
	return fmt.Sprintf("%s (%s)", p.Description, p.DefaultUnit)
}

// InitialMass declares the initial stellar mass of a population.
func InitialMass() Parameter {
	return Parameter{Description: "initial mass", Quantity: units.Mass, DefaultUnit: "Msun"}
}

// Metallicity declares a dimensionless metallicity.
func Metallicity() Parameter {
	return Parameter{Description: "metallicity", Quantity: units.Dimensionless}
}

// Age declares the age of a population.
func Age() Parameter {
	return Parameter{Description: "age", Quantity: units.Time, DefaultUnit: "yr"}
}

// Custom declares a parameter with the given quantity and default unit. An empty
// quantity means dimensionless.
func Custom(description, quantity, defaultUnit string) Parameter {
	if quantity == "" {
		quantity = units.Dimensionless
	}
	return Parameter{Description: description, Quantity: quantity, DefaultUnit: defaultUnit}
}

// ConfigurationError reports a combination of family selectors that has no
// corresponding resource. It is detected when the family is constructed.
type ConfigurationError struct {
	Family string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s configuration: %s", e.Family, e.Reason)
}

// clipToIntrinsic returns r restricted to the family's intrinsic range.
func clipToIntrinsic(f Family, r table.Range) table.Range {
	return r.Intersect(f.IntrinsicWavelengthRange())
}
