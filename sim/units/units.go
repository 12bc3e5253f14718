// Package units holds the physical constants and the unit conversions used when
// importing snapshot columns into SI parameter vectors.
package units

import (
	"fmt"
	"sort"
	"strings"
)

// Physical constants in SI units.
const (
	C              = 2.99792458e8    // speed of light (m/s)
	Msun           = 1.9891e30       // solar mass (kg)
	Lsun           = 3.839e26        // solar luminosity (W)
	Year           = 365.25 * 86400. // Julian year (s)
	Pc             = 3.0856775807e16 // parsec (m)
	AU             = 1.495978707e11  // astronomical unit (m)
	LambdaSpinFlip = 0.211061140542  // rest wavelength of the 21 cm hydrogen line (m)
)

// Quantity names used in parameter declarations.
const (
	Dimensionless       = "dimensionless"
	Length              = "length"
	Mass                = "mass"
	Time                = "time"
	Velocity            = "velocity"
	BolLuminosity       = "bolluminosity"
	NumberVolumeDensity = "numbervolumedensity"
	MassRate            = "massrate"
)

// factors maps quantity -> unit -> multiplier converting a value in that unit to SI.
var factors = map[string]map[string]float64{
	Dimensionless: {"": 1, "1": 1},
	Length: {
		"m": 1, "cm": 1e-2, "km": 1e3, "AU": AU, "pc": Pc, "kpc": 1e3 * Pc, "Mpc": 1e6 * Pc,
		"Angstrom": 1e-10, "nm": 1e-9, "micron": 1e-6,
	},
	Mass:                {"kg": 1, "g": 1e-3, "Msun": Msun},
	Time:                {"s": 1, "yr": Year, "Myr": 1e6 * Year, "Gyr": 1e9 * Year},
	Velocity:            {"m/s": 1, "km/s": 1e3, "cm/s": 1e-2},
	BolLuminosity:       {"W": 1, "erg/s": 1e-7, "Lsun": Lsun},
	NumberVolumeDensity: {"1/m3": 1, "1/cm3": 1e6},
	MassRate:            {"kg/s": 1, "Msun/yr": Msun / Year, "g/s": 1e-3},
}

// ToSI returns the factor converting values of quantity expressed in unit to SI.
func ToSI(quantity, unit string) (float64, error) {
	units, ok := factors[quantity]
	if !ok {
		return 0, fmt.Errorf("unknown quantity %q", quantity)
	}
	f, ok := units[strings.TrimSpace(unit)]
	if !ok {
		return 0, fmt.Errorf("unit %q not supported for quantity %q (available: %v)", unit, quantity, UnitsFor(quantity))
	}
	return f, nil
}

// UnitsFor returns the sorted unit names recognized for quantity.
func UnitsFor(quantity string) []string {
	units := factors[quantity]
	names := make([]string, 0, len(units))
	for k := range units {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
