package sed

import (
	"github.com/emission-sim/emission-sim/sim/table"
	"github.com/emission-sim/emission-sim/sim/units"
)

// Table resources of the stellar population families.
const (
	BpassChabrier100Resource = "BpassSEDFamily_Chabrier100"
	FSPSVarIMFResource       = "FSPSSEDFamily_Variable"
)

// massScaledTable serves stellar population families whose tables give the
// luminosity per solar mass of initial mass. The parameter vector is
// [initial mass (kg), table parameters..., age (s)]; the table is indexed by the
// middle parameters followed by the age in years.
type massScaledTable struct {
	table *table.Table
	info  []Parameter
}

// tableParams converts the parameter vector into the external scale factor and
// the table coordinates, written into q.
func (f *massScaledTable) tableParams(params []float64, q *[table.MaxAxes]float64) (float64, int) {
	n := len(params)
	copy(q[:], params[1:n-1])
	q[n-2] = params[n-1] / units.Year
	return params[0] / units.Msun, n - 1
}

func (f *massScaledTable) ParameterInfo() []Parameter {
	return append([]Parameter(nil), f.info...)
}

func (f *massScaledTable) IntrinsicWavelengthRange() table.Range {
	return f.table.AxisRange(0)
}

func (f *massScaledTable) SpecificLuminosity(wavelength float64, params []float64) float64 {
	var q [table.MaxAxes]float64
	scale, k := f.tableParams(params, &q)
	return scale * f.table.Value(wavelength, q[:k]...)
}

func (f *massScaledTable) CDF(dst *table.Distribution, r table.Range, params []float64) float64 {
	var q [table.MaxAxes]float64
	scale, k := f.tableParams(params, &q)
	return scale * f.table.CDF(dst, r, q[:k]...)
}

// BpassChabrier100 is the BPASS family for a Chabrier IMF with upper mass 100
// Msun, binary stellar evolution. Parameters: initial mass, metallicity, age.
type BpassChabrier100 struct {
	massScaledTable
}

// NewBpassChabrier100 opens the BPASS table through loc.
func NewBpassChabrier100(loc table.Locator) (*BpassChabrier100, error) {
	t, err := table.Open(loc, BpassChabrier100Resource, "lambda(m),Z(1),t(yr)", "Llambda(W/m)", false)
	if err != nil {
		return nil, err
	}
	return &BpassChabrier100{massScaledTable{
		table: t,
		info:  []Parameter{InitialMass(), Metallicity(), Age()},
	}}, nil
}

// FSPSVarIMF is the FSPS family with a variable IMF slope. Parameters: initial
// mass, metallicity, IMF slope, age.
type FSPSVarIMF struct {
	massScaledTable
}

// NewFSPSVarIMF opens the FSPS variable-IMF table through loc.
func NewFSPSVarIMF(loc table.Locator) (*FSPSVarIMF, error) {
	t, err := table.Open(loc, FSPSVarIMFResource, "lambda(m),Z(1),alpha(1),t(yr)", "Llambda(W/m)", false)
	if err != nil {
		return nil, err
	}
	return &FSPSVarIMF{massScaledTable{
		table: t,
		info:  []Parameter{InitialMass(), Metallicity(), Custom("IMF slope", "", ""), Age()},
	}}, nil
}
