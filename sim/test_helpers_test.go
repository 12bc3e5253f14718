package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/emission-sim/emission-sim/sim/sed"
	"github.com/emission-sim/emission-sim/sim/snapshot"
	"github.com/emission-sim/emission-sim/sim/table"
	"github.com/emission-sim/emission-sim/sim/units"
)

// flatFamily emits a flat spectrum over [1, 2] m whose integral is the single
// parameter, so sampled wavelengths are 1 + u for a uniform deviate u.
type flatFamily struct{}

var flatRange = table.NewRange(1, 2)

func (flatFamily) ParameterInfo() []sed.Parameter {
	return []sed.Parameter{sed.Custom("luminosity", units.BolLuminosity, "W")}
}

func (flatFamily) IntrinsicWavelengthRange() table.Range { return flatRange }

func (flatFamily) SpecificLuminosity(wavelength float64, params []float64) float64 {
	if !flatRange.Contains(wavelength) {
		return 0
	}
	return params[0] / flatRange.Width()
}

func (f flatFamily) CDF(dst *table.Distribution, r table.Range, params []float64) float64 {
	dst.Reset()
	r = r.Intersect(flatRange)
	if r.Empty() {
		return 0
	}
	v := f.SpecificLuminosity(r.Min, params)
	dst.Lambda = append(dst.Lambda, r.Min, r.Max)
	dst.PDF = append(dst.PDF, v, v)
	return dst.Cumulate()
}

// entitiesWithLuminosities places one flat-spectrum entity per luminosity
// along the x axis.
func entitiesWithLuminosities(lum ...float64) []snapshot.Entity {
	entities := make([]snapshot.Entity, len(lum))
	for m, l := range lum {
		entities[m] = snapshot.Entity{Position: r3.Vec{X: float64(m)}, Params: []float64{l}, Bias: 1}
	}
	return entities
}

// newTestSource builds an ImportedSource over the flat family.
func newTestSource(t *testing.T, opts snapshot.Options, entities []snapshot.Entity) *ImportedSource {
	t.Helper()
	src, err := NewImportedSource(snapshot.NewMemory(entities, opts), flatFamily{}, SourceConfig{Name: "test", Workers: 2})
	require.NoError(t, err)
	return src
}
