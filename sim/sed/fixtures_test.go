package sed

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/emission-sim/emission-sim/sim/table"
)

// writeStab tabulates f over the axes (axis 0 fastest) and stores the result as
// a binary stored table named name in dir.
func writeStab(t *testing.T, dir, name string, axes []table.Axis, f func(x []float64) float64) *table.Table {
	t.Helper()
	size := 1
	for _, ax := range axes {
		size *= len(ax.Points)
	}
	values := make([]float64, size)
	idx := make([]int, len(axes))
	x := make([]float64, len(axes))
	for i := range values {
		for k, ax := range axes {
			x[k] = ax.Points[idx[k]]
		}
		values[i] = f(x)
		for k := range idx {
			idx[k]++
			if idx[k] < len(axes[k].Points) {
				break
			}
			idx[k] = 0
		}
	}
	tab, err := table.New(name, axes, table.Quantity{Name: "Llambda", Unit: "W/m", Scale: table.Log}, values)
	require.NoError(t, err)

	file, err := os.Create(filepath.Join(dir, name+table.ExtStab))
	require.NoError(t, err)
	require.NoError(t, table.EncodeStab(file, tab))
	require.NoError(t, file.Close())
	return tab
}

func logAxis(name, unit string, n int, lo, hi float64) table.Axis {
	pts := make([]float64, n)
	floats.LogSpan(pts, lo, hi)
	return table.Axis{Name: name, Unit: unit, Scale: table.Log, Points: pts}
}

func linAxis(name, unit string, pts ...float64) table.Axis {
	return table.Axis{Name: name, Unit: unit, Scale: table.Linear, Points: pts}
}

// bump is a smooth positive spectrum peaking near peak (m).
func bump(lambda, peak float64) float64 {
	x := math.Log(lambda / peak)
	return 1e25 * math.Exp(-x*x)
}

func wavelengthAxis() table.Axis {
	return logAxis("lambda", "m", 40, 1e-7, 1e-3)
}
