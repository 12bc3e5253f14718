package snapshot

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"
)

// ParamRange is the sampling range of one synthesized parameter, in SI units.
// Log ranges are sampled uniformly in the logarithm.
type ParamRange struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
	Log bool    `yaml:"log"`
}

// SynthConfig configures a synthetic snapshot: Count entities placed uniformly
// in a cube of half size HalfSize (m) centered on the origin.
type SynthConfig struct {
	Count      int          `yaml:"count"`
	HalfSize   float64      `yaml:"half_size"`
	Params     []ParamRange `yaml:"params"`
	Velocity   float64      `yaml:"velocity"`   // bulk speed scale (m/s); 0 disables velocities
	Dispersion float64      `yaml:"dispersion"` // velocity dispersion (m/s); 0 disables
}

// Validate reports configuration errors.
func (c SynthConfig) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("count must be >= 0, got %d", c.Count)
	}
	if c.HalfSize < 0 {
		return fmt.Errorf("half_size must be >= 0, got %g", c.HalfSize)
	}
	for i, p := range c.Params {
		if p.Max < p.Min {
			return fmt.Errorf("params[%d]: max %g below min %g", i, p.Max, p.Min)
		}
		if p.Log && !(p.Min > 0) {
			return fmt.Errorf("params[%d]: log range needs min > 0, got %g", i, p.Min)
		}
	}
	return nil
}

// Synthesize draws a snapshot from rng.
func Synthesize(rng *rand.Rand, cfg SynthConfig) (*Memory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	uniform := func(lo, hi float64) float64 { return lo + (hi-lo)*rng.Float64() }
	entities := make([]Entity, cfg.Count)
	for m := range entities {
		e := &entities[m]
		e.Position = r3.Vec{
			X: uniform(-cfg.HalfSize, cfg.HalfSize),
			Y: uniform(-cfg.HalfSize, cfg.HalfSize),
			Z: uniform(-cfg.HalfSize, cfg.HalfSize),
		}
		e.Params = make([]float64, len(cfg.Params))
		for i, p := range cfg.Params {
			if p.Log {
				e.Params[i] = math.Exp(uniform(math.Log(p.Min), math.Log(p.Max)))
			} else {
				e.Params[i] = uniform(p.Min, p.Max)
			}
		}
		if cfg.Velocity > 0 {
			e.Velocity = r3.Vec{X: rng.NormFloat64(), Y: rng.NormFloat64(), Z: rng.NormFloat64()}
			e.Velocity = r3.Scale(cfg.Velocity, e.Velocity)
		}
		e.Dispersion = cfg.Dispersion
	}
	return NewMemory(entities, Options{Velocity: cfg.Velocity > 0, Dispersion: cfg.Dispersion > 0}), nil
}
