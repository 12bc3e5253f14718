package sim

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// Random is the source of random deviates consumed by a packet launch.
// Implementations are confined to one goroutine.
type Random interface {
	// Uniform returns a deviate in [0,1).
	Uniform() float64
	// Gauss returns a standard normal deviate.
	Gauss() float64
	// Direction returns an isotropically distributed unit vector.
	Direction() r3.Vec
}

// HistoryRandom is a Random whose stream is a pure function of the simulation
// key and the current history index, so a packet launch does not depend on
// which worker performs it or in which order.
type HistoryRandom struct {
	seed uint64
	src  *rand.PCG
	rng  *rand.Rand
}

// NewHistoryRandom returns a HistoryRandom for key, positioned at history 0.
func NewHistoryRandom(key SimulationKey) *HistoryRandom {
	seed := uint64(key.derive(SubsystemLaunch))
	src := rand.NewPCG(seed, splitmix64(0))
	return &HistoryRandom{seed: seed, src: src, rng: rand.New(src)}
}

// Reset positions the stream at the start of history h.
func (r *HistoryRandom) Reset(h int) {
	r.src.Seed(r.seed, splitmix64(uint64(h)))
}

func (r *HistoryRandom) Uniform() float64 { return r.rng.Float64() }
func (r *HistoryRandom) Gauss() float64   { return r.rng.NormFloat64() }

func (r *HistoryRandom) Direction() r3.Vec {
	return isotropicDirection(r)
}

// isotropicDirection draws a uniform point on the unit sphere from two uniform
// deviates.
func isotropicDirection(rnd Random) r3.Vec {
	cosTheta := 2*rnd.Uniform() - 1
	sinTheta := math.Sqrt(math.Max(0, 1-cosTheta*cosTheta))
	phi := 2 * math.Pi * rnd.Uniform()
	return r3.Vec{X: sinTheta * math.Cos(phi), Y: sinTheta * math.Sin(phi), Z: cosTheta}
}

// splitmix64 scrambles consecutive history indices into unrelated stream seeds.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
