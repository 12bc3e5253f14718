package sim

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/emission-sim/emission-sim/sim/snapshot"
	"github.com/emission-sim/emission-sim/sim/table"
	"github.com/emission-sim/emission-sim/sim/units"
)

// Emitter launches packets from an ImportedSource. It caches the spectral
// distribution of the last entity it launched from, since consecutive history
// indices mostly belong to the same entity. An Emitter must not be shared
// between goroutines.
type Emitter struct {
	src     *ImportedSource
	sampler snapshot.PositionSampler
	entity  int
	dist    table.Distribution
}

// NewEmitter returns an Emitter bound to s.
func (s *ImportedSource) NewEmitter() *Emitter {
	e := &Emitter{src: s, entity: -1}
	e.sampler, _ = s.snap.(snapshot.PositionSampler)
	return e
}

// distribution returns the spectral distribution of entity m over the source
// range, recomputing it when m differs from the cached entity.
func (e *Emitter) distribution(m int) *table.Distribution {
	if m != e.entity {
		e.src.family.CDF(&e.dist, e.src.wrange, e.src.snap.Parameters(m))
		e.entity = m
	}
	return &e.dist
}

// Launch initializes pp for history index h. Each unbiased packet would carry
// lreq; the returned packet carries lreq corrected for the launch bias of its
// entity. PrepareForLaunch must have covered h.
func (e *Emitter) Launch(pp *PhotonPacket, h int, lreq float64, rnd Random) {
	s := e.src
	m := s.EntityForIndex(h)

	var lambda float64
	if d := e.distribution(m); d.Len() > 0 {
		lambda = d.Sample(rnd.Uniform())
	} else {
		// zero-luminosity entity: any wavelength, the packet carries no weight
		lambda = s.wrange.Min + rnd.Uniform()*s.wrange.Width()
	}
	weight := s.packetWeight(m, lreq)

	position := s.snap.Position(m)
	if e.sampler != nil {
		position = e.sampler.SamplePosition(m, [3]float64{rnd.Uniform(), rnd.Uniform(), rnd.Uniform()})
	}
	direction := rnd.Direction()

	var velocity r3.Vec
	if s.snap.HasVelocity() {
		velocity = s.snap.Velocity(m)
	}
	if s.snap.HasDispersion() {
		if sigma := s.snap.Dispersion(m); sigma > 0 {
			velocity = r3.Add(velocity, r3.Scale(sigma, r3.Vec{X: rnd.Gauss(), Y: rnd.Gauss(), Z: rnd.Gauss()}))
		}
	}
	if velocity != (r3.Vec{}) {
		lambda *= 1 - r3.Dot(direction, velocity)/units.C
	}

	pp.Launch(h, m, lambda, weight, position, direction, velocity)
}
