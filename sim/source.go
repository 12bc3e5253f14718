package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/emission-sim/emission-sim/sim/sed"
	"github.com/emission-sim/emission-sim/sim/snapshot"
	"github.com/emission-sim/emission-sim/sim/table"
)

var (
	// ErrNoEntities is returned when launching from a source without entities.
	ErrNoEntities = errors.New("source has no entities")
	// ErrInvalidBias is returned for a launch bias outside [0,1].
	ErrInvalidBias = errors.New("launch bias must lie in [0,1]")
)

// SourceConfig configures an ImportedSource.
type SourceConfig struct {
	Name string // used in log messages
	// WavelengthRange is the primary source wavelength range (m). The zero
	// value selects the family's intrinsic range.
	WavelengthRange table.Range
	// Workers bounds the goroutines used to evaluate entity luminosities
	// (0 = one per CPU).
	Workers int
}

// ImportedSource emits photon packets from the entities of a snapshot, each
// with a spectrum given by a shared SED family.
//
// Construction evaluates the luminosity of every entity over the source
// wavelength range. PrepareForLaunch then distributes a block of history
// indices over the entities; it must complete before any launch in the
// block, and launches may run concurrently afterwards.
type ImportedSource struct {
	name   string
	snap   snapshot.Snapshot
	family sed.Family
	wrange table.Range

	lm   []float64 // entity luminosities (W)
	lv   []float64 // lm normalized to unit sum, all zero when l is zero
	bias []float64 // per-entity bias factors, nil when not imported
	l    float64

	alloc    *Allocation
	emitters sync.Pool
}

// NewImportedSource computes the luminosity of every snapshot entity over the
// configured wavelength range.
func NewImportedSource(snap snapshot.Snapshot, family sed.Family, cfg SourceConfig) (*ImportedSource, error) {
	s := &ImportedSource{name: cfg.Name, snap: snap, family: family}
	if s.name == "" {
		s.name = "source"
	}
	s.wrange = family.IntrinsicWavelengthRange()
	if cfg.WavelengthRange != (table.Range{}) {
		s.wrange = cfg.WavelengthRange.Intersect(s.wrange)
	}

	m := snap.Count()
	numParams := len(family.ParameterInfo())
	for i := 0; i < m; i++ {
		if n := len(snap.Parameters(i)); n != numParams {
			return nil, fmt.Errorf("%s: entity %d has %d parameters, family expects %d", s.name, i, n, numParams)
		}
	}
	if snap.HasBias() {
		s.bias = make([]float64, m)
		for i := range s.bias {
			b := snap.Bias(i)
			if !(b >= 0) {
				return nil, fmt.Errorf("%s: entity %d has invalid bias factor %g", s.name, i, b)
			}
			s.bias[i] = b
		}
	}

	s.lm = make([]float64, m)
	if !s.wrange.Empty() {
		parallelChunks(m, cfg.Workers, func(_, start, end int) {
			var d table.Distribution
			for i := start; i < end; i++ {
				s.lm[i] = family.CDF(&d, s.wrange, snap.Parameters(i))
			}
		})
	}
	for i, b := range s.bias {
		if b == 0 && s.lm[i] > 0 {
			return nil, fmt.Errorf("%s: entity %d emits %g W but has bias factor 0", s.name, i, s.lm[i])
		}
	}
	s.l = floats.Sum(s.lm)
	s.lv = make([]float64, m)
	if s.l > 0 {
		floats.ScaleTo(s.lv, 1/s.l, s.lm)
	}
	s.emitters.New = func() any { return s.NewEmitter() }

	switch {
	case m == 0:
		logrus.Warnf("%s: snapshot contains no entities", s.name)
	case s.l == 0:
		logrus.Warnf("%s: all %d entities have zero luminosity in [%g, %g] m", s.name, m, s.wrange.Min, s.wrange.Max)
	default:
		logrus.Infof("%s: %d entities, total luminosity %g W in [%g, %g] m", s.name, m, s.l, s.wrange.Min, s.wrange.Max)
	}
	return s, nil
}

// Name returns the configured source name.
func (s *ImportedSource) Name() string { return s.name }

// Family returns the SED family of the source.
func (s *ImportedSource) Family() sed.Family { return s.family }

// Snapshot returns the imported entities.
func (s *ImportedSource) Snapshot() snapshot.Snapshot { return s.snap }

// WavelengthRange returns the effective emission range (m).
func (s *ImportedSource) WavelengthRange() table.Range { return s.wrange }

// NumEntities returns the number of imported entities.
func (s *ImportedSource) NumEntities() int { return len(s.lm) }

// Luminosity returns the bolometric luminosity (W) of the source over its
// wavelength range.
func (s *ImportedSource) Luminosity() float64 { return s.l }

// EntityLuminosity returns the luminosity (W) of entity m.
func (s *ImportedSource) EntityLuminosity(m int) float64 { return s.lm[m] }

// EntityLuminosities returns a copy of all entity luminosities.
func (s *ImportedSource) EntityLuminosities() []float64 {
	return append([]float64(nil), s.lm...)
}

// SpecificLuminosity returns the summed specific luminosity (W/m) of all
// entities at the wavelength, or 0 outside the source range.
func (s *ImportedSource) SpecificLuminosity(wavelength float64) float64 {
	if !s.wrange.Contains(wavelength) {
		return 0
	}
	var sum float64
	for m := range s.lm {
		sum += s.family.SpecificLuminosity(wavelength, s.snap.Parameters(m))
	}
	return sum
}

// Launch initializes pp for history h using a pooled Emitter. Callers that
// launch many packets from one goroutine should hold their own Emitter.
func (s *ImportedSource) Launch(pp *PhotonPacket, h int, lreq float64, rnd Random) {
	e := s.emitters.Get().(*Emitter)
	e.Launch(pp, h, lreq, rnd)
	s.emitters.Put(e)
}
