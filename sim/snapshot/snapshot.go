// Package snapshot provides the imported entity populations that feed an
// emission source: positions, SED parameter vectors and optional kinematics and
// bias factors, all in SI units.
package snapshot

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Snapshot is a read-only collection of emitting entities. Implementations are
// immutable after construction and safe for concurrent reads.
type Snapshot interface {
	// Count returns the number of entities.
	Count() int
	// Position returns the representative position of entity m (m).
	Position(m int) r3.Vec
	// Parameters returns the SED parameter vector of entity m. Callers must not
	// modify the returned slice.
	Parameters(m int) []float64

	HasVelocity() bool
	// Velocity returns the bulk velocity of entity m (m/s).
	Velocity(m int) r3.Vec
	HasDispersion() bool
	// Dispersion returns the velocity dispersion of entity m (m/s).
	Dispersion(m int) float64
	HasBias() bool
	// Bias returns the relative launch bias factor of entity m.
	Bias(m int) float64
}

// PositionSampler is implemented by snapshots whose entities are extended
// rather than point-like. SamplePosition maps three uniform deviates in [0,1)
// to a position inside entity m.
type PositionSampler interface {
	SamplePosition(m int, u [3]float64) r3.Vec
}

// Box is an axis-aligned cuboid.
type Box struct {
	Min, Max r3.Vec
}

// Center returns the box midpoint.
func (b Box) Center() r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// Volume returns the box volume.
func (b Box) Volume() float64 {
	d := r3.Sub(b.Max, b.Min)
	return d.X * d.Y * d.Z
}

// Entity is one emitting entity of a Memory snapshot.
type Entity struct {
	Position   r3.Vec
	Cell       *Box // optional extent; positions are sampled uniformly inside
	Params     []float64
	Velocity   r3.Vec
	Dispersion float64
	Bias       float64
}

// Options declares which optional entity properties a snapshot carries.
type Options struct {
	Velocity   bool
	Dispersion bool
	Bias       bool
}

// Memory is an in-memory snapshot.
type Memory struct {
	entities []Entity
	opts     Options
}

// NewMemory wraps entities. Entities with a Cell get the cell center as
// representative position.
func NewMemory(entities []Entity, opts Options) *Memory {
	for i := range entities {
		if entities[i].Cell != nil {
			entities[i].Position = entities[i].Cell.Center()
		}
	}
	return &Memory{entities: entities, opts: opts}
}

func (s *Memory) Count() int                 { return len(s.entities) }
func (s *Memory) Position(m int) r3.Vec      { return s.entities[m].Position }
func (s *Memory) Parameters(m int) []float64 { return s.entities[m].Params }
func (s *Memory) HasVelocity() bool          { return s.opts.Velocity }
func (s *Memory) Velocity(m int) r3.Vec      { return s.entities[m].Velocity }
func (s *Memory) HasDispersion() bool        { return s.opts.Dispersion }
func (s *Memory) Dispersion(m int) float64   { return s.entities[m].Dispersion }
func (s *Memory) HasBias() bool              { return s.opts.Bias }
func (s *Memory) Bias(m int) float64         { return s.entities[m].Bias }

// Entity returns a copy of entity m.
func (s *Memory) Entity(m int) Entity { return s.entities[m] }

// SamplePosition returns a uniform point inside the entity cell, or the entity
// position for point-like entities.
func (s *Memory) SamplePosition(m int, u [3]float64) r3.Vec {
	e := &s.entities[m]
	if e.Cell == nil {
		return e.Position
	}
	d := r3.Sub(e.Cell.Max, e.Cell.Min)
	return r3.Add(e.Cell.Min, r3.Vec{X: u[0] * d.X, Y: u[1] * d.Y, Z: u[2] * d.Z})
}
