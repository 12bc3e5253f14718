package sim

import (
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey is the master seed of a run. Runs with equal keys and equal
// configuration launch identical packets, whatever the worker count or
// segment split.
type SimulationKey int64

// NewSimulationKey wraps a seed.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

// Named random streams of a run.
const (
	// SubsystemSnapshot draws synthetic entities. It is seeded with the key
	// itself, so --seed alone reproduces a generated snapshot.
	SubsystemSnapshot = "snapshot"

	// SubsystemLaunch is the base seed of the per-history launch streams.
	SubsystemLaunch = "launch"
)

// === PartitionedRNG ===

// PartitionedRNG hands out one independent *rand.Rand per named stream,
// seeded with key XOR fnv1a64(name) (the key itself for SubsystemSnapshot).
// Draws from one stream never shift another. Not safe for concurrent use;
// setup code calls it from a single goroutine.
type PartitionedRNG struct {
	key     SimulationKey
	streams map[string]*rand.Rand
}

// NewPartitionedRNG returns the streams of key.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key, streams: map[string]*rand.Rand{}}
}

// ForSubsystem returns the stream called name, creating it on first use.
// Later calls with the same name continue the same stream.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	rng := p.streams[name]
	if rng == nil {
		rng = rand.New(rand.NewSource(p.key.derive(name)))
		p.streams[name] = rng
	}
	return rng
}

// Key returns the master key.
func (p *PartitionedRNG) Key() SimulationKey { return p.key }

// derive returns the seed of the named stream.
func (k SimulationKey) derive(name string) int64 {
	if name == SubsystemSnapshot {
		return int64(k)
	}
	return int64(k) ^ fnv1a64(name)
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
