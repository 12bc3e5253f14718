// Package trace provides launch-trace recording for photon packet emission analysis.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// PacketRecord captures a single launched photon packet.
type PacketRecord struct {
	HistoryIndex int
	Entity       int
	Wavelength   float64 // m
	Luminosity   float64 // W, the packet weight
}

// EntityStat compares the luminosity emitted by one entity's packets with the
// luminosity the entity should have emitted.
type EntityStat struct {
	Entity        int
	Packets       int64
	Emitted       float64 // W, sum of packet weights
	Expected      float64 // W
	RelativeError float64 // |Emitted-Expected|/Expected; 0 when Expected is 0
}
