package sim

import "gonum.org/v1/gonum/spatial/r3"

// PhotonPacket is a launched photon packet as handed to the transport engine.
type PhotonPacket struct {
	HistoryIndex   int
	Entity         int     // emitting entity
	Wavelength     float64 // m, in the model frame (Doppler shifted when the source moves)
	Luminosity     float64 // W, the packet weight
	Position       r3.Vec  // m
	Direction      r3.Vec  // unit vector
	SourceVelocity r3.Vec  // m/s, zero when the snapshot carries no velocities
}

// Launch initializes the packet for a new history, discarding previous state.
func (pp *PhotonPacket) Launch(h, entity int, wavelength, luminosity float64, position, direction, velocity r3.Vec) {
	*pp = PhotonPacket{
		HistoryIndex:   h,
		Entity:         entity,
		Wavelength:     wavelength,
		Luminosity:     luminosity,
		Position:       position,
		Direction:      direction,
		SourceVelocity: velocity,
	}
}
