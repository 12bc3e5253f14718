package table

import "math"

// Range is a closed interval [Min, Max] on a table axis.
type Range struct {
	Min float64
	Max float64
}

// NewRange returns the range [min, max].
func NewRange(min, max float64) Range {
	return Range{Min: min, Max: max}
}

// Width returns Max - Min, or 0 for an empty range.
func (r Range) Width() float64 {
	if r.Empty() {
		return 0
	}
	return r.Max - r.Min
}

// Empty reports whether the range has no interior (zero width counts as empty).
func (r Range) Empty() bool {
	return !(r.Max > r.Min)
}

// Contains reports whether x lies in the closed interval.
func (r Range) Contains(x float64) bool {
	return x >= r.Min && x <= r.Max
}

// Intersect returns the overlap of r and o. The result may be empty.
func (r Range) Intersect(o Range) Range {
	return Range{Min: math.Max(r.Min, o.Min), Max: math.Min(r.Max, o.Max)}
}
