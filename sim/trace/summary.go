package trace

import "math"

// TraceSummary aggregates statistics from a Tally.
type TraceSummary struct {
	TotalPackets       int64
	ZeroWeightPackets  int64
	EmittedLuminosity  float64
	ExpectedLuminosity float64
	UniqueEntities     int // entities that received at least one packet
	MaxRelativeError   float64
	PerEntity          []EntityStat
}

// Summarize compares the tally with the expected luminosity per entity.
// Safe for nil tallies (returns zero-value fields).
func Summarize(t *Tally, expected []float64) *TraceSummary {
	summary := &TraceSummary{}
	if t == nil {
		return summary
	}

	summary.ZeroWeightPackets = t.ZeroWeight
	summary.PerEntity = make([]EntityStat, len(t.Packets))
	for m := range t.Packets {
		stat := EntityStat{Entity: m, Packets: t.Packets[m], Emitted: t.Emitted[m]}
		if m < len(expected) {
			stat.Expected = expected[m]
		}
		if stat.Expected > 0 {
			stat.RelativeError = math.Abs(stat.Emitted-stat.Expected) / stat.Expected
			summary.MaxRelativeError = math.Max(summary.MaxRelativeError, stat.RelativeError)
		}
		if stat.Packets > 0 {
			summary.UniqueEntities++
		}
		summary.TotalPackets += stat.Packets
		summary.EmittedLuminosity += stat.Emitted
		summary.ExpectedLuminosity += stat.Expected
		summary.PerEntity[m] = stat
	}
	return summary
}
