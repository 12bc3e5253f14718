package trace

// TraceLevel controls the verbosity of launch tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelSummary counts packets and emitted luminosity per entity.
	TraceLevelSummary TraceLevel = "summary"
	// TraceLevelPackets additionally keeps one record per launched packet.
	TraceLevelPackets TraceLevel = "packets"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:    true,
	TraceLevelSummary: true,
	TraceLevelPackets: true,
	"":                true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level      TraceLevel
	MaxRecords int // cap on kept packet records at TraceLevelPackets (0 = unlimited)
}

// Tally accumulates launch statistics for one worker. A nil *Tally ignores
// records, so callers can trace unconditionally.
type Tally struct {
	Config     TraceConfig
	Packets    []int64   // per entity
	Emitted    []float64 // per entity, W
	ZeroWeight int64
	Records    []PacketRecord
}

// NewTally creates a Tally for numEntities entities, or nil when tracing is
// disabled.
func NewTally(config TraceConfig, numEntities int) *Tally {
	if config.Level == TraceLevelNone || config.Level == "" {
		return nil
	}
	return &Tally{
		Config:  config,
		Packets: make([]int64, numEntities),
		Emitted: make([]float64, numEntities),
	}
}

// Record adds a launched packet.
func (t *Tally) Record(r PacketRecord) {
	if t == nil {
		return
	}
	t.Packets[r.Entity]++
	t.Emitted[r.Entity] += r.Luminosity
	if r.Luminosity == 0 {
		t.ZeroWeight++
	}
	if t.Config.Level == TraceLevelPackets && (t.Config.MaxRecords == 0 || len(t.Records) < t.Config.MaxRecords) {
		t.Records = append(t.Records, r)
	}
}

// Merge adds the contents of o into t. Both tallies must cover the same
// entities.
func (t *Tally) Merge(o *Tally) {
	if t == nil || o == nil {
		return
	}
	for m := range o.Packets {
		t.Packets[m] += o.Packets[m]
		t.Emitted[m] += o.Emitted[m]
	}
	t.ZeroWeight += o.ZeroWeight
	for _, r := range o.Records {
		if t.Config.MaxRecords > 0 && len(t.Records) >= t.Config.MaxRecords {
			break
		}
		t.Records = append(t.Records, r)
	}
}

// Total returns the number of recorded packets.
func (t *Tally) Total() int64 {
	if t == nil {
		return 0
	}
	var n int64
	for _, c := range t.Packets {
		n += c
	}
	return n
}
