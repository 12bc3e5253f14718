package sim

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/emission-sim/emission-sim/sim/sed"
	"github.com/emission-sim/emission-sim/sim/snapshot"
	"github.com/emission-sim/emission-sim/sim/table"
	"github.com/emission-sim/emission-sim/sim/trace"
	"github.com/emission-sim/emission-sim/sim/units"
)

// LaunchConfig groups the packet launch parameters.
type LaunchConfig struct {
	Packets  int     `yaml:"packets"`  // total number of packets (>= 0)
	Segments int     `yaml:"segments"` // sequential segments (0 = 1)
	Bias     float64 `yaml:"bias"`     // launch bias in [0,1]
	Workers  int     `yaml:"workers"`  // worker goroutines (0 = one per CPU)
}

func (c LaunchConfig) segments() int {
	if c.Segments <= 0 {
		return 1
	}
	return c.Segments
}

// Validate reports invalid launch parameters.
func (c LaunchConfig) Validate() error {
	if c.Packets < 0 {
		return fmt.Errorf("packets must be >= 0, got %d", c.Packets)
	}
	if c.Segments < 0 {
		return fmt.Errorf("segments must be >= 0, got %d", c.Segments)
	}
	if !(c.Bias >= 0 && c.Bias <= 1) {
		return fmt.Errorf("%w: got %g", ErrInvalidBias, c.Bias)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}
	return nil
}

// WavelengthConfig is the primary source wavelength range. Both bounds zero
// selects the family's intrinsic range.
type WavelengthConfig struct {
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
	Unit string  `yaml:"unit"` // default micron
}

// Range converts the configured bounds to meters.
func (c WavelengthConfig) Range() (table.Range, error) {
	if c.Min == 0 && c.Max == 0 {
		return table.Range{}, nil
	}
	unit := c.Unit
	if unit == "" {
		unit = "micron"
	}
	f, err := units.ToSI(units.Length, unit)
	if err != nil {
		return table.Range{}, fmt.Errorf("wavelength: %w", err)
	}
	r := table.NewRange(c.Min*f, c.Max*f)
	if r.Empty() || r.Min <= 0 {
		return table.Range{}, fmt.Errorf("wavelength range [%g, %g] %s must be positive and non-empty", c.Min, c.Max, unit)
	}
	return r, nil
}

// SnapshotConfig selects the entity input: a column text file, or a synthetic
// population when Synthetic is set.
type SnapshotConfig struct {
	Path      string                 `yaml:"path"`
	Columns   snapshot.ColumnOptions `yaml:"columns"`
	Synthetic *snapshot.SynthConfig  `yaml:"synthetic"`
}

// TraceSection configures launch tracing.
type TraceSection struct {
	Level      string `yaml:"level"` // none | summary | packets
	MaxRecords int    `yaml:"max_records"`
}

// Config converts the section to a trace.TraceConfig.
func (c TraceSection) Config() trace.TraceConfig {
	return trace.TraceConfig{Level: trace.TraceLevel(c.Level), MaxRecords: c.MaxRecords}
}

// StoreSection configures persistence of run summaries.
type StoreSection struct {
	Path string `yaml:"path"` // SQLite database file; empty disables persistence
}

// RunConfig is the complete run configuration, loadable from a YAML file.
type RunConfig struct {
	Name       string           `yaml:"name"`
	Seed       int64            `yaml:"seed"`
	Resources  []string         `yaml:"resources"`
	Family     sed.Config       `yaml:"family"`
	Snapshot   SnapshotConfig   `yaml:"snapshot"`
	Wavelength WavelengthConfig `yaml:"wavelength"`
	Launch     LaunchConfig     `yaml:"launch"`
	Trace      TraceSection     `yaml:"trace"`
	Store      StoreSection     `yaml:"store"`
}

// LoadRunConfig reads and parses a YAML run configuration file.
// Unknown fields are rejected so that typos surface as errors.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration without touching the filesystem.
func (c *RunConfig) Validate() error {
	if _, ok := sed.ValidFamilies[c.Family.Type]; !ok {
		return fmt.Errorf("unknown family type %q; valid types: %v", c.Family.Type, sed.FamilyNames())
	}
	if c.Snapshot.Path == "" && c.Snapshot.Synthetic == nil {
		return fmt.Errorf("snapshot: either path or synthetic must be set")
	}
	if c.Snapshot.Path != "" && c.Snapshot.Synthetic != nil {
		return fmt.Errorf("snapshot: path and synthetic are mutually exclusive")
	}
	if c.Snapshot.Synthetic != nil {
		if err := c.Snapshot.Synthetic.Validate(); err != nil {
			return fmt.Errorf("snapshot.synthetic: %w", err)
		}
	}
	if _, err := c.Wavelength.Range(); err != nil {
		return err
	}
	if err := c.Launch.Validate(); err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	if !trace.IsValidTraceLevel(c.Trace.Level) {
		return fmt.Errorf("unknown trace level %q", c.Trace.Level)
	}
	return nil
}
