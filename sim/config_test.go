package sim

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emission-sim/emission-sim/sim/snapshot"
	"github.com/emission-sim/emission-sim/sim/table"
)

const validRunYAML = `
name: disk
seed: 7
resources: [/data/skirt]
family:
  type: toddlers
  mode: cloud
  stellar_template: BPASSChab100Bin
  include_dust: false
snapshot:
  path: regions.txt
  columns:
    velocity: true
    cells: true
wavelength:
  min: 0.1
  max: 1000
launch:
  packets: 100000
  segments: 4
  bias: 0.5
trace:
  level: summary
store:
  path: runs.db
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRunConfig_ParsesAllSections(t *testing.T) {
	cfg, err := LoadRunConfig(writeConfig(t, validRunYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "disk", cfg.Name)
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, []string{"/data/skirt"}, cfg.Resources)
	assert.Equal(t, "cloud", cfg.Family.Mode)
	require.NotNil(t, cfg.Family.IncludeDust)
	assert.False(t, *cfg.Family.IncludeDust)
	assert.Equal(t, snapshot.ColumnOptions{Options: snapshot.Options{Velocity: true}, Cells: true}, cfg.Snapshot.Columns)
	assert.Equal(t, LaunchConfig{Packets: 100000, Segments: 4, Bias: 0.5}, cfg.Launch)
	assert.Equal(t, "runs.db", cfg.Store.Path)

	r, err := cfg.Wavelength.Range()
	require.NoError(t, err)
	assert.InEpsilon(t, 1e-7, r.Min, 1e-12)
	assert.InEpsilon(t, 1e-3, r.Max, 1e-12)
}

func TestLoadRunConfig_RejectsUnknownFields(t *testing.T) {
	_, err := LoadRunConfig(writeConfig(t, validRunYAML+"bais: 0.3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bais")

	_, err = LoadRunConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunConfig_Validate(t *testing.T) {
	valid := func() *RunConfig {
		cfg, err := LoadRunConfig(writeConfig(t, validRunYAML))
		require.NoError(t, err)
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(c *RunConfig)
		want   string
	}{
		{"unknown family", func(c *RunConfig) { c.Family.Type = "blackbody" }, "unknown family type"},
		{"no snapshot", func(c *RunConfig) { c.Snapshot.Path = "" }, "either path or synthetic"},
		{"both snapshots", func(c *RunConfig) { c.Snapshot.Synthetic = &snapshot.SynthConfig{Count: 1} }, "mutually exclusive"},
		{"bad synthetic", func(c *RunConfig) {
			c.Snapshot.Path = ""
			c.Snapshot.Synthetic = &snapshot.SynthConfig{Count: -1}
		}, "snapshot.synthetic"},
		{"inverted wavelengths", func(c *RunConfig) { c.Wavelength.Min = 2000 }, "wavelength range"},
		{"bad wavelength unit", func(c *RunConfig) { c.Wavelength.Unit = "parsec" }, "parsec"},
		{"bias", func(c *RunConfig) { c.Launch.Bias = 1.2 }, "launch bias"},
		{"packets", func(c *RunConfig) { c.Launch.Packets = -1 }, "packets"},
		{"trace level", func(c *RunConfig) { c.Trace.Level = "verbose" }, "trace level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWavelengthConfig_ZeroSelectsIntrinsicRange(t *testing.T) {
	r, err := WavelengthConfig{}.Range()
	require.NoError(t, err)
	assert.Equal(t, table.Range{}, r)

	r, err = WavelengthConfig{Min: 3000, Max: 9000, Unit: "Angstrom"}.Range()
	require.NoError(t, err)
	assert.InEpsilon(t, 3e-7, r.Min, 1e-12)
}
