package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/emission-sim/emission-sim/sim"
	"github.com/emission-sim/emission-sim/sim/sed"
	"github.com/emission-sim/emission-sim/sim/snapshot"
	"github.com/emission-sim/emission-sim/sim/table"
)

var (
	synthConfigPath string // YAML run configuration with a snapshot.synthetic section
	synthOut        string // column text output, "-" = stdout
	synthSeed       int64  // overrides seed
)

// synthCmd writes the synthetic snapshot of a run config as a column text file
// that a later run can import through snapshot.path.
var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Write the synthetic snapshot of a run config as a column text file",
	Run: func(cmd *cobra.Command, args []string) {
		if synthConfigPath == "" {
			logrus.Fatalf("--config is required")
		}
		cfg, err := sim.LoadRunConfig(synthConfigPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = synthSeed
		}
		baseDir := filepath.Dir(synthConfigPath)
		loc := resourceLocator(resolvePaths(baseDir, cfg.Resources)...)

		w := io.Writer(os.Stdout)
		if synthOut != "-" {
			f, err := os.Create(synthOut)
			if err != nil {
				logrus.Fatalf("Creating %s: %v", synthOut, err)
			}
			defer func() { _ = f.Close() }()
			w = f
		}
		n, err := writeSynthetic(w, cfg, loc)
		if err != nil {
			logrus.Fatalf("Synthesizing snapshot: %v", err)
		}
		logrus.Infof("Wrote %s entities to %s", humanize.Comma(int64(n)), synthOut)
	},
}

// writeSynthetic synthesizes the snapshot of cfg and writes it in the column
// layout of cfg.Snapshot.Columns for the configured family. It returns the
// number of entities written.
func writeSynthetic(w io.Writer, cfg *sim.RunConfig, loc table.Locator) (int, error) {
	if cfg.Snapshot.Synthetic == nil {
		return 0, fmt.Errorf("run config %q has no snapshot.synthetic section", cfg.Name)
	}
	family, err := sed.New(cfg.Family, loc)
	if err != nil {
		return 0, err
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemSnapshot)
	snap, err := snapshot.Synthesize(rng, *cfg.Snapshot.Synthetic)
	if err != nil {
		return 0, err
	}
	opts := cfg.Snapshot.Columns
	opts.Velocity = opts.Velocity || snap.HasVelocity()
	opts.Dispersion = opts.Dispersion || snap.HasDispersion()
	if err := snapshot.WriteColumns(w, snap, opts, family.ParameterInfo()); err != nil {
		return 0, err
	}
	return snap.Count(), nil
}

func init() {
	synthCmd.Flags().StringVar(&synthConfigPath, "config", "", "YAML run configuration with a snapshot.synthetic section")
	synthCmd.Flags().StringVar(&synthOut, "out", "-", "Output column file (- for stdout)")
	synthCmd.Flags().Int64Var(&synthSeed, "seed", 42, "Seed for the synthetic snapshot (overrides config)")
}
