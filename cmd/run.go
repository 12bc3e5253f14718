package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/emission-sim/emission-sim/sim"
	"github.com/emission-sim/emission-sim/sim/sed"
	"github.com/emission-sim/emission-sim/sim/snapshot"
	"github.com/emission-sim/emission-sim/sim/store"
	"github.com/emission-sim/emission-sim/sim/table"
	"github.com/emission-sim/emission-sim/sim/trace"
)

var (
	runConfigPath string  // YAML run configuration
	runSeed       int64   // overrides seed
	runPackets    int     // overrides launch.packets
	runBias       float64 // overrides launch.bias
	runWorkers    int     // overrides launch.workers
	runSegments   int     // overrides launch.segments
	runStorePath  string  // overrides store.path
	runTopN       int     // number of entities listed in the report
)

// runCmd launches photon packets from the source described by a run config
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Launch photon packets from an imported source",
	Run: func(cmd *cobra.Command, args []string) {
		if runConfigPath == "" {
			logrus.Fatalf("--config is required")
		}
		cfg, err := sim.LoadRunConfig(runConfigPath)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		flags := cmd.Flags()
		if flags.Changed("seed") {
			cfg.Seed = runSeed
		}
		if flags.Changed("packets") {
			cfg.Launch.Packets = runPackets
		}
		if flags.Changed("bias") {
			cfg.Launch.Bias = runBias
		}
		if flags.Changed("workers") {
			cfg.Launch.Workers = runWorkers
		}
		if flags.Changed("segments") {
			cfg.Launch.Segments = runSegments
		}
		if flags.Changed("store") {
			cfg.Store.Path = runStorePath
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid run config: %v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		baseDir := filepath.Dir(runConfigPath)
		out, err := executeRun(ctx, cfg, baseDir, resourceLocator(resolvePaths(baseDir, cfg.Resources)...))
		if err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
		printRunReport(os.Stdout, out, runTopN)

		if cfg.Store.Path != "" {
			id, err := saveRun(ctx, resolvePath(baseDir, cfg.Store.Path), out)
			if err != nil {
				logrus.Fatalf("Saving run: %v", err)
			}
			fmt.Printf("Saved run %s to %s\n", id, cfg.Store.Path)
		}
	},
}

// runOutcome collects everything reported and stored about a run.
type runOutcome struct {
	Config  *sim.RunConfig
	Source  *sim.ImportedSource
	Result  *sim.RunResult
	Summary *trace.TraceSummary
}

// resolvePath interprets relative paths against baseDir.
func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

func resolvePaths(baseDir string, paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = resolvePath(baseDir, p)
	}
	return out
}

// loadSnapshot reads or synthesizes the entities of cfg.
func loadSnapshot(cfg *sim.RunConfig, baseDir string, family sed.Family) (*snapshot.Memory, error) {
	if cfg.Snapshot.Synthetic != nil {
		rng := sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)).ForSubsystem(sim.SubsystemSnapshot)
		return snapshot.Synthesize(rng, *cfg.Snapshot.Synthetic)
	}
	return snapshot.ReadColumns(resolvePath(baseDir, cfg.Snapshot.Path), cfg.Snapshot.Columns, family.ParameterInfo())
}

// executeRun builds the family, snapshot and source of a validated config and
// launches its packets.
func executeRun(ctx context.Context, cfg *sim.RunConfig, baseDir string, loc table.Locator) (*runOutcome, error) {
	family, err := sed.New(cfg.Family, loc)
	if err != nil {
		return nil, err
	}
	snap, err := loadSnapshot(cfg, baseDir, family)
	if err != nil {
		return nil, err
	}
	wrange, err := cfg.Wavelength.Range()
	if err != nil {
		return nil, err
	}
	src, err := sim.NewImportedSource(snap, family, sim.SourceConfig{
		Name:            cfg.Name,
		WavelengthRange: wrange,
		Workers:         cfg.Launch.Workers,
	})
	if err != nil {
		return nil, err
	}

	tc := cfg.Trace.Config()
	if tc.Level == "" || tc.Level == trace.TraceLevelNone {
		tc.Level = trace.TraceLevelSummary // the report needs per-entity counts
	}
	logrus.Infof("Launching %s packets from %s entities (bias %g, seed %d)",
		humanize.Comma(int64(cfg.Launch.Packets)), humanize.Comma(int64(src.NumEntities())), cfg.Launch.Bias, cfg.Seed)
	res, err := sim.Run(ctx, src, sim.NewSimulationKey(cfg.Seed), cfg.Launch, tc)
	if err != nil {
		return nil, err
	}
	return &runOutcome{
		Config:  cfg,
		Source:  src,
		Result:  res,
		Summary: trace.Summarize(res.Tally, src.EntityLuminosities()),
	}, nil
}

// printRunReport writes a human-readable run summary listing the topN
// entities with the largest emission error.
func printRunReport(w io.Writer, out *runOutcome, topN int) {
	s := out.Summary
	fmt.Fprintf(w, "=== Launch Summary ===\n")
	fmt.Fprintf(w, "Family              : %s\n", out.Config.Family.Type)
	fmt.Fprintf(w, "Entities            : %s\n", humanize.Comma(int64(out.Source.NumEntities())))
	fmt.Fprintf(w, "Wavelength range    : [%g, %g] m\n", out.Source.WavelengthRange().Min, out.Source.WavelengthRange().Max)
	fmt.Fprintf(w, "Source luminosity   : %s\n", humanize.SIWithDigits(out.Source.Luminosity(), 4, "W"))
	fmt.Fprintf(w, "Packets             : %s in %d segment(s)\n", humanize.Comma(s.TotalPackets), out.Result.Segments)
	fmt.Fprintf(w, "Zero-weight packets : %s\n", humanize.Comma(s.ZeroWeightPackets))
	fmt.Fprintf(w, "Emitted luminosity  : %s\n", humanize.SIWithDigits(s.EmittedLuminosity, 4, "W"))
	fmt.Fprintf(w, "Max relative error  : %.3g\n", s.MaxRelativeError)
	fmt.Fprintf(w, "Elapsed             : %s\n", out.Result.Elapsed.Round(1e6))

	if topN <= 0 || len(s.PerEntity) == 0 {
		return
	}
	stats := append([]trace.EntityStat(nil), s.PerEntity...)
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].RelativeError > stats[j].RelativeError })
	if len(stats) > topN {
		stats = stats[:topN]
	}
	fmt.Fprintf(w, "\n%-8s %12s %14s %14s %10s\n", "entity", "packets", "emitted", "expected", "rel.err")
	for _, st := range stats {
		fmt.Fprintf(w, "%-8d %12s %14.6g %14.6g %10.3g\n", st.Entity, humanize.Comma(st.Packets), st.Emitted, st.Expected, st.RelativeError)
	}
}

// saveRun persists the run summary and per-entity statistics.
func saveRun(ctx context.Context, path string, out *runOutcome) (string, error) {
	st := store.NewSQLiteStore(path)
	if err := st.Init(ctx); err != nil {
		return "", err
	}
	defer func() { _ = st.Close() }()

	id, err := st.SaveRun(ctx, store.RunRecord{
		Name:             out.Config.Name,
		Family:           out.Config.Family.Type,
		Seed:             out.Config.Seed,
		Entities:         out.Source.NumEntities(),
		Packets:          out.Result.Packets,
		Segments:         out.Result.Segments,
		Bias:             out.Config.Launch.Bias,
		Luminosity:       out.Source.Luminosity(),
		Emitted:          out.Summary.EmittedLuminosity,
		MaxRelativeError: out.Summary.MaxRelativeError,
		Elapsed:          out.Result.Elapsed,
	})
	if err != nil {
		return "", err
	}
	if err := st.SaveEntityStats(ctx, id, out.Summary.PerEntity); err != nil {
		return "", err
	}
	return id, nil
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "YAML run configuration")
	runCmd.Flags().Int64Var(&runSeed, "seed", 42, "Seed for packet launches and synthetic snapshots (overrides config)")
	runCmd.Flags().IntVar(&runPackets, "packets", 0, "Total number of photon packets (overrides config)")
	runCmd.Flags().Float64Var(&runBias, "bias", 0, "Launch bias in [0,1] (overrides config)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Worker goroutines, 0 = one per CPU (overrides config)")
	runCmd.Flags().IntVar(&runSegments, "segments", 1, "Sequential launch segments (overrides config)")
	runCmd.Flags().StringVar(&runStorePath, "store", "", "SQLite database receiving the run summary (overrides config)")
	runCmd.Flags().IntVar(&runTopN, "top", 10, "Entities listed in the report, by largest relative error")
}
