package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emission-sim/emission-sim/sim/store"
)

var runsStorePath string

// runsCmd lists the runs saved in a store, or the entity statistics of one run.
var runsCmd = &cobra.Command{
	Use:   "runs [id]",
	Short: "List stored runs or show the per-entity statistics of one",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if runsStorePath == "" {
			logrus.Fatalf("--store is required")
		}
		ctx := context.Background()
		st := store.NewSQLiteStore(runsStorePath)
		if err := st.Init(ctx); err != nil {
			logrus.Fatalf("Opening store: %v", err)
		}
		defer func() { _ = st.Close() }()

		var err error
		if len(args) == 0 {
			err = listRuns(ctx, os.Stdout, st)
		} else {
			err = showRun(ctx, os.Stdout, st, args[0])
		}
		if err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func listRuns(ctx context.Context, w io.Writer, st *store.SQLiteStore) error {
	runs, err := st.ListRuns(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return nil
	}
	fmt.Fprintf(w, "%-36s  %-16s %-12s %10s %14s %6s %10s  %s\n",
		"id", "name", "family", "entities", "packets", "bias", "rel.err", "created")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-16s %-12s %10s %14s %6.2f %10.3g  %s\n",
			r.ID, r.Name, r.Family, humanize.Comma(int64(r.Entities)), humanize.Comma(int64(r.Packets)),
			r.Bias, r.MaxRelativeError, humanize.Time(r.CreatedAt))
	}
	return nil
}

func showRun(ctx context.Context, w io.Writer, st *store.SQLiteStore, id string) error {
	r, ok, err := st.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run %s not found", id)
	}
	stats, err := st.GetEntityStats(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Run %s (%s, %s family, seed %d)\n", r.ID, r.Name, r.Family, r.Seed)
	fmt.Fprintf(w, "  %s packets in %d segment(s), bias %g, %s\n",
		humanize.Comma(int64(r.Packets)), r.Segments, r.Bias, r.Elapsed)
	fmt.Fprintf(w, "  luminosity %s, emitted %s\n",
		humanize.SIWithDigits(r.Luminosity, 4, "W"), humanize.SIWithDigits(r.Emitted, 4, "W"))
	fmt.Fprintf(w, "\n%-8s %12s %14s %14s %10s\n", "entity", "packets", "emitted", "expected", "rel.err")
	for _, s := range stats {
		fmt.Fprintf(w, "%-8d %12s %14.6g %14.6g %10.3g\n", s.Entity, humanize.Comma(s.Packets), s.Emitted, s.Expected, s.RelativeError)
	}
	return nil
}

func init() {
	runsCmd.Flags().StringVar(&runsStorePath, "store", "", "SQLite database written by run --store")
}
