package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emission-sim/emission-sim/sim/sed"
	"github.com/emission-sim/emission-sim/sim/table"
)

var familyCfg sed.Config

// familiesCmd lists the spectral families, or describes one when its type is given.
var familiesCmd = &cobra.Command{
	Use:   "families [type]",
	Short: "List spectral families or show the parameters of one",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			listFamilies(os.Stdout)
			return
		}
		cfg := familyCfg
		cfg.Type = args[0]
		if err := describeFamily(os.Stdout, cfg, resourceLocator()); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

func listFamilies(w io.Writer) {
	for _, name := range sed.FamilyNames() {
		fmt.Fprintf(w, "%-14s %s\n", name, sed.ValidFamilies[name])
	}
}

// describeFamily constructs the family of cfg and prints its parameter vector
// and intrinsic wavelength range.
func describeFamily(w io.Writer, cfg sed.Config, loc table.Locator) error {
	f, err := sed.New(cfg, loc)
	if err != nil {
		return err
	}
	r := f.IntrinsicWavelengthRange()
	fmt.Fprintf(w, "Family %s\n", cfg.Type)
	fmt.Fprintf(w, "  wavelength range: [%g, %g] m\n", r.Min, r.Max)
	fmt.Fprintf(w, "  parameters:\n")
	for i, p := range f.ParameterInfo() {
		unit := p.DefaultUnit
		if unit == "" {
			unit = "-"
		}
		fmt.Fprintf(w, "    %d: %-32s %-14s %s\n", i, p.Description, p.Quantity, unit)
	}
	return nil
}

func init() {
	familiesCmd.Flags().StringVar(&familyCfg.Mode, "mode", "", "toddlers mode: cloud | sfr-normalized")
	familiesCmd.Flags().StringVar(&familyCfg.StellarTemplate, "stellar-template", "", "Stellar template selector")
	familiesCmd.Flags().StringVar(&familyCfg.IMF, "imf", "", "toddlers-sfr IMF selector")
	familiesCmd.Flags().StringVar(&familyCfg.StarType, "star-type", "", "toddlers-sfr star type selector")
	familiesCmd.Flags().StringVar(&familyCfg.Resolution, "resolution", "", "Wavelength resolution: low | high")
	familiesCmd.Flags().StringVar(&familyCfg.SFRPeriod, "sfr-period", "", "toddlers sfr-normalized period: 10Myr | 30Myr")
}
