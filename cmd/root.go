package cmd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/emission-sim/emission-sim/sim/table"
)

// ResourcesEnv lists additional resource directories, separated like PATH.
const ResourcesEnv = "EMISSION_SIM_RESOURCES"

var (
	logLevel     string   // Log verbosity level
	resourceDirs []string // Directories searched for stored tables, before ResourcesEnv
	envFile      string   // Optional .env file supplying ResourcesEnv
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "emission-sim",
	Short: "Spectral sampling and biased photon packet launching for imported sources",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		// A missing .env file is not an error; the environment may be set directly.
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("Could not load %s: %v", envFile, err)
		}
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resourceLocator searches the given directories first, then the --resources
// flag directories, then those listed in ResourcesEnv.
func resourceLocator(dirs ...string) table.Locator {
	all := append(append([]string{}, dirs...), resourceDirs...)
	if env := strings.TrimSpace(os.Getenv(ResourcesEnv)); env != "" {
		all = append(all, filepath.SplitList(env)...)
	}
	return table.NewLocator(all...)
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringSliceVar(&resourceDirs, "resources", nil, "Directories searched for stored tables (before $"+ResourcesEnv+")")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "File with environment defaults such as "+ResourcesEnv)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(familiesCmd)
	rootCmd.AddCommand(inspectTableCmd)
	rootCmd.AddCommand(convertTableCmd)
	rootCmd.AddCommand(synthCmd)
	rootCmd.AddCommand(runsCmd)
}
