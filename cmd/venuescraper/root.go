package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"venuescraper/pkg/config"
	"venuescraper/pkg/logger"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	dataDir    string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "venuescraper",
	Short: "Collect and enrich Berlin venue data from the listing site",
	Long: `Venuescraper builds a dataset of Berlin venues from the public listing site.

The pipeline runs in two passes:
  - collect walks the paginated listing, fetches each venue's detail page
    and persists the records to a single JSON dataset file
  - enrich geocodes every collected address and assigns a Berlin district

Both passes checkpoint after every unit of work and resume where they
stopped, so an interrupted run is rerun with the same command. Timestamped
dataset snapshots are written at milestones and on completion.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .venuescraper.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory holding the dataset, checkpoints and backups")

	rootCmd.SetVersionTemplate(`venuescraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flag overrides for config.Load.
func globalFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}
	if dataDir != "" {
		flags["data-dir"] = dataDir
	}
	return flags
}

// setup loads the configuration and initializes logging. Every subcommand
// starts here.
func setup(flags map[string]interface{}) (*config.Config, error) {
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.GetLogger().WithField("version", version).Info("venuescraper starting")

	return cfg, nil
}
