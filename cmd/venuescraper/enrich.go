package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"venuescraper/pkg/enricher"
	"venuescraper/pkg/geocode"
	"venuescraper/pkg/logger"
)

// enrichCmd represents the enrich command
var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Geocode collected venues and assign districts",
	Long: `Geocode every collected venue address and assign a Berlin district from
the resulting coordinates.

Only records without coordinates are looked up, so the command is safe to
rerun at any time: it skips finished records, retries past failures, and
resumes an interrupted run. Requests are paced to respect the geocoding
service's rate limit, so a full run over a large dataset takes a while.`,
	Example: `  # Enrich the collected dataset (or resume an interrupted run)
  venuescraper enrich

  # Enrich a dataset in a separate data directory
  venuescraper enrich --data-dir ./partial`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnrich()
	},
}

var enrichDetailed bool

func init() {
	rootCmd.AddCommand(enrichCmd)

	enrichCmd.Flags().BoolVar(&enrichDetailed, "detailed", false, "list every record that failed to geocode")
}

func runEnrich() error {
	cfg, err := setup(globalFlags())
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := enricher.New(cfg, geocode.NewNominatim(cfg, log))
	if err != nil {
		return err
	}

	summary, err := engine.Run(ctx)
	printSummary(summary, enrichDetailed)
	if err != nil {
		log.WithError(err).Error("enrichment failed")
		return err
	}

	fmt.Println("Enrichment complete.")
	return nil
}
