package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"venuescraper/pkg/backup"
	"venuescraper/pkg/checkpoint"
	"venuescraper/pkg/dataset"
)

var statusDetailed bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dataset and pipeline progress",
	Long: `Report the state of the pipeline: dataset size, field completeness,
pending checkpoints and an estimate of the collection progress.

With --detailed, district and tag frequency breakdowns are included.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusDetailed, "detailed", false, "include district and tag breakdowns")
}

func runStatus() error {
	cfg, err := setup(globalFlags())
	if err != nil {
		return err
	}

	store := dataset.NewStore(cfg.DatasetPath())
	venues, err := store.Load()
	if err != nil {
		return err
	}

	fmt.Printf("Dataset: %s\n", store.Path())
	if !store.Exists() {
		fmt.Println("  no dataset yet, run 'venuescraper collect' first")
	}
	fmt.Printf("  venues:           %d\n", len(venues))

	stats := dataset.ComputeStats(venues)
	if stats.Total > 0 {
		fmt.Printf("  with address:     %d (%.0f%%)\n", stats.WithAddress, percent(stats.WithAddress, stats.Total))
		fmt.Printf("  with about:       %d (%.0f%%)\n", stats.WithAbout, percent(stats.WithAbout, stats.Total))
		fmt.Printf("  with website:     %d (%.0f%%)\n", stats.WithWebsite, percent(stats.WithWebsite, stats.Total))
		fmt.Printf("  with tags:        %d (%.0f%%)\n", stats.WithTags, percent(stats.WithTags, stats.Total))
		fmt.Printf("  with coordinates: %d (%.0f%%)\n", stats.WithCoordinates, percent(stats.WithCoordinates, stats.Total))
		fmt.Printf("  with district:    %d (%.0f%%)\n", stats.WithDistrict, percent(stats.WithDistrict, stats.Total))
	}

	fmt.Println("\nCollection:")
	printPhase(cfg.CheckpointPath(), checkpoint.PhaseCollecting, func(cp *checkpoint.Checkpoint) {
		fmt.Printf("  in progress, next page %d of %d (%d venues so far)\n",
			cp.Cursor, cfg.Scrape.MaxPages, cp.ItemsDone)
	}, func() {
		estimated := len(venues) / cfg.Scrape.RecordsPerPage
		fmt.Printf("  no checkpoint; dataset covers roughly %d of %d pages\n",
			estimated, cfg.Scrape.MaxPages)
	})

	fmt.Println("\nEnrichment:")
	printPhase(cfg.CheckpointPath(), checkpoint.PhaseEnriching, func(cp *checkpoint.Checkpoint) {
		fmt.Printf("  in progress, %d records enriched\n", cp.ItemsDone)
	}, func() {
		remaining := stats.Total - stats.WithCoordinates
		if remaining > 0 {
			fmt.Printf("  no checkpoint; %d records still need geocoding\n", remaining)
		} else if stats.Total > 0 {
			fmt.Println("  complete, every record has coordinates")
		} else {
			fmt.Println("  nothing to enrich yet")
		}
	})

	backups, err := backup.NewManager(cfg.BackupPath())
	if err == nil {
		if snapshots, err := backups.Snapshots(); err == nil {
			fmt.Printf("\nBackups: %d snapshot(s) in %s\n", len(snapshots), cfg.BackupPath())
			if len(snapshots) > 0 {
				fmt.Printf("  latest: %s\n", snapshots[0])
			}
		}
	}

	if statusDetailed && stats.Total > 0 {
		fmt.Println("\nDistricts:")
		for _, f := range dataset.SortedFrequencies(stats.DistrictCounts) {
			fmt.Printf("  %-20s %d\n", f.Name, f.Count)
		}
		fmt.Println("\nTop tags:")
		for i, f := range dataset.SortedFrequencies(stats.TagCounts) {
			if i >= 15 {
				break
			}
			fmt.Printf("  %-20s %d\n", f.Name, f.Count)
		}
	}

	return nil
}

// printPhase reports one engine's checkpoint state.
func printPhase(dir string, phase checkpoint.Phase, withCheckpoint func(*checkpoint.Checkpoint), without func()) {
	store, err := checkpoint.NewStore(dir, phase)
	if err != nil {
		fmt.Printf("  checkpoint directory unavailable: %v\n", err)
		return
	}
	if cp := store.Load(); cp != nil {
		withCheckpoint(cp)
		return
	}
	without()
}

func percent(part, total int) float64 {
	return float64(part) / float64(total) * 100
}
