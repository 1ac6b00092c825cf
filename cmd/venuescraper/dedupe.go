package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"venuescraper/pkg/backup"
	"venuescraper/pkg/dataset"
)

// dedupeCmd represents the dedupe command
var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Remove duplicate venue records from the dataset",
	Long: `Remove records sharing a detail URL, keeping the first occurrence of
each. Normal collection runs merge by detail URL already; this command
cleans up datasets produced by older runs or edited by hand. A snapshot of
the dataset is taken before anything is rewritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDedupe()
	},
}

func init() {
	rootCmd.AddCommand(dedupeCmd)
}

func runDedupe() error {
	cfg, err := setup(globalFlags())
	if err != nil {
		return err
	}

	store := dataset.NewStore(cfg.DatasetPath())
	venues, err := store.Load()
	if err != nil {
		return err
	}
	if len(venues) == 0 {
		fmt.Println("Dataset is empty, nothing to deduplicate.")
		return nil
	}

	kept, removed := dataset.Deduplicate(venues)
	if removed == 0 {
		fmt.Printf("No duplicates found in %d records.\n", len(venues))
		return nil
	}

	backups, err := backup.NewManager(cfg.BackupPath())
	if err != nil {
		return err
	}
	if _, err := backups.Snapshot(store.Path(), "pre_dedupe"); err != nil {
		return err
	}

	if err := store.Save(kept); err != nil {
		return err
	}

	fmt.Printf("Removed %d duplicate(s), %d records remain.\n", removed, len(kept))
	return nil
}
