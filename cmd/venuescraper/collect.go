package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"venuescraper/pkg/fetch"
	"venuescraper/pkg/logger"
	"venuescraper/pkg/scraper"
	"venuescraper/pkg/venuesite"
)

var (
	// Collect command flags
	maxPages     int
	maxVenues    int
	startPage    int
	testMode     bool
	forceRestart bool
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect venue records from the paginated listing",
	Long: `Walk the Berlin venue listing page by page, fetch each new venue's
detail page, and persist the records to the dataset file.

The run checkpoints after every page. An interrupted run resumes from the
checkpoint; with no checkpoint but an existing dataset, the resume page is
estimated from the dataset size and the overlap merges harmlessly. The run
stops at the page limit, the venue limit, or after consecutive empty pages
signal the end of the listing.`,
	Example: `  # Full collection run (or resume of one)
  venuescraper collect

  # Quick test scrape: two pages, at most fifty venues
  venuescraper collect --test

  # Ignore the checkpoint and start over from page one
  venuescraper collect --force-restart

  # Collect a specific page range into a separate data directory
  venuescraper collect --start-page 40 --max-pages 50 --data-dir ./partial`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCollect()
	},
}

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().IntVar(&maxPages, "max-pages", 0, "highest listing page to fetch")
	collectCmd.Flags().IntVar(&maxVenues, "max-venues", 0, "stop after this many venues (0 = no limit)")
	collectCmd.Flags().IntVar(&startPage, "start-page", 0, "start at this page, overriding checkpoint and estimate")
	collectCmd.Flags().BoolVar(&testMode, "test", false, "quick test scrape: two pages, at most fifty venues")
	collectCmd.Flags().BoolVar(&forceRestart, "force-restart", false, "discard the checkpoint and start from page one")
}

func runCollect() error {
	flags := globalFlags()
	if maxPages > 0 {
		flags["max-pages"] = maxPages
	}
	if maxVenues > 0 {
		flags["max-venues"] = maxVenues
	}
	if startPage > 0 {
		flags["start-page"] = startPage
	}
	if testMode {
		flags["test"] = true
	}

	cfg, err := setup(flags)
	if err != nil {
		return err
	}
	log := logger.GetLogger()

	// Ctrl-C cancels the run cleanly; the checkpoint stays behind and the
	// next invocation resumes.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := scraper.New(cfg, venuesite.NewClient(cfg, log))
	if err != nil {
		return err
	}

	summary, err := engine.Run(ctx, forceRestart)
	printSummary(summary, false)
	if err != nil {
		log.WithError(err).Error("collection failed")
		return err
	}

	fmt.Println("Collection complete.")
	return nil
}

// printSummary writes the run tallies to stdout. With detailed set, each
// permanently failed unit is listed; otherwise the failures live in the log.
func printSummary(s *fetch.Summary, detailed bool) {
	if s == nil {
		return
	}
	fmt.Printf("\nRun summary:\n")
	fmt.Printf("  succeeded:              %d\n", s.Succeeded)
	fmt.Printf("  retried then succeeded: %d\n", s.RetriedThenSucceeded)
	fmt.Printf("  already done:           %d\n", s.AlreadyDone)
	fmt.Printf("  skipped (permanent):    %d\n", s.SkippedPermanent)
	if detailed {
		for _, f := range s.Failures {
			fmt.Printf("    %s: %v\n", f.Unit, f.Err)
		}
	}
}
