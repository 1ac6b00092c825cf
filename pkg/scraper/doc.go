// Package scraper implements the collection engine: it walks the listing
// site page by page, merges venue records into the dataset by detail URL,
// checkpoints after every page and snapshots at milestones, so an
// interrupted run resumes where it stopped.
//
// Runs are strictly sequential: one page at a time, one engine at a time.
// The collection and enrichment engines must never run concurrently against
// the same dataset file; invocations are expected to be human- or
// cron-driven, scrape first, enrich second.
package scraper
