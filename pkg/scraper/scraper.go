package scraper

import (
	"context"
	"fmt"

	"venuescraper/pkg/backup"
	"venuescraper/pkg/checkpoint"
	"venuescraper/pkg/config"
	"venuescraper/pkg/dataset"
	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/fetch"
	"venuescraper/pkg/logger"
	"venuescraper/pkg/models"
)

// State tracks where the collection engine is in its lifecycle. It is
// informational: the on-disk checkpoint and dataset are the durable state.
type State string

const (
	StateInit       State = "init"
	StateFresh      State = "fresh"
	StateResuming   State = "resuming"
	StateCollecting State = "collecting"
	StateFinalizing State = "finalizing"
	StateDone       State = "done"
	StateAborted    State = "aborted"
)

// Engine walks the listing site page by page and persists venue records.
type Engine struct {
	cfg         *config.Config
	fetcher     PageFetcher
	checkpoints *checkpoint.Store
	dataset     *dataset.Store
	backups     *backup.Manager
	loop        *fetch.Loop
	logger      logger.Logger
	state       State
}

// New creates a collection engine wired to the given page fetcher.
func New(cfg *config.Config, fetcher PageFetcher) (*Engine, error) {
	log := logger.GetLogger().WithField("component", "scraper")

	checkpoints, err := checkpoint.NewStore(cfg.CheckpointPath(), checkpoint.PhaseCollecting)
	if err != nil {
		return nil, errs.Fatal("scraper.New", err)
	}

	backups, err := backup.NewManager(cfg.BackupPath())
	if err != nil {
		return nil, errs.Fatal("scraper.New", err)
	}

	return &Engine{
		cfg:         cfg,
		fetcher:     fetcher,
		checkpoints: checkpoints,
		dataset:     dataset.NewStore(cfg.DatasetPath()),
		backups:     backups,
		loop:        fetch.New(cfg.Scrape.PageDelay, &cfg.Retry, log),
		logger:      log,
		state:       StateInit,
	}, nil
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	return e.state
}

// Run executes a collection run to completion or abort. With forceRestart
// the checkpoint is discarded and collection starts at page one; the
// existing dataset is still loaded, so re-scraped venues merge rather than
// duplicate. The returned summary is valid even when err is non-nil.
func (e *Engine) Run(ctx context.Context, forceRestart bool) (*fetch.Summary, error) {
	cp := e.checkpoints.Load()
	if forceRestart && cp != nil {
		if err := e.checkpoints.Clear(); err != nil {
			return e.abort(errs.Fatal("scraper.Run", err))
		}
		cp = nil
		e.logger.Info("force restart requested, checkpoint discarded")
	}

	venues, err := e.dataset.Load()
	if err != nil {
		// A corrupt dataset is never silently replaced; the user decides.
		return e.abort(err)
	}
	ix := dataset.NewIndex(venues)

	startPage := e.resolveStartPage(cp, ix, forceRestart)
	if cp == nil {
		cp = checkpoint.New(checkpoint.PhaseCollecting, startPage)
	}

	e.logger.InfoWithFields("collection run starting", map[string]interface{}{
		"state":      string(e.state),
		"start_page": startPage,
		"max_pages":  e.cfg.Scrape.MaxPages,
		"known":      ix.Len(),
	})

	e.state = StateCollecting
	emptyStreak := 0
	limitReached := false

	for page := startPage; page <= e.cfg.Scrape.MaxPages; page++ {
		var pageVenues []models.Venue
		err := e.loop.Do(ctx, fmt.Sprintf("page_%d", page), func(ctx context.Context) error {
			fetched, err := e.fetcher.FetchPage(ctx, page)
			if err != nil {
				return err
			}
			pageVenues = fetched
			return nil
		})

		switch {
		case err != nil && errs.TypeOf(err) == errs.ErrorTypePermanent:
			// A permanently failed page counts toward the end-of-listing
			// heuristic but is reported as a failure, not an empty page.
			e.logger.ErrorWithFields("listing page permanently failed, treating as empty", map[string]interface{}{
				"page":  page,
				"error": err.Error(),
			})
			emptyStreak++
		case err != nil:
			return e.abort(err)
		case len(pageVenues) == 0:
			e.logger.InfoWithFields("listing page empty", map[string]interface{}{
				"page":         page,
				"empty_streak": emptyStreak + 1,
			})
			emptyStreak++
		default:
			emptyStreak = 0
			added := 0
			for i := range pageVenues {
				v := pageVenues[i]
				if e.cfg.Scrape.FetchDetails && e.needsDetails(ix, v.DetailURL) {
					derr := e.loop.Do(ctx, "venue_"+v.Slug, func(ctx context.Context) error {
						return e.fetcher.FetchDetails(ctx, &v)
					})
					if derr != nil && errs.TypeOf(derr) != errs.ErrorTypePermanent {
						return e.abort(derr)
					}
					// On permanent detail failure the bare listing record
					// is kept; detail fields stay null.
				}
				if ix.Merge(v) {
					added++
				}
				if e.cfg.Scrape.MaxVenues > 0 && ix.Len() >= e.cfg.Scrape.MaxVenues {
					limitReached = true
					break
				}
			}
			e.logger.InfoWithFields("listing page collected", map[string]interface{}{
				"page":  page,
				"found": len(pageVenues),
				"new":   added,
				"total": ix.Len(),
			})
		}

		if err := e.dataset.Save(ix.Venues()); err != nil {
			return e.abort(err)
		}
		cp.Cursor = page + 1
		cp.ItemsDone = ix.Len()
		if err := e.checkpoints.Save(cp); err != nil {
			return e.abort(errs.Fatal("scraper.Run", err))
		}

		if page%e.cfg.Scrape.MilestoneInterval == 0 {
			tag := fmt.Sprintf("milestone_p%d", page)
			if _, err := e.backups.Snapshot(e.dataset.Path(), tag); err != nil {
				return e.abort(errs.Fatal("scraper.Run", err))
			}
		}

		if limitReached {
			e.logger.InfoWithFields("venue limit reached, stopping", map[string]interface{}{
				"total": ix.Len(),
			})
			break
		}
		if emptyStreak >= e.cfg.Scrape.EmptyPageThreshold {
			e.logger.InfoWithFields("end of listing reached", map[string]interface{}{
				"page":         page,
				"empty_streak": emptyStreak,
			})
			break
		}
	}

	if err := e.finalize(ix); err != nil {
		return e.abort(err)
	}

	summary := e.loop.Summary()
	e.logger.InfoWithFields("collection run complete", summary.Fields())
	return summary, nil
}

// resolveStartPage decides where collection begins, in priority order: an
// explicit start page override, the checkpoint cursor, then an estimate
// from the dataset size. The estimate rounds down so resumed runs re-fetch
// the boundary page rather than skip past unseen venues; merging by detail
// URL makes the overlap harmless.
func (e *Engine) resolveStartPage(cp *checkpoint.Checkpoint, ix *dataset.Index, forceRestart bool) int {
	if e.cfg.Scrape.StartPage > 0 {
		e.state = StateFresh
		return e.cfg.Scrape.StartPage
	}
	if forceRestart {
		e.state = StateFresh
		return 1
	}
	if cp != nil {
		e.state = StateResuming
		return cp.Cursor
	}
	if ix.Len() > 0 {
		e.state = StateResuming
		page := ix.Len() / e.cfg.Scrape.RecordsPerPage
		if page < 1 {
			page = 1
		}
		e.logger.InfoWithFields("no checkpoint, estimating resume page from dataset", map[string]interface{}{
			"venues":         ix.Len(),
			"estimated_page": page,
		})
		return page
	}
	e.state = StateFresh
	return 1
}

// needsDetails reports whether a venue's detail page should be fetched. A
// record already holding about text keeps it; re-scrapes skip the extra
// request.
func (e *Engine) needsDetails(ix *dataset.Index, detailURL string) bool {
	existing, ok := ix.Get(detailURL)
	if !ok {
		return true
	}
	return existing.About == nil
}

// finalize snapshots the completed dataset, verifies it reloads, and only
// then clears the checkpoint. Any failure here leaves the checkpoint in
// place so the next run resumes instead of starting over.
func (e *Engine) finalize(ix *dataset.Index) error {
	e.state = StateFinalizing

	if err := e.dataset.Save(ix.Venues()); err != nil {
		return err
	}

	if _, err := e.backups.Snapshot(e.dataset.Path(), "backup"); err != nil {
		return errs.Fatal("scraper.finalize", err)
	}

	verified, err := e.dataset.Load()
	if err != nil {
		return err
	}
	if len(verified) == 0 {
		return errs.New(errs.ErrorTypeFatal, "scraper.finalize", "dataset is empty after run, keeping checkpoint")
	}

	if err := e.checkpoints.Clear(); err != nil {
		return errs.Fatal("scraper.finalize", err)
	}

	e.state = StateDone
	return nil
}

func (e *Engine) abort(err error) (*fetch.Summary, error) {
	e.state = StateAborted
	e.logger.ErrorWithFields("collection run aborted", map[string]interface{}{
		"error": err.Error(),
	})
	return e.loop.Summary(), err
}
