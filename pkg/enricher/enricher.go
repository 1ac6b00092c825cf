// Package enricher implements the enrichment engine: it walks the collected
// dataset record by record, geocodes each venue's address and assigns a
// district from the resulting coordinates. Enrichment is idempotent and
// monotone; a record that already has coordinates is never re-geocoded and
// never loses them, so the run can be interrupted and rerun freely.
package enricher

import (
	"context"
	"fmt"
	"strings"

	"venuescraper/pkg/backup"
	"venuescraper/pkg/checkpoint"
	"venuescraper/pkg/config"
	"venuescraper/pkg/dataset"
	"venuescraper/pkg/district"
	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/fetch"
	"venuescraper/pkg/geocode"
	"venuescraper/pkg/logger"
	"venuescraper/pkg/models"
)

// Engine geocodes collected venue records in place.
type Engine struct {
	cfg         *config.Config
	geocoder    geocode.Geocoder
	checkpoints *checkpoint.Store
	dataset     *dataset.Store
	backups     *backup.Manager
	loop        *fetch.Loop
	logger      logger.Logger
}

// New creates an enrichment engine wired to the given geocoder.
func New(cfg *config.Config, geocoder geocode.Geocoder) (*Engine, error) {
	log := logger.GetLogger().WithField("component", "enricher")

	checkpoints, err := checkpoint.NewStore(cfg.CheckpointPath(), checkpoint.PhaseEnriching)
	if err != nil {
		return nil, errs.Fatal("enricher.New", err)
	}

	backups, err := backup.NewManager(cfg.BackupPath())
	if err != nil {
		return nil, errs.Fatal("enricher.New", err)
	}

	return &Engine{
		cfg:         cfg,
		geocoder:    geocoder,
		checkpoints: checkpoints,
		dataset:     dataset.NewStore(cfg.DatasetPath()),
		backups:     backups,
		loop:        fetch.New(cfg.Geocode.RequestDelay, &cfg.Retry, log),
		logger:      log,
	}, nil
}

// Run enriches every record in the dataset that does not yet have
// coordinates. The record state, not the checkpoint cursor, decides what
// still needs work; the checkpoint only carries progress for status
// reporting. The returned summary is valid even when err is non-nil.
func (e *Engine) Run(ctx context.Context) (*fetch.Summary, error) {
	venues, err := e.dataset.Load()
	if err != nil {
		return e.abort(err)
	}
	if len(venues) == 0 {
		return e.abort(errs.New(errs.ErrorTypeFatal, "enricher.Run", "dataset is missing or empty, run a collection first"))
	}

	cp := e.checkpoints.Load()
	if cp == nil {
		cp = checkpoint.New(checkpoint.PhaseEnriching, 0)
	}

	enriched := 0
	for i := range venues {
		if venues[i].IsEnriched() {
			enriched++
		}
	}

	e.logger.InfoWithFields("enrichment run starting", map[string]interface{}{
		"records":          len(venues),
		"already_enriched": enriched,
	})

	geocoded := 0
	sinceSave := 0
	for i := range venues {
		v := &venues[i]
		if v.IsEnriched() {
			e.loop.MarkAlreadyDone()
			continue
		}

		var coords models.Coordinates
		err := e.loop.Do(ctx, "venue_"+v.Slug, func(ctx context.Context) error {
			if strings.TrimSpace(v.Address) == "" {
				return errs.Permanent("enricher.Run", geocode.ErrNoResult)
			}
			found, err := e.geocoder.Lookup(ctx, v.Address)
			if err != nil {
				return err
			}
			coords = found
			return nil
		})
		if err != nil {
			if errs.TypeOf(err) == errs.ErrorTypePermanent {
				// The record keeps its null coordinates and stays eligible
				// for the next run.
				continue
			}
			// Persist partial progress before stopping so an interrupted
			// run loses at most the save interval.
			e.flush(venues, cp, i, enriched)
			return e.abort(err)
		}

		v.Coordinates = &coords
		if name, ok := district.Resolve(coords.Lat(), coords.Lon()); ok {
			v.District = &name
		} else {
			e.logger.WarnWithFields("coordinates outside known districts", map[string]interface{}{
				"venue": v.Slug,
				"lat":   coords.Lat(),
				"lon":   coords.Lon(),
			})
		}
		enriched++
		geocoded++
		sinceSave++

		if sinceSave >= e.cfg.Geocode.SaveInterval {
			if err := e.persist(venues, cp, i+1, enriched); err != nil {
				return e.abort(err)
			}
			sinceSave = 0
		}

		if geocoded%e.cfg.Geocode.MilestoneInterval == 0 {
			tag := fmt.Sprintf("milestone_r%d", geocoded)
			if _, err := e.backups.Snapshot(e.dataset.Path(), tag); err != nil {
				return e.abort(errs.Fatal("enricher.Run", err))
			}
		}
	}

	if err := e.finalize(venues, cp, enriched); err != nil {
		return e.abort(err)
	}

	summary := e.loop.Summary()
	e.logger.InfoWithFields("enrichment run complete", summary.Fields())
	return summary, nil
}

// persist saves the dataset and checkpoint after a unit of work.
func (e *Engine) persist(venues []models.Venue, cp *checkpoint.Checkpoint, cursor, enriched int) error {
	if err := e.dataset.Save(venues); err != nil {
		return err
	}
	cp.Cursor = cursor
	cp.ItemsDone = enriched
	if err := e.checkpoints.Save(cp); err != nil {
		return errs.Fatal("enricher.persist", err)
	}
	return nil
}

// flush is a best-effort persist on the abort path; its own failure is
// logged but not surfaced over the original error.
func (e *Engine) flush(venues []models.Venue, cp *checkpoint.Checkpoint, cursor, enriched int) {
	if err := e.persist(venues, cp, cursor, enriched); err != nil {
		e.logger.ErrorWithFields("failed to persist progress while aborting", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// finalize persists the enriched dataset, snapshots it, verifies the file
// reloads, and only then clears the checkpoint. Records that permanently
// failed to geocode stay null and are picked up by a later run.
func (e *Engine) finalize(venues []models.Venue, cp *checkpoint.Checkpoint, enriched int) error {
	if err := e.persist(venues, cp, len(venues), enriched); err != nil {
		return err
	}

	if _, err := e.backups.Snapshot(e.dataset.Path(), "geocoded"); err != nil {
		return errs.Fatal("enricher.finalize", err)
	}

	verified, err := e.dataset.Load()
	if err != nil {
		return err
	}
	if len(verified) != len(venues) {
		return errs.New(errs.ErrorTypeFatal, "enricher.finalize",
			fmt.Sprintf("dataset reloaded with %d records, expected %d, keeping checkpoint", len(verified), len(venues)))
	}

	if err := e.checkpoints.Clear(); err != nil {
		return errs.Fatal("enricher.finalize", err)
	}

	e.logger.InfoWithFields("enrichment finalized", map[string]interface{}{
		"records":  len(venues),
		"enriched": enriched,
	})
	return nil
}

func (e *Engine) abort(err error) (*fetch.Summary, error) {
	e.logger.ErrorWithFields("enrichment run aborted", map[string]interface{}{
		"error": err.Error(),
	})
	return e.loop.Summary(), err
}
