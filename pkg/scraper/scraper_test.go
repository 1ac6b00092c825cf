package scraper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venuescraper/pkg/checkpoint"
	"venuescraper/pkg/config"
	"venuescraper/pkg/dataset"
	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/models"
)

// fakeFetcher serves canned listing pages and records every call.
type fakeFetcher struct {
	pages       map[int][]models.Venue
	pageErrs    map[int]error
	detailErrs  map[string]error
	fetched     []int
	detailCalls []string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, page int) ([]models.Venue, error) {
	f.fetched = append(f.fetched, page)
	if err, ok := f.pageErrs[page]; ok {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeFetcher) FetchDetails(ctx context.Context, v *models.Venue) error {
	f.detailCalls = append(f.detailCalls, v.Slug)
	if err, ok := f.detailErrs[v.Slug]; ok {
		return err
	}
	about := "About " + v.Name
	v.About = &about
	return nil
}

func venue(n int) models.Venue {
	slug := fmt.Sprintf("venue-%03d", n)
	return models.Venue{
		Name:      fmt.Sprintf("Venue %03d", n),
		Slug:      slug,
		Address:   fmt.Sprintf("Teststr. %d, 10115 Berlin", n),
		Tags:      []string{"Cafe"},
		DetailURL: "https://atentogutschein.de/marketplace_merchants/" + slug,
	}
}

func venueRange(start, count int) []models.Venue {
	venues := make([]models.Venue, 0, count)
	for i := 0; i < count; i++ {
		venues = append(venues, venue(start+i))
	}
	return venues
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.DataDir = t.TempDir()
	cfg.Scrape.MaxPages = 2
	cfg.Scrape.PageDelay = 0
	cfg.Scrape.FetchDetails = false
	cfg.Geocode.RequestDelay = 0
	cfg.Retry.MaxAttempts = 2
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 5 * time.Millisecond
	return cfg
}

func loadDataset(t *testing.T, cfg *config.Config) []models.Venue {
	t.Helper()
	venues, err := dataset.NewStore(cfg.DatasetPath()).Load()
	require.NoError(t, err)
	return venues
}

func TestRunFreshMergesOverlappingPages(t *testing.T) {
	cfg := testConfig(t)
	// Pages overlap by five venues, as consecutive listing pages do when
	// entries shift between requests
	fetcher := &fakeFetcher{pages: map[int][]models.Venue{
		1: venueRange(1, 25),
		2: venueRange(21, 25),
	}}

	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	summary, err := engine.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StateDone, engine.State())
	assert.Equal(t, 2, summary.Succeeded)

	venues := loadDataset(t, cfg)
	assert.Len(t, venues, 45)

	// Checkpoint is gone after a successful run
	cps, err := checkpoint.NewStore(cfg.CheckpointPath(), checkpoint.PhaseCollecting)
	require.NoError(t, err)
	assert.False(t, cps.Exists())

	// A completion snapshot exists
	entries, err := os.ReadDir(cfg.BackupPath())
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestRunStopsAfterConsecutiveEmptyPages(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.MaxPages = 10
	fetcher := &fakeFetcher{pages: map[int][]models.Venue{
		1: venueRange(1, 5),
		// Pages 2 and 3 are empty; page 4 must never be fetched
		4: venueRange(100, 5),
	}}

	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, fetcher.fetched)
	assert.Len(t, loadDataset(t, cfg), 5)
}

func TestRunSingleEmptyPageDoesNotStop(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.MaxPages = 3
	fetcher := &fakeFetcher{pages: map[int][]models.Venue{
		1: venueRange(1, 5),
		// Page 2 is a gap, page 3 has venues again
		3: venueRange(6, 5),
	}}

	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, fetcher.fetched)
	assert.Len(t, loadDataset(t, cfg), 10)
}

func TestRunAbortKeepsCheckpointAndResume(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.MaxPages = 3

	// First run dies fatally on page 2
	fetcher := &fakeFetcher{
		pages:    map[int][]models.Venue{1: venueRange(1, 22)},
		pageErrs: map[int]error{2: errs.Fatal("disk", errors.New("out of space"))},
	}
	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, StateAborted, engine.State())

	// Page 1's work is on disk, the checkpoint points at page 2
	assert.Len(t, loadDataset(t, cfg), 22)
	cps, err := checkpoint.NewStore(cfg.CheckpointPath(), checkpoint.PhaseCollecting)
	require.NoError(t, err)
	cp := cps.Load()
	require.NotNil(t, cp)
	assert.Equal(t, 2, cp.Cursor)

	// Second run resumes at page 2 and completes
	resumed := &fakeFetcher{pages: map[int][]models.Venue{
		2: venueRange(23, 22),
		3: venueRange(45, 10),
	}}
	engine2, err := New(cfg, resumed)
	require.NoError(t, err)

	_, err = engine2.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StateDone, engine2.State())
	assert.Equal(t, []int{2, 3}, resumed.fetched)
	assert.Len(t, loadDataset(t, cfg), 54)
	assert.False(t, cps.Exists())
}

func TestRunEstimatesResumePageFromDataset(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.MaxPages = 3

	// 44 venues on disk and no checkpoint: 44 / 22 puts the resume at page 2
	require.NoError(t, dataset.NewStore(cfg.DatasetPath()).Save(venueRange(1, 44)))

	fetcher := &fakeFetcher{pages: map[int][]models.Venue{
		2: venueRange(40, 10),
		3: venueRange(50, 5),
	}}
	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), false)
	require.NoError(t, err)

	// Page 1 is never re-fetched; the overlap on page 2 merges harmlessly
	assert.Equal(t, []int{2, 3}, fetcher.fetched)
	assert.Len(t, loadDataset(t, cfg), 54)
}

func TestRunResumeIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	fetcher := &fakeFetcher{pages: map[int][]models.Venue{
		1: venueRange(1, 25),
		2: venueRange(21, 25),
	}}
	engine, err := New(cfg, fetcher)
	require.NoError(t, err)
	_, err = engine.Run(context.Background(), false)
	require.NoError(t, err)
	first := loadDataset(t, cfg)

	// Running again from scratch over the same listing changes nothing
	engine2, err := New(cfg, fetcher)
	require.NoError(t, err)
	_, err = engine2.Run(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, len(first), len(loadDataset(t, cfg)))
}

func TestRunForceRestartDiscardsCheckpoint(t *testing.T) {
	cfg := testConfig(t)
	cps, err := checkpoint.NewStore(cfg.CheckpointPath(), checkpoint.PhaseCollecting)
	require.NoError(t, err)
	require.NoError(t, cps.Save(checkpoint.New(checkpoint.PhaseCollecting, 2)))

	fetcher := &fakeFetcher{pages: map[int][]models.Venue{
		1: venueRange(1, 5),
		2: venueRange(6, 5),
	}}
	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, fetcher.fetched)
	assert.Len(t, loadDataset(t, cfg), 10)
}

func TestRunStartPageOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.StartPage = 2
	cfg.Scrape.MaxPages = 2

	fetcher := &fakeFetcher{pages: map[int][]models.Venue{
		1: venueRange(1, 5),
		2: venueRange(6, 5),
	}}
	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []int{2}, fetcher.fetched)
}

func TestRunPermanentPageFailureCountsAsEmpty(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.MaxPages = 10
	gone := errs.Permanent("venuesite.get", errors.New("410 gone"))
	fetcher := &fakeFetcher{
		pages:    map[int][]models.Venue{1: venueRange(1, 5)},
		pageErrs: map[int]error{2: gone, 3: gone},
	}

	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	summary, err := engine.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StateDone, engine.State())

	// Two failed pages end the listing like two empty ones would
	assert.Equal(t, []int{1, 2, 3}, fetcher.fetched)
	assert.Equal(t, 2, summary.SkippedPermanent)
	assert.Len(t, summary.Failures, 2)
}

func TestRunMaxVenuesCap(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.MaxPages = 5
	cfg.Scrape.MaxVenues = 30
	fetcher := &fakeFetcher{pages: map[int][]models.Venue{
		1: venueRange(1, 25),
		2: venueRange(26, 25),
		3: venueRange(51, 25),
	}}

	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, fetcher.fetched)
	assert.Len(t, loadDataset(t, cfg), 30)
}

func TestRunFetchesDetailsForNewVenuesOnly(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.MaxPages = 1
	cfg.Scrape.FetchDetails = true

	// One venue already has its about text from a previous run
	known := venue(1)
	about := "Existing about"
	known.About = &about
	require.NoError(t, dataset.NewStore(cfg.DatasetPath()).Save([]models.Venue{known}))

	fetcher := &fakeFetcher{pages: map[int][]models.Venue{
		1: venueRange(1, 3),
	}}
	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{"venue-002", "venue-003"}, fetcher.detailCalls)

	venues := loadDataset(t, cfg)
	require.Len(t, venues, 3)
	assert.Equal(t, "Existing about", *venues[0].About)
	assert.Equal(t, "About Venue 002", *venues[1].About)
}

func TestRunDetailFailureKeepsBareRecord(t *testing.T) {
	cfg := testConfig(t)
	cfg.Scrape.MaxPages = 1
	cfg.Scrape.FetchDetails = true

	fetcher := &fakeFetcher{
		pages:      map[int][]models.Venue{1: venueRange(1, 2)},
		detailErrs: map[string]error{"venue-001": errs.Permanent("venuesite.get", errors.New("404"))},
	}
	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	summary, err := engine.Run(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.SkippedPermanent)

	venues := loadDataset(t, cfg)
	require.Len(t, venues, 2)
	assert.Nil(t, venues[0].About)
	require.NotNil(t, venues[1].About)
}

func TestRunCorruptDatasetAborts(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(cfg.DatasetPath(), []byte("[{broken"), 0644))

	fetcher := &fakeFetcher{pages: map[int][]models.Venue{1: venueRange(1, 5)}}
	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(context.Background(), false)
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeCorruption, errs.TypeOf(err))
	assert.Equal(t, StateAborted, engine.State())

	// The corrupt file was not overwritten
	data, err := os.ReadFile(cfg.DatasetPath())
	require.NoError(t, err)
	assert.Equal(t, "[{broken", string(data))

	// Nothing was fetched
	assert.Empty(t, fetcher.fetched)
}

func TestRunContextCancellation(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := &fakeFetcher{pages: map[int][]models.Venue{1: venueRange(1, 5)}}
	engine, err := New(cfg, fetcher)
	require.NoError(t, err)

	_, err = engine.Run(ctx, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateAborted, engine.State())
}
