package scraper

import (
	"context"

	"venuescraper/pkg/models"
)

// PageFetcher fetches and extracts venue data from the listing site.
type PageFetcher interface {
	// FetchPage returns the venue entries on a 1-based listing page. An
	// empty result with no error means the page listed no venues.
	FetchPage(ctx context.Context, page int) ([]models.Venue, error)

	// FetchDetails fills in detail-page fields (about, website) in place.
	FetchDetails(ctx context.Context, v *models.Venue) error
}
