// Package venuesite talks to the venue listing site: it fetches listing
// pages and venue detail pages over HTTP and extracts venue records from
// the returned markup. The engines consume it through a narrow interface
// and never see HTML.
package venuesite

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"venuescraper/pkg/config"
	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/logger"
	"venuescraper/pkg/models"
)

// Client fetches and extracts venue data from the listing site.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	listingPath string
	userAgent   string
	logger      logger.Logger
}

// NewClient creates a listing-site client from the application config.
func NewClient(cfg *config.Config, log logger.Logger) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: cfg.Site.Timeout},
		baseURL:     cfg.Site.BaseURL,
		listingPath: cfg.Site.ListingPath,
		userAgent:   cfg.Site.UserAgent,
		logger:      log,
	}
}

// PageURL builds the listing URL for a 1-based page index.
func (c *Client) PageURL(page int) string {
	base := c.baseURL + c.listingPath
	if page <= 1 {
		return base
	}
	return fmt.Sprintf("%s&page=%d", base, page)
}

// FetchPage fetches one listing page and extracts its venue entries. An
// empty slice with no error means the page rendered but listed no venues,
// which feeds the end-of-listing heuristic.
func (c *Client) FetchPage(ctx context.Context, page int) ([]models.Venue, error) {
	doc, err := c.get(ctx, c.PageURL(page))
	if err != nil {
		return nil, err
	}

	venues := extractVenues(doc, c.baseURL)

	c.logger.DebugWithFields("listing page fetched", map[string]interface{}{
		"page":   page,
		"venues": len(venues),
	})

	return venues, nil
}

// FetchDetails fetches a venue's detail page and fills in the about text
// and website URL.
func (c *Client) FetchDetails(ctx context.Context, v *models.Venue) error {
	doc, err := c.get(ctx, v.DetailURL)
	if err != nil {
		return err
	}

	about, website := extractDetails(doc)
	if about != "" {
		v.About = &about
	}
	if website != "" {
		v.Website = &website
	}

	return nil
}

func (c *Client) get(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.Permanent("venuesite.get", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Transient("venuesite.get", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.FromStatus("venuesite.get", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, errs.Permanent("venuesite.get", fmt.Errorf("malformed page: %w", err))
	}

	return doc, nil
}
