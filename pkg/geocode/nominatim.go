package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"venuescraper/pkg/config"
	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/logger"
	"venuescraper/pkg/models"
)

// Nominatim implements Geocoder against the OSM Nominatim search API.
type Nominatim struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
	logger     logger.Logger
}

// NewNominatim creates a Nominatim geocoder from the application config.
func NewNominatim(cfg *config.Config, log logger.Logger) *Nominatim {
	return &Nominatim{
		httpClient: &http.Client{Timeout: cfg.Geocode.Timeout},
		endpoint:   cfg.Geocode.Endpoint,
		userAgent:  cfg.Site.UserAgent,
		logger:     log,
	}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup geocodes an address within Berlin. When the full address yields no
// match it falls back to a simplified query built from the street part
// alone before giving up with ErrNoResult.
func (n *Nominatim) Lookup(ctx context.Context, address string) (models.Coordinates, error) {
	queries := []string{
		fmt.Sprintf("%s, Berlin, Germany", address),
	}
	if street := strings.TrimSpace(strings.SplitN(address, ",", 2)[0]); street != "" && street != address {
		queries = append(queries, fmt.Sprintf("%s, Berlin", street))
	}

	for _, query := range queries {
		coords, found, err := n.search(ctx, query)
		if err != nil {
			return models.Coordinates{}, err
		}
		if found {
			return coords, nil
		}
	}

	n.logger.WarnWithFields("address could not be geocoded", map[string]interface{}{
		"address": address,
	})
	return models.Coordinates{}, ErrNoResult
}

func (n *Nominatim) search(ctx context.Context, query string) (models.Coordinates, bool, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return models.Coordinates{}, false, errs.Permanent("geocode.search", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return models.Coordinates{}, false, errs.Transient("geocode.search", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, false, errs.FromStatus("geocode.search", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return models.Coordinates{}, false, errs.Permanent("geocode.search", fmt.Errorf("malformed response: %w", err))
	}

	if len(results) == 0 {
		return models.Coordinates{}, false, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, false, errs.Permanent("geocode.search", fmt.Errorf("malformed latitude %q: %w", results[0].Lat, err))
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, false, errs.Permanent("geocode.search", fmt.Errorf("malformed longitude %q: %w", results[0].Lon, err))
	}

	return models.Coordinates{lat, lon}, true, nil
}
