// Package geocode resolves free-text addresses to coordinates.
package geocode

import (
	"context"

	errs "venuescraper/pkg/errors"
	"venuescraper/pkg/models"
)

// ErrNoResult indicates the service returned no match for the address. It
// is a permanent per-unit failure: the record is skipped, never retried.
var ErrNoResult = errs.New(errs.ErrorTypePermanent, "geocode", "no result for address")

// Geocoder looks up coordinates for an address.
type Geocoder interface {
	Lookup(ctx context.Context, address string) (models.Coordinates, error)
}
