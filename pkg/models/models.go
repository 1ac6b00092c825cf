package models

import "strings"

// Coordinates holds a latitude/longitude pair, in that order, matching the
// dataset file layout.
type Coordinates [2]float64

// Lat returns the latitude component.
func (c Coordinates) Lat() float64 {
	return c[0]
}

// Lon returns the longitude component.
func (c Coordinates) Lon() float64 {
	return c[1]
}

// Venue is a single venue record in the dataset file. DetailURL is the
// canonical identity: two records sharing it are duplicates regardless of
// every other field.
type Venue struct {
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Address     string       `json:"address"`
	Tags        []string     `json:"tags"`
	District    *string      `json:"district"`
	Coordinates *Coordinates `json:"coordinates"`
	About       *string      `json:"about"`
	Website     *string      `json:"website"`
	DetailURL   string       `json:"detail_url"`
}

// Key returns the identity key used for deduplication.
func (v *Venue) Key() string {
	return v.DetailURL
}

// IsEnriched reports whether the record already carries coordinates. This is
// the authoritative resume signal for the enrichment pass; the checkpoint
// cursor is only an optimization.
func (v *Venue) IsEnriched() bool {
	return v.Coordinates != nil
}

// SlugFromDetailPath derives the stable slug from a detail page path such as
// "/marketplace_merchants/cafe-kranz?utm=x".
func SlugFromDetailPath(path string) string {
	const marker = "/marketplace_merchants/"
	idx := strings.LastIndex(path, marker)
	if idx < 0 {
		return ""
	}
	slug := path[idx+len(marker):]
	if q := strings.IndexByte(slug, '?'); q >= 0 {
		slug = slug[:q]
	}
	return strings.TrimSuffix(slug, "/")
}
