package dataset

import "venuescraper/pkg/models"

// Index is the in-memory dedup view over the ordered record sequence, keyed
// by detail URL. It preserves insertion order so that the enrichment cursor
// stays stable across runs, and maintains the invariant that the number of
// records always equals the number of distinct detail URLs.
type Index struct {
	order []models.Venue
	byURL map[string]int
}

// NewIndex builds an index over existing records. Later duplicates of the
// same detail URL overwrite earlier ones in place.
func NewIndex(venues []models.Venue) *Index {
	ix := &Index{
		order: make([]models.Venue, 0, len(venues)),
		byURL: make(map[string]int, len(venues)),
	}
	for _, v := range venues {
		ix.Merge(v)
	}
	return ix
}

// Merge inserts or replaces a record by its detail URL, last write wins for
// listing fields. Enrichment fields never regress: when the incoming record
// carries null coordinates, district, about or website, the previously
// stored values are kept, so re-scraping an already-enriched dataset cannot
// undo enrichment work. It reports whether the record was new.
func (ix *Index) Merge(v models.Venue) bool {
	if pos, ok := ix.byURL[v.DetailURL]; ok {
		prev := ix.order[pos]
		if v.Coordinates == nil {
			v.Coordinates = prev.Coordinates
		}
		if v.District == nil {
			v.District = prev.District
		}
		if v.About == nil {
			v.About = prev.About
		}
		if v.Website == nil {
			v.Website = prev.Website
		}
		ix.order[pos] = v
		return false
	}
	ix.byURL[v.DetailURL] = len(ix.order)
	ix.order = append(ix.order, v)
	return true
}

// Get returns the record stored for a detail URL.
func (ix *Index) Get(detailURL string) (models.Venue, bool) {
	pos, ok := ix.byURL[detailURL]
	if !ok {
		return models.Venue{}, false
	}
	return ix.order[pos], true
}

// Has reports whether a record with the given detail URL is present.
func (ix *Index) Has(detailURL string) bool {
	_, ok := ix.byURL[detailURL]
	return ok
}

// Len returns the number of distinct records.
func (ix *Index) Len() int {
	return len(ix.order)
}

// Venues returns the records in insertion order. The returned slice is the
// index's backing storage; callers persist it, they do not mutate it.
func (ix *Index) Venues() []models.Venue {
	return ix.order
}

// Deduplicate removes later records sharing a detail URL with an earlier
// one, keeping the first occurrence. After a normal collection run this is
// a no-op; it exists for legacy or hand-edited dataset files.
func Deduplicate(venues []models.Venue) ([]models.Venue, int) {
	seen := make(map[string]bool, len(venues))
	kept := make([]models.Venue, 0, len(venues))
	for _, v := range venues {
		if seen[v.DetailURL] {
			continue
		}
		seen[v.DetailURL] = true
		kept = append(kept, v)
	}
	return kept, len(venues) - len(kept)
}
