package dataset

import (
	"sort"

	"venuescraper/pkg/models"
)

// Stats summarizes a dataset for the status command.
type Stats struct {
	Total           int
	WithAddress     int
	WithAbout       int
	WithWebsite     int
	WithTags        int
	WithCoordinates int
	WithDistrict    int
	TagCounts       map[string]int
	DistrictCounts  map[string]int
}

// ComputeStats analyzes venue records and returns completeness counters plus
// tag and district frequency breakdowns.
func ComputeStats(venues []models.Venue) Stats {
	stats := Stats{
		Total:          len(venues),
		TagCounts:      make(map[string]int),
		DistrictCounts: make(map[string]int),
	}

	for _, v := range venues {
		if v.Address != "" {
			stats.WithAddress++
		}
		if v.About != nil && *v.About != "" {
			stats.WithAbout++
		}
		if v.Website != nil && *v.Website != "" {
			stats.WithWebsite++
		}
		if len(v.Tags) > 0 {
			stats.WithTags++
		}
		if v.Coordinates != nil {
			stats.WithCoordinates++
		}
		if v.District != nil && *v.District != "" {
			stats.WithDistrict++
			stats.DistrictCounts[*v.District]++
		}
		for _, tag := range v.Tags {
			stats.TagCounts[tag]++
		}
	}

	return stats
}

// Frequency is a named count used for sorted breakdowns.
type Frequency struct {
	Name  string
	Count int
}

// SortedFrequencies returns counts sorted by descending count, then name.
func SortedFrequencies(counts map[string]int) []Frequency {
	freqs := make([]Frequency, 0, len(counts))
	for name, count := range counts {
		freqs = append(freqs, Frequency{Name: name, Count: count})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].Name < freqs[j].Name
	})
	return freqs
}
