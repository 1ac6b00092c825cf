// Package district maps coordinates onto Berlin districts using a fixed set
// of bounding regions. A coordinate pair outside every region resolves to
// nothing; callers keep the district null rather than fabricating a guess.
package district

import "github.com/twpayne/go-geom"

// Region is a named rectangular district bound in lon/lat space.
type Region struct {
	Name   string
	bounds *geom.Bounds
}

func region(name string, minLat, minLon, maxLat, maxLon float64) Region {
	return Region{
		Name:   name,
		bounds: geom.NewBounds(geom.XY).Set(minLon, minLat, maxLon, maxLat),
	}
}

// regions lists the known Berlin district bounds. Boxes overlap at the
// edges; earlier entries win, so the central districts come first.
var regions = []Region{
	region("Mitte", 52.500, 13.330, 52.550, 13.430),
	region("Prenzlauer Berg", 52.520, 13.400, 52.560, 13.450),
	region("Friedrichshain", 52.490, 13.420, 52.530, 13.480),
	region("Kreuzberg", 52.480, 13.370, 52.510, 13.440),
	region("Neukölln", 52.430, 13.400, 52.490, 13.480),
	region("Charlottenburg", 52.490, 13.240, 52.530, 13.330),
	region("Schöneberg", 52.460, 13.330, 52.500, 13.370),
	region("Tempelhof", 52.430, 13.360, 52.470, 13.410),
	region("Moabit", 52.520, 13.310, 52.545, 13.370),
	region("Wedding", 52.540, 13.320, 52.575, 13.390),
	region("Pankow", 52.550, 13.390, 52.610, 13.450),
	region("Lichtenberg", 52.480, 13.470, 52.550, 13.530),
	region("Wilmersdorf", 52.460, 13.280, 52.500, 13.330),
	region("Steglitz", 52.430, 13.300, 52.460, 13.360),
}

// Resolve returns the district containing the coordinate pair, if any.
func Resolve(lat, lon float64) (string, bool) {
	point := geom.Coord{lon, lat}
	for _, r := range regions {
		if r.bounds.OverlapsPoint(geom.XY, point) {
			return r.Name, true
		}
	}
	return "", false
}

// Names returns the known district names in resolution order.
func Names() []string {
	names := make([]string, len(regions))
	for i, r := range regions {
		names[i] = r.Name
	}
	return names
}
