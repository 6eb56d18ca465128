package geo

import (
	"sort"

	"homecook-api/models"
)

// Nearby is a cook spot that passed the radius check, with the distance
// that admitted it.
type Nearby struct {
	Spot           models.CookSpot `json:"spot"`
	DistanceMeters float64         `json:"distance_meters"`
}

// SpotPoint returns the coordinate of a cook spot
func SpotPoint(s models.CookSpot) Point {
	return Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

// FilterNearby returns the candidates whose great-circle distance to origin
// is at most radiusMeters, in input order. A nil origin means there is no
// fix yet and yields an empty result, never the unfiltered list. A negative
// radius also yields an empty result; radius 0 keeps only coincident points.
// Candidates whose coordinates fail Point.Valid are skipped, as is every
// candidate when the origin itself is out of range.
func FilterNearby(origin *Point, radiusMeters float64, candidates []models.CookSpot) []Nearby {
	if origin == nil || radiusMeters < 0 || !origin.Valid() {
		return []Nearby{}
	}
	out := make([]Nearby, 0, len(candidates))
	for i := range candidates {
		p := SpotPoint(candidates[i])
		if !p.Valid() {
			continue
		}
		d := Distance(*origin, p)
		if d <= radiusMeters {
			out = append(out, Nearby{Spot: candidates[i], DistanceMeters: d})
		}
	}
	return out
}

// SortByDistance orders results nearest first. Ties keep their input order.
func SortByDistance(results []Nearby) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].DistanceMeters < results[j].DistanceMeters
	})
}
