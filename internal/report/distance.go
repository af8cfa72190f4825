package report

import (
	"math"
	"sort"

	"fleet-asset-report/internal/models"

	"github.com/paulmach/orb"
)

// EarthRadiusKM is the sphere radius used for every distance in a report
const EarthRadiusKM = 6367.0

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Haversine returns the great-circle distance in kilometres between two
// points given in decimal degrees.
func Haversine(p1, p2 orb.Point) float64 {
	lat1, lon1 := radians(p1.Lat()), radians(p1.Lon())
	lat2, lon2 := radians(p2.Lat()), radians(p2.Lon())

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Pow(math.Sin(dlat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dlon/2), 2)
	// rounding can push a a hair above 1 for antipodal points
	a = math.Min(a, 1)

	return 2 * EarthRadiusKM * math.Asin(math.Sqrt(a))
}

// TrackLength sums the distance between consecutive points of a track.
func TrackLength(track orb.LineString) float64 {
	var km float64
	for i := 1; i < len(track); i++ {
		km += Haversine(track[i-1], track[i])
	}
	return km
}

// Tracks groups fixes per asset. Assets are returned in order of first
// appearance; each track is ordered by timestamp, ties kept in input order.
func Tracks(telemetry []models.TelemetryRecord) ([]int64, map[int64]orb.LineString) {
	var order []int64
	groups := make(map[int64][]models.TelemetryRecord)

	for _, t := range telemetry {
		if _, ok := groups[t.AssetID]; !ok {
			order = append(order, t.AssetID)
		}
		groups[t.AssetID] = append(groups[t.AssetID], t)
	}

	tracks := make(map[int64]orb.LineString, len(groups))
	for id, fixes := range groups {
		sort.SliceStable(fixes, func(i, j int) bool {
			return fixes[i].Timestamp < fixes[j].Timestamp
		})

		track := make(orb.LineString, 0, len(fixes))
		for _, f := range fixes {
			track = append(track, f.Point())
		}
		tracks[id] = track
	}

	return order, tracks
}

// Distances returns one result for every asset present in telemetry.
// Assets with fewer than two fixes travelled 0 km.
func Distances(telemetry []models.TelemetryRecord) []models.DistanceResult {
	order, tracks := Tracks(telemetry)
	return trackDistances(order, tracks)
}

func trackDistances(order []int64, tracks map[int64]orb.LineString) []models.DistanceResult {
	results := make([]models.DistanceResult, 0, len(order))
	for _, id := range order {
		results = append(results, models.DistanceResult{
			AssetID:    id,
			DistanceKM: TrackLength(tracks[id]),
		})
	}
	return results
}

// Extent is the bounding box of every fix in tracks. ok is false when there
// are no fixes.
func Extent(tracks map[int64]orb.LineString) (bound orb.Bound, ok bool) {
	for _, track := range tracks {
		if len(track) == 0 {
			continue
		}
		if !ok {
			bound, ok = track.Bound(), true
			continue
		}
		bound = bound.Union(track.Bound())
	}
	return bound, ok
}
