package geo

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/FACorreiaa/go-poi-resolver/internal/types"
)

const earthRadiusKm = 6371

// DistanceKm calculates the great-circle distance between two coordinates using the
// Haversine formula. Returns distance in kilometers.
func DistanceKm(a, b types.GeoPoint) float64 {
	lat1Rad := a.Lat * math.Pi / 180
	lon1Rad := a.Lng * math.Pi / 180
	lat2Rad := b.Lat * math.Pi / 180
	lon2Rad := b.Lng * math.Pi / 180

	dlat := lat2Rad - lat1Rad
	dlon := lon2Rad - lon1Rad

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// Thresholds decide the transport mode of a leg.
type Thresholds struct {
	WalkingMaxKm float64
	TransitMaxKm float64
}

// ModeFor picks walking below WalkingMaxKm, public transit up to TransitMaxKm, driving beyond.
func (t Thresholds) ModeFor(distanceKm float64) types.TransportMode {
	switch {
	case distanceKm < t.WalkingMaxKm:
		return types.TransportWalking
	case distanceKm <= t.TransitMaxKm:
		return types.TransportTransit
	default:
		return types.TransportDriving
	}
}

// geohash cell size in km at the equator, indexed by precision
var (
	cellWidthKm  = []float64{0, 5009, 1252, 156.5, 39.1, 4.89, 1.22, 0.153}
	cellHeightKm = []float64{0, 4992, 624, 156, 19.5, 4.89, 0.61, 0.153}
)

// PrecisionForRadius returns the finest geohash precision whose cells are still at least
// radiusKm across in both directions at every latitude up to maxAbsLat, so every point
// within radiusKm of a point lies in its cell or a neighbour. Cells narrow with cos(lat);
// ok is false when even the coarsest cell is too narrow and callers must compare all pairs.
func PrecisionForRadius(radiusKm, maxAbsLat float64) (precision uint, ok bool) {
	shrink := math.Cos(math.Min(math.Abs(maxAbsLat), 90) * math.Pi / 180)
	for i := 1; i < len(cellWidthKm); i++ {
		if math.Min(cellHeightKm[i], cellWidthKm[i]*shrink) >= radiusKm {
			precision, ok = uint(i), true
		}
	}
	return precision, ok
}

// Bucket returns the geohash cell of p at the given precision.
func Bucket(p types.GeoPoint, precision uint) string {
	return geohash.EncodeWithPrecision(p.Lat, p.Lng, precision)
}

// NeighbourBuckets returns the cell itself plus its eight neighbours.
func NeighbourBuckets(cell string) []string {
	return append([]string{cell}, geohash.Neighbors(cell)...)
}

// Centroid averages a set of points. Adequate for city clusters of a few dozen km.
func Centroid(points []types.GeoPoint) types.GeoPoint {
	if len(points) == 0 {
		return types.GeoPoint{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return types.GeoPoint{Lat: lat / n, Lng: lng / n}
}
