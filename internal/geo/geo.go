// Package geo provides the distance math behind the nearby-items query.
// Candidates are prefiltered in SQL with a bounding box around the search
// point, then exact-filtered and ordered by haversine distance.
package geo

import "math"

// EarthRadiusKm is the mean earth radius used for haversine distances.
const EarthRadiusKm = 6371.0

// Valid reports whether lat/lng form a usable WGS84 coordinate. Zero is a
// legitimate value on both axes; only NaN, infinities and out-of-range
// values are rejected.
func Valid(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// DistanceKm returns the great-circle distance between two points in
// kilometers using the haversine formula.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlng/2)*math.Sin(dlng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// BoundingBox is a lat/lng rectangle guaranteed to contain every point
// within a given radius of its center.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Bounds computes a bounding box of radiusKm around (lat, lng). Near the
// poles the longitude delta degenerates, so the box widens to the full
// longitude range there. Longitude is clamped rather than wrapped at the
// antimeridian; the box simply extends to the edge.
func Bounds(lat, lng, radiusKm float64) BoundingBox {
	latDelta := radiusKm / EarthRadiusKm * 180 / math.Pi

	box := BoundingBox{
		MinLat: math.Max(lat-latDelta, -90),
		MaxLat: math.Min(lat+latDelta, 90),
	}

	cos := math.Cos(lat * math.Pi / 180)
	if cos < 1e-6 {
		box.MinLng, box.MaxLng = -180, 180
		return box
	}

	lngDelta := latDelta / cos
	box.MinLng = math.Max(lng-lngDelta, -180)
	box.MaxLng = math.Min(lng+lngDelta, 180)
	return box
}

// Contains reports whether the point lies inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}
