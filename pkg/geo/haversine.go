package geo

import "math"

const earthRadiusMeters = 6_371_000.0

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// EquirectangularDist returns an approximate distance in meters.
// Use for candidate ranking, not for edge weights.
func EquirectangularDist(lat1, lon1, lat2, lon2 float64) float64 {
	x := (lon2 - lon1) * math.Cos((lat1+lat2)/2*math.Pi/180) * math.Pi / 180
	y := (lat2 - lat1) * math.Pi / 180
	return math.Sqrt(x*x+y*y) * earthRadiusMeters
}

// metersPerDegree is the length of one degree of latitude.
const metersPerDegree = math.Pi / 180 * earthRadiusMeters

// BoundingBox returns the lat/lng box that contains every point within
// radius meters of (lat, lng). Longitude span widens with latitude and is
// clamped near the poles.
func BoundingBox(lat, lng, radius float64) (minLat, minLng, maxLat, maxLng float64) {
	dLat := radius / metersPerDegree
	cosLat := math.Cos(lat * math.Pi / 180)
	dLng := 180.0
	if cosLat > 1e-9 {
		dLng = math.Min(180, dLat/cosLat)
	}
	return lat - dLat, lng - dLng, lat + dLat, lng + dLng
}
