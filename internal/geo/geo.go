package geo

import "math"

const earthRadiusKm = 6371

// Haversine calculates the great-circle distance between two points in kilometers
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Centroid returns the arithmetic mean latitude and longitude of a point set.
// Good enough for city-scale data; no spherical averaging.
func Centroid(lats, lons []float64) (float64, float64) {
	if len(lats) == 0 {
		return 0, 0
	}

	var sumLat, sumLon float64
	for i := range lats {
		sumLat += lats[i]
		sumLon += lons[i]
	}

	n := float64(len(lats))
	return sumLat / n, sumLon / n
}

// AngleFrom returns the planar angle in radians from the point (fromLat, fromLon)
// to (lat, lon), measured with atan2 over raw degree deltas
func AngleFrom(fromLat, fromLon, lat, lon float64) float64 {
	return math.Atan2(lat-fromLat, lon-fromLon)
}
