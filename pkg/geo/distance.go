// Package geo holds the geometry kernel used for locale resolution:
// great-circle distances, point-in-polygon containment and conversion of
// rectangular search queries into bounding circles.
package geo

import "math"

const (
	earthRadius = 6372.8 // km, Earth's mean radius
	kmToMiles   = 0.62137
	precision   = 1e4 // 4 decimal places
)

// DegreesToRadians converts degrees to radians
func DegreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceKm calculates the Haversine distance between two points in
// kilometers, rounded to 4 decimal places
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return round4(haversine(lat1, lng1, lat2, lng2))
}

// DistanceMi is DistanceKm converted to miles, rounded to 4 decimal places
func DistanceMi(lat1, lng1, lat2, lng2 float64) float64 {
	return round4(DistanceKm(lat1, lng1, lat2, lng2) * kmToMiles)
}

func haversine(lat1, lng1, lat2, lng2 float64) float64 {
	lat1Rad := DegreesToRadians(lat1)
	lng1Rad := DegreesToRadians(lng1)
	lat2Rad := DegreesToRadians(lat2)
	lng2Rad := DegreesToRadians(lng2)

	dLat := lat2Rad - lat1Rad
	dLng := lng2Rad - lng1Rad

	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Pow(math.Sin(dLng/2), 2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Asin(math.Sqrt(a))
	return earthRadius * c
}

// round4 rounds half away from zero to 4 decimal places
func round4(v float64) float64 {
	return math.Round(v*precision) / precision
}
