// Package geo provides small geographic helpers shared by the place store
// and the itinerary enricher.
package geo

import "math"

const earthRadiusKm = 6371

// DistanceMeters returns the haversine great-circle distance in meters
// between two WGS84 coordinates.
func DistanceMeters(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degToRad(lat2 - lat1)
	dLng := degToRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degToRad(lat1))*math.Cos(degToRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c * 1000
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180)
}
