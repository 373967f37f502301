package geo

import "math"

const earthRadiusKm = 6371

// Point is a single recorded coordinate in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// HaversineKm returns the great-circle distance in kilometres between two
// points specified in decimal degrees.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(degreesToRadians(lat1))*math.Cos(degreesToRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// RouteDistanceKm sums the haversine distance over consecutive pairs of an
// ordered route. Routes with fewer than two points have zero length.
func RouteDistanceKm(route []Point) float64 {
	if len(route) < 2 {
		return 0
	}
	total := 0.0
	for i := 1; i < len(route); i++ {
		total += HaversineKm(route[i-1].Latitude, route[i-1].Longitude, route[i].Latitude, route[i].Longitude)
	}
	return total
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
