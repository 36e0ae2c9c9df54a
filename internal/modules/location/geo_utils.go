// Package location — geo_utils contains pure geographic computation helpers.
package location

import (
	"errors"
	"math"

	"lifelink/internal/types"
)

const earthRadiusKm = 6371.0

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// DistanceKm returns the great-circle distance in kilometres between two
// points given in decimal degrees, rounded to one decimal place.
// Malformed input yields NaN.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return math.Round(haversineKm(lat1, lng1, lat2, lng2)*10) / 10
}

// Distance is DistanceKm over two points.
func Distance(a, b types.Point) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// haversineKm returns the unrounded great-circle distance in kilometres.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := degreesToRadians(lat2 - lat1)
	dLng := degreesToRadians(lng2 - lng1)

	rLat1 := degreesToRadians(lat1)
	rLat2 := degreesToRadians(lat2)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// ValidPoint rejects non-finite or out-of-range coordinates.
func ValidPoint(p types.Point) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return ErrInvalidCoordinate
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// SortByDistance performs a stable insertion sort (fine for small N) on any
// slice where each element exposes a distance via the accessor function.
func SortByDistance[T any](items []T, dist func(T) float64) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && dist(items[j]) > dist(key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}
