package geospatial

import (
	"math"

	"github.com/samirrijal/greenside/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over domain points.
func Distance(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// MetersToYards converts a distance for yardage display.
func MetersToYards(m float64) float64 {
	return m / 0.9144
}

// BoundsOf returns the smallest box containing every point. ok is false for
// an empty input.
func BoundsOf(points []domain.GeoPoint) (b domain.Bounds, ok bool) {
	if len(points) == 0 {
		return b, false
	}
	b = domain.Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLon: points[0].Lon, MaxLon: points[0].Lon,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLon = math.Min(b.MinLon, p.Lon)
		b.MaxLon = math.Max(b.MaxLon, p.Lon)
	}
	return b, true
}

// FitViewport returns a viewport covering b, grown by padding (a fraction of
// each span) and never narrower than minSpan degrees.
func FitViewport(b domain.Bounds, padding, minSpan float64) domain.Viewport {
	latSpan := math.Max((b.MaxLat-b.MinLat)*(1+padding), minSpan)
	lonSpan := math.Max((b.MaxLon-b.MinLon)*(1+padding), minSpan)
	return domain.Viewport{
		Center: domain.GeoPoint{
			Lat: (b.MinLat + b.MaxLat) / 2,
			Lon: (b.MinLon + b.MaxLon) / 2,
		},
		LatitudeDelta:  latSpan,
		LongitudeDelta: lonSpan,
	}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
