package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used for great-circle math.
	EarthRadiusKm = 6371.0

	// kmPerDegree is the length of one degree of latitude in kilometers.
	kmPerDegree = 111.32
)

// Coordinate is a WGS84 latitude/longitude pair.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is within latitude -90..90 and longitude -180..180.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// DistanceKm returns the haversine great-circle distance between a and b in kilometers.
func DistanceKm(a, b Coordinate) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

// Box is a rectangular latitude/longitude range.
type Box struct {
	LatMin, LatMax float64
	LngMin, LngMax float64
}

// BoundingBox returns a rectangle that fully contains the circle of radiusKm around
// center. It is a superset of the circle; callers must still filter by exact distance.
func BoundingBox(center Coordinate, radiusKm float64) Box {
	latDelta := radiusKm / kmPerDegree
	lngDelta := radiusKm / (kmPerDegree * math.Cos(center.Lat*math.Pi/180))
	return Box{
		LatMin: center.Lat - latDelta,
		LatMax: center.Lat + latDelta,
		LngMin: center.Lng - lngDelta,
		LngMax: center.Lng + lngDelta,
	}
}
