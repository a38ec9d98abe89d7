// Package geo provides the geographic primitives shared by the status
// adapters: great-circle distance for proximity searches and ray-casting
// polygon containment for waste sector lookups.
package geo

import (
	"errors"
	"math"
)

const earthRadiusMeters = 6371000

// geoUtils implements the GeoUtils interface.
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation.
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// Distance calculates great-circle distance between two points using the
// Haversine formula.
func (g *geoUtils) Distance(p1, p2 Point) (float64, error) {
	if !isValidCoordinate(p1) || !isValidCoordinate(p2) {
		return 0, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}

	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0, nil
	}

	lat1 := p1.Latitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	dlat := (p2.Latitude - p1.Latitude) * math.Pi / 180
	dlon := (p2.Longitude - p1.Longitude) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c, nil
}

// DistanceFromCoords calculates distance between two coordinate pairs.
func (g *geoUtils) DistanceFromCoords(lat1, lon1, lat2, lon2 float64) (float64, error) {
	return g.Distance(Point{Latitude: lat1, Longitude: lon1}, Point{Latitude: lat2, Longitude: lon2})
}

// PointInRing determines whether a point is inside a polygon ring using the
// ray casting algorithm. Points exactly on an edge may land on either side;
// sector boundaries in the source data run along street centerlines where
// that ambiguity does not matter.
func (g *geoUtils) PointInRing(p Point, ring Ring) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	x, y := p.Longitude, p.Latitude
	inside := false

	p1x, p1y := ring[0][0], ring[0][1]
	for i := 1; i <= n; i++ {
		p2x, p2y := ring[i%n][0], ring[i%n][1]
		if y > math.Min(p1y, p2y) && y <= math.Max(p1y, p2y) && x <= math.Max(p1x, p2x) {
			var xIntersect float64
			if p1y != p2y {
				xIntersect = (y-p1y)*(p2x-p1x)/(p2y-p1y) + p1x
			}
			if p1x == p2x || x <= xIntersect {
				inside = !inside
			}
		}
		p1x, p1y = p2x, p2y
	}

	return inside
}

// PointInPolygon tests a GeoJSON-style polygon: the first ring is the outer
// boundary, any additional rings are holes.
func (g *geoUtils) PointInPolygon(p Point, rings []Ring) bool {
	if len(rings) == 0 {
		return false
	}
	if !g.PointInRing(p, rings[0]) {
		return false
	}
	for _, hole := range rings[1:] {
		if g.PointInRing(p, hole) {
			return false
		}
	}
	return true
}

// NewPoint creates a Point from latitude and longitude values with validation.
func NewPoint(latitude, longitude float64) (Point, error) {
	p := Point{Latitude: latitude, Longitude: longitude}
	if !isValidCoordinate(p) {
		return Point{}, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return p, nil
}

func isValidCoordinate(p Point) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}
