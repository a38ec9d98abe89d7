package geo

// Point represents a geographic coordinate.
type Point struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

// Ring is a closed polygon boundary as an ordered list of [lon, lat] pairs,
// matching GeoJSON coordinate order. The first and last positions may or may
// not repeat; containment tests treat the ring as implicitly closed.
type Ring [][]float64

// Bounds is an axis-aligned bounding region used for coarse sanity checks
// such as "is this point plausibly inside this forward sortation area".
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether p falls inside the bounding region.
func (b Bounds) Contains(p Point) bool {
	return p.Latitude >= b.MinLat && p.Latitude <= b.MaxLat &&
		p.Longitude >= b.MinLon && p.Longitude <= b.MaxLon
}

// GeoUtils defines the geographic calculations the adapters need.
type GeoUtils interface {
	// Distance returns the great-circle distance between two points in meters.
	Distance(p1, p2 Point) (float64, error)

	// DistanceFromCoords is the raw-coordinate convenience form of Distance.
	DistanceFromCoords(lat1, lon1, lat2, lon2 float64) (float64, error)

	// PointInRing tests polygon containment with ray casting.
	PointInRing(p Point, ring Ring) bool

	// PointInPolygon tests containment in a polygon's outer ring, honoring
	// holes in subsequent rings.
	PointInPolygon(p Point, rings []Ring) bool
}
