package montrealwaste

import (
	"encoding/json"
	"fmt"

	"github.com/alertmtl/server/internal/lib/geo"
)

// FeatureCollection is a GeoJSON feature collection from the open-data portal.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature is one collection-sector polygon with its schedule attributes.
type Feature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   Geometry               `json:"geometry"`
}

// Geometry holds either a Polygon or a MultiPolygon; Rings flattens both to a
// list of linear rings for containment tests.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Polygons normalizes the geometry to a list of polygons, each a ring list
// with the outer boundary first and holes after, matching GeoJSON. A Polygon
// yields one entry; a MultiPolygon yields one per member.
func (g Geometry) Polygons() ([][]geo.Ring, error) {
	switch g.Type {
	case "Polygon":
		var rings []geo.Ring
		if err := json.Unmarshal(g.Coordinates, &rings); err != nil {
			return nil, fmt.Errorf("failed to decode polygon coordinates: %w", err)
		}
		return [][]geo.Ring{rings}, nil
	case "MultiPolygon":
		var polygons [][]geo.Ring
		if err := json.Unmarshal(g.Coordinates, &polygons); err != nil {
			return nil, fmt.Errorf("failed to decode multipolygon coordinates: %w", err)
		}
		return polygons, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %q", g.Type)
	}
}

// Contains tests whether the point falls inside any member polygon.
func (f Feature) Contains(g geo.GeoUtils, p geo.Point) bool {
	polygons, err := f.Geometry.Polygons()
	if err != nil {
		return false
	}
	for _, rings := range polygons {
		if g.PointInPolygon(p, rings) {
			return true
		}
	}
	return false
}

// Prop returns a string property, tolerating missing keys and non-string
// values.
func (f Feature) Prop(key string) string {
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
