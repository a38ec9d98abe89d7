package arcgis

// geocodeResponse is the findAddressCandidates response envelope.
type geocodeResponse struct {
	Candidates []Candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

// Candidate is one geocoding match.
type Candidate struct {
	Address  string   `json:"address"`
	Score    float64  `json:"score"`
	Location Location `json:"location"`
}

// Location is an x/y coordinate pair (lon/lat in WGS84).
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// reverseResponse is the reverseGeocode response envelope.
type reverseResponse struct {
	Address struct {
		Address   string `json:"Address"`
		MatchAddr string `json:"Match_addr"`
	} `json:"address"`
	Error *apiError `json:"error,omitempty"`
}

// FeatureSet is a spatial query result.
type FeatureSet struct {
	Features []Feature `json:"features"`
	Error    *apiError `json:"error,omitempty"`
}

// Feature is one returned map feature with its attributes and point geometry.
type Feature struct {
	Attributes map[string]interface{} `json:"attributes"`
	Geometry   *Location              `json:"geometry,omitempty"`
}

// Attr returns a string attribute, tolerating missing keys and non-string
// values.
func (f Feature) Attr(key string) string {
	v, ok := f.Attributes[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
