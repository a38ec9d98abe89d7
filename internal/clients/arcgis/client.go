// Package arcgis wraps the ArcGIS REST endpoints this service consumes: the
// World geocoder for postal-code resolution and map-layer spatial queries for
// Quebec City's snow-removal layer.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Browser-like UA; the upstream throttles default Go user agents.
const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// Client provides access to ArcGIS REST services.
type Client struct {
	geocoderURL string
	httpClient  *http.Client
}

// NewClient creates a client against the given geocoder base URL
// (".../World/GeocodeServer").
func NewClient(geocoderURL string, timeout time.Duration) *Client {
	return &Client{
		geocoderURL: geocoderURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Geocode resolves a free-text single-line address to its best candidate
// location. An empty candidate list yields (nil, nil); callers decide whether
// that means "fall back" or "not found".
func (c *Client) Geocode(ctx context.Context, singleLine string) (*Candidate, error) {
	params := url.Values{}
	params.Set("SingleLine", singleLine)
	params.Set("f", "json")
	params.Set("outFields", "*")

	requestURL := fmt.Sprintf("%s/findAddressCandidates?%s", c.geocoderURL, params.Encode())

	var response geocodeResponse
	if err := c.getJSON(ctx, requestURL, &response); err != nil {
		return nil, err
	}
	if response.Error != nil {
		return nil, fmt.Errorf("geocoder error %d: %s", response.Error.Code, response.Error.Message)
	}
	if len(response.Candidates) == 0 {
		return nil, nil
	}
	return &response.Candidates[0], nil
}

// ReverseGeocode returns the street for a coordinate, or an empty string when
// the upstream has no answer. Reverse lookups are best-effort decoration;
// failures are not propagated.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) string {
	params := url.Values{}
	params.Set("location", fmt.Sprintf("%f,%f", lon, lat))
	params.Set("f", "json")
	params.Set("outSR", "4326")

	requestURL := fmt.Sprintf("%s/reverseGeocode?%s", c.geocoderURL, params.Encode())

	var response reverseResponse
	if err := c.getJSON(ctx, requestURL, &response); err != nil {
		return ""
	}
	if response.Error != nil {
		return ""
	}
	if response.Address.Address != "" {
		return response.Address.Address
	}
	return firstSegment(response.Address.MatchAddr)
}

// QueryPointRadius runs a spatial intersects query against a map layer,
// returning all features within radiusM meters of the point.
func (c *Client) QueryPointRadius(ctx context.Context, layerURL string, lat, lon float64, radiusM int) (*FeatureSet, error) {
	params := url.Values{}
	params.Set("geometry", fmt.Sprintf("%f,%f", lon, lat))
	params.Set("geometryType", "esriGeometryPoint")
	params.Set("inSR", "4326")
	params.Set("spatialRel", "esriSpatialRelIntersects")
	params.Set("distance", fmt.Sprintf("%d", radiusM))
	params.Set("units", "esriSRUnit_Meter")
	params.Set("outFields", "*")
	params.Set("returnGeometry", "true")
	params.Set("outSR", "4326")
	params.Set("f", "json")

	requestURL := fmt.Sprintf("%s?%s", layerURL, params.Encode())

	var featureSet FeatureSet
	if err := c.getJSON(ctx, requestURL, &featureSet); err != nil {
		return nil, err
	}
	if featureSet.Error != nil {
		return nil, fmt.Errorf("layer query error %d: %s", featureSet.Error.Code, featureSet.Error.Message)
	}
	return &featureSet, nil
}

func (c *Client) getJSON(ctx context.Context, requestURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func firstSegment(addr string) string {
	for i := 0; i < len(addr); i++ {
		if addr[i] == ',' {
			return addr[:i]
		}
	}
	return addr
}
