// Package montrealwaste fetches Montreal's waste-collection sector polygons
// from the city's open-data portal. Each collection stream (garbage,
// recycling, organics, green waste) is published as its own GeoJSON layer.
package montrealwaste

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client downloads collection-sector GeoJSON layers.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a client. Layer URLs are passed per call since each
// stream lives at its own dataset URL.
func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchLayer downloads and parses one stream's sector polygons.
func (c *Client) FetchLayer(ctx context.Context, layerURL string) (*FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", layerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var collection FeatureCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, fmt.Errorf("failed to decode GeoJSON: %w", err)
	}
	if collection.Type != "FeatureCollection" {
		return nil, fmt.Errorf("unexpected GeoJSON root type %q", collection.Type)
	}
	return &collection, nil
}
