// Package infoneige talks SOAP to Montreal's Planif-Neige web service, the
// authoritative source for per-street-segment snow-removal status. The
// upstream usage policy caps call frequency process-wide, so every fetch goes
// through a shared rate gate; callers inside the cooldown must serve cache.
package infoneige

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alertmtl/server/internal/ratelimit"
)

// ErrCooldown is returned when the shared rate gate disallows an upstream
// call. Not a failure: the caller is expected to fall back to cached data.
var ErrCooldown = errors.New("infoneige: rate limit cooldown in effect")

const dateLayout = "2006-01-02"

// Timestamps in responses use a local ISO form without zone.
const timestampLayout = "2006-01-02T15:04:05"

// Client is a Planif-Neige SOAP client.
type Client struct {
	endpoint   string
	httpClient *http.Client
	gate       *ratelimit.Gate
}

// NewClient creates a client. The gate is shared state owned by the caller so
// that every consumer of this upstream honors one cooldown.
func NewClient(endpoint string, timeout time.Duration, gate *ratelimit.Gate) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		gate: gate,
	}
}

// PlanificationsForDate fetches all planned snow-removal operations for a
// date. Returns ErrCooldown without touching the network when the shared
// gate is closed.
func (c *Client) PlanificationsForDate(ctx context.Context, date time.Time) ([]Planification, error) {
	if !c.gate.TryAcquire() {
		return nil, ErrCooldown
	}

	envelope := requestEnvelope{
		NS: "http://schemas.xmlsoap.org/soap/envelope/",
		Body: requestBody{
			Request: planificationsRequest{Date: date.Format(dateLayout)},
		},
	}

	payload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to build SOAP request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(append([]byte(xml.Header), payload...)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "GetPlanificationsForDate")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var parsed responseEnvelope
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode SOAP response: %w", err)
	}
	if parsed.Body.Fault != nil {
		return nil, fmt.Errorf("SOAP fault %s: %s", parsed.Body.Fault.Code, parsed.Body.Fault.String)
	}

	planifications := make([]Planification, 0, len(parsed.Body.Response.Planifications))
	for _, item := range parsed.Body.Response.Planifications {
		planifications = append(planifications, Planification{
			SegmentID: item.SegmentID,
			State:     item.State,
			Start:     parseTimestamp(item.DateStart),
			End:       parseTimestamp(item.DateEnd),
		})
	}
	return planifications, nil
}

// Gate exposes the shared rate gate, mainly so status endpoints can report
// the remaining cooldown.
func (c *Client) Gate() *ratelimit.Gate {
	return c.gate
}

func parseTimestamp(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{timestampLayout, dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
