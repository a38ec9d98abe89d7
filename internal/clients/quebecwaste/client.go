// Package quebecwaste scrapes Quebec City's info-collecte lookup, which has
// no API. The flow is stateful: load the search form to capture its hidden
// server-state fields, submit a postal-code search, pick the matching civic
// address from the results, then parse the per-stream collection calendar.
// Any deviation from the expected markup surfaces as ErrStructureChanged so
// callers fall back rather than trust a misparse.
package quebecwaste

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// ErrStructureChanged means the page no longer matches the markup this
// scraper was written against. Treated as "source unavailable", never as an
// empty schedule.
var ErrStructureChanged = errors.New("quebecwaste: page structure changed")

// ErrNoResults means the search ran fine but matched no address.
var ErrNoResults = errors.New("quebecwaste: no address matched the search")

// Schedule is the scraped collection calendar for one address.
type Schedule struct {
	Address string
	// Dates maps stream name (garbage, recycling, organic) to upcoming
	// pickup dates in page order.
	Dates map[string][]time.Time
}

// Client walks the info-collecte lookup flow.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a scraper against the info-collecte page URL. A cookie
// jar is mandatory; the site ties search results to a server session.
func NewClient(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
	}
}

// LookupSchedule resolves the collection calendar for a civic address. The
// civic number narrows the candidate list when the postal code spans several
// addresses; when no candidate contains it the first result is used.
func (c *Client) LookupSchedule(ctx context.Context, postalCode, civicNumber string) (*Schedule, error) {
	form, err := c.fetchSearchForm(ctx)
	if err != nil {
		return nil, err
	}

	resultsDoc, err := c.submitSearch(ctx, form, postalCode)
	if err != nil {
		return nil, err
	}

	// Some addresses resolve directly to a calendar without an
	// intermediate candidate list.
	if calendar, err := parseCalendar(resultsDoc); err == nil {
		return &Schedule{Address: postalCode, Dates: calendar}, nil
	}

	options, err := parseAddressOptions(resultsDoc)
	if err != nil {
		return nil, err
	}
	if len(options) == 0 {
		return nil, ErrNoResults
	}
	chosen := chooseAddress(options, civicNumber)

	calendarDoc, err := c.getDocument(ctx, c.resolveURL(chosen.href))
	if err != nil {
		return nil, err
	}
	calendar, err := parseCalendar(calendarDoc)
	if err != nil {
		return nil, err
	}
	return &Schedule{Address: chosen.label, Dates: calendar}, nil
}

func (c *Client) fetchSearchForm(ctx context.Context) (*searchForm, error) {
	doc, err := c.getDocument(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}
	return parseSearchForm(doc)
}

func (c *Client) submitSearch(ctx context.Context, form *searchForm, query string) (*html.Node, error) {
	values := url.Values{}
	for name, value := range form.hidden {
		values.Set(name, value)
	}
	values.Set(form.searchName, query)

	req, err := http.NewRequestWithContext(ctx, "POST", c.resolveURL(form.action), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d from search submit", resp.StatusCode)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	return doc, nil
}

func (c *Client) getDocument(ctx context.Context, pageURL string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d fetching %s", resp.StatusCode, pageURL)
	}
	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// resolveURL makes relative form actions and result links absolute against
// the base page.
func (c *Client) resolveURL(href string) string {
	if href == "" {
		return c.baseURL
	}
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func chooseAddress(options []addressOption, civicNumber string) addressOption {
	if civicNumber != "" {
		for _, option := range options {
			if strings.Contains(option.label, civicNumber) {
				return option
			}
		}
	}
	return options[0]
}
