// Package sources holds the per-city status adapters. Each adapter translates
// one upstream system (SOAP, ArcGIS, GeoJSON, HTML scrape) into the shared
// status and schedule vocabulary, owns that upstream's caching and staleness
// policy, and never leaks raw upstream representations to callers.
package sources

import (
	"errors"
	"time"
)

// ErrUnavailable means every path to an answer failed: live fetch, cache, and
// any fallback. Callers surface this rather than inventing a default; a
// guessed schedule is worse than an honest "unavailable".
var ErrUnavailable = errors.New("sources: upstream data unavailable")

// ErrNotCovered means the upstream answered but the location falls outside
// its coverage, such as a point in no collection sector.
var ErrNotCovered = errors.New("sources: location not covered")

// StreamSchedule is the schedule for one waste stream at one location.
type StreamSchedule struct {
	Stream         string     `json:"type"`
	NameEN         string     `json:"name"`
	NameFR         string     `json:"name_fr"`
	Day            string     `json:"day_of_week,omitempty"`
	Frequency      string     `json:"frequency,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	NextCollection *time.Time `json:"next_collection,omitempty"`
	Display        string     `json:"next_collection_display,omitempty"`
}

// RelativeDayLabel renders a collection date the way people say it: "Today",
// "Tomorrow", "This Thursday" within the week, "Next Thursday" the week after,
// and the plain date beyond that.
func RelativeDayLabel(date, now time.Time) string {
	midnight := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}
	days := int(midnight(date).Sub(midnight(now)).Hours() / 24)
	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days > 1 && days < 7:
		return "This " + date.Weekday().String()
	case days >= 7 && days < 14:
		return "Next " + date.Weekday().String()
	default:
		return date.Format("January 2")
	}
}

// WasteSchedule is the full per-location waste answer, keyed by stream.
type WasteSchedule struct {
	CityTag string                    `json:"city"`
	Source  string                    `json:"source"`
	Cached  bool                      `json:"cached"`
	Streams map[string]StreamSchedule `json:"streams"`
}

// NextPickup returns the soonest upcoming collection across all streams.
func (w *WasteSchedule) NextPickup() (stream string, date time.Time, ok bool) {
	for name, s := range w.Streams {
		if s.NextCollection == nil {
			continue
		}
		if !ok || s.NextCollection.Before(date) {
			stream, date, ok = name, *s.NextCollection, true
		}
	}
	return stream, date, ok
}
