package sources

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/cache"
	"github.com/alertmtl/server/internal/clients/quebecwaste"
	"github.com/alertmtl/server/internal/config"
	"github.com/alertmtl/server/internal/lib/city"
	"github.com/alertmtl/server/internal/store"
)

// ScheduleScraper is the slice of the info-collecte client this adapter needs.
type ScheduleScraper interface {
	LookupSchedule(ctx context.Context, postalCode, civicNumber string) (*quebecwaste.Schedule, error)
}

// quebecFSAZones maps a postal code's FSA to its waste-collection zone, used
// when the scrape fails. Coarse: an FSA can straddle two zones at its edges,
// but the zone table only feeds the fallback path.
var quebecFSAZones = map[string]string{
	"G1K": "QC-A", "G1R": "QC-A",
	"G1L": "QC-B", "G1N": "QC-B",
	"G1M": "QC-C", "G1P": "QC-C",
	"G1V": "QC-D", "G1W": "QC-D", "G1X": "QC-D", "G1Y": "QC-D",
	"G1B": "QC-E", "G1C": "QC-E", "G1E": "QC-E", "G1G": "QC-E", "G1H": "QC-E",
	"G2A": "QC-B", "G2B": "QC-B", "G2C": "QC-E",
	"G3A": "QC-C", "G3B": "QC-C", "G3E": "QC-D", "G3G": "QC-D",
}

// QuebecWaste answers collection-schedule questions for Quebec City. The
// primary source is the scraped info-collecte lookup, cached for a day per
// postal code; when the scrape and its cache both fail, the static zone table
// provides day-of-week schedules. When even the zone is unknown the answer is
// ErrUnavailable, never a guessed schedule.
type QuebecWaste struct {
	scraper ScheduleScraper
	store   *store.Store
	cache   *cache.Cache
	cfg     config.QuebecWasteConfig
	now     func() time.Time
}

// NewQuebecWaste creates the adapter.
func NewQuebecWaste(scraper ScheduleScraper, st *store.Store, c *cache.Cache, cfg config.QuebecWasteConfig) *QuebecWaste {
	return &QuebecWaste{
		scraper: scraper,
		store:   st,
		cache:   c,
		cfg:     cfg,
		now:     time.Now,
	}
}

// WithClock overrides the adapter's clock, for tests.
func (q *QuebecWaste) WithClock(now func() time.Time) *QuebecWaste {
	q.now = now
	return q
}

// ScheduleFor resolves the waste schedule for a postal code. civicNumber
// narrows the scrape's address selection and may be zero.
func (q *QuebecWaste) ScheduleFor(ctx context.Context, postalCode string, civicNumber int) (*WasteSchedule, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(postalCode, " ", ""))

	civic := ""
	if civicNumber > 0 {
		civic = strconv.Itoa(civicNumber)
	}

	var scraped quebecwaste.Schedule
	stale, err := q.cache.GetOrFetch(ctx, "quebec_waste:"+normalized, q.cfg.CacheTTL, "info-collecte",
		&scraped, func(ctx context.Context) (interface{}, error) {
			return q.scraper.LookupSchedule(ctx, normalized, civic)
		})
	if err == nil {
		return q.fromScrape(&scraped, stale), nil
	}

	logging.Warnw(ctx, "quebec waste: scrape failed, trying zone table",
		"postal_code", normalized, "error", err)
	return q.fromZoneTable(normalized)
}

// fromScrape converts the scraped calendar, keeping only the next upcoming
// date per stream.
func (q *QuebecWaste) fromScrape(scraped *quebecwaste.Schedule, stale bool) *WasteSchedule {
	today := q.today()
	schedule := &WasteSchedule{
		CityTag: city.Quebec.String(),
		Source:  "scrape",
		Cached:  stale,
		Streams: make(map[string]StreamSchedule),
	}
	for stream, dates := range scraped.Dates {
		entry := StreamSchedule{
			Stream: stream,
			NameEN: streamNameEN(stream),
			NameFR: streamNameFR(stream),
		}
		for _, date := range dates {
			if date.Before(today) {
				continue
			}
			if entry.NextCollection == nil || date.Before(*entry.NextCollection) {
				d := date
				entry.NextCollection = &d
			}
		}
		if entry.NextCollection != nil {
			entry.Day = entry.NextCollection.Weekday().String()
			entry.Display = RelativeDayLabel(*entry.NextCollection, q.now())
		}
		schedule.Streams[stream] = entry
	}
	return schedule
}

// fromZoneTable derives garbage and recycling dates from the zone's weekly
// day and recycling week parity (ISO week, matching the city's published
// calendars).
func (q *QuebecWaste) fromZoneTable(normalizedPostal string) (*WasteSchedule, error) {
	if len(normalizedPostal) < 3 {
		return nil, fmt.Errorf("%w: postal code too short for zone lookup", ErrUnavailable)
	}
	zoneCode, ok := quebecFSAZones[normalizedPostal[:3]]
	if !ok {
		return nil, fmt.Errorf("%w: no zone known for FSA %s", ErrUnavailable, normalizedPostal[:3])
	}
	zone, err := q.store.ZoneByCode(zoneCode)
	if err != nil {
		return nil, fmt.Errorf("%w: zone %s missing from reference table", ErrUnavailable, zoneCode)
	}

	day, ok := weekdayFromLabel(zone.GarbageDay)
	if !ok {
		return nil, fmt.Errorf("%w: zone %s has unusable collection day %q", ErrUnavailable, zoneCode, zone.GarbageDay)
	}

	now := q.now()
	nextGarbage := nextCollectionDate(day, now)
	nextRecycling := q.nextParityDate(day, zone.RecyclingWeek, now)

	return &WasteSchedule{
		CityTag: city.Quebec.String(),
		Source:  "zone_table",
		Streams: map[string]StreamSchedule{
			"garbage": {
				Stream:         "garbage",
				NameEN:         streamNameEN("garbage"),
				NameFR:         streamNameFR("garbage"),
				Day:            day.String(),
				Frequency:      "weekly",
				NextCollection: &nextGarbage,
				Display:        RelativeDayLabel(nextGarbage, now),
			},
			"recycling": {
				Stream:         "recycling",
				NameEN:         streamNameEN("recycling"),
				NameFR:         streamNameFR("recycling"),
				Day:            day.String(),
				Frequency:      "biweekly",
				NextCollection: &nextRecycling,
				Display:        RelativeDayLabel(nextRecycling, now),
			},
		},
	}, nil
}

// nextParityDate finds the next occurrence of day whose ISO week parity
// matches the zone's recycling week.
func (q *QuebecWaste) nextParityDate(day time.Weekday, parity string, from time.Time) time.Time {
	candidate := nextCollectionDate(day, from)
	_, week := candidate.ISOWeek()
	wantOdd := strings.EqualFold(parity, "odd")
	if (week%2 == 1) != wantOdd {
		candidate = adjustForHoliday(candidate.AddDate(0, 0, 7))
	}
	return candidate
}

func (q *QuebecWaste) today() time.Time {
	now := q.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func streamNameEN(stream string) string {
	switch stream {
	case "garbage":
		return "Garbage"
	case "recycling":
		return "Recycling"
	case "organic":
		return "Organic/Food Waste"
	default:
		return "Waste"
	}
}

func streamNameFR(stream string) string {
	switch stream {
	case "garbage":
		return "Ordures ménagères"
	case "recycling":
		return "Matières recyclables"
	case "organic":
		return "Résidus alimentaires"
	default:
		return "Collecte"
	}
}
