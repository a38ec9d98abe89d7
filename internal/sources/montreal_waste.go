package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/cache"
	"github.com/alertmtl/server/internal/clients/montrealwaste"
	"github.com/alertmtl/server/internal/config"
	"github.com/alertmtl/server/internal/lib/city"
	"github.com/alertmtl/server/internal/lib/geo"
)

// LayerFetcher is the slice of the GeoJSON client this adapter needs.
type LayerFetcher interface {
	FetchLayer(ctx context.Context, layerURL string) (*montrealwaste.FeatureCollection, error)
}

// streamMeta binds one waste stream to its dataset and display names.
type streamMeta struct {
	nameEN string
	nameFR string
	url    func(cfg config.MontrealWasteConfig) string
}

var montrealStreams = map[string]streamMeta{
	"garbage":   {nameEN: "Garbage", nameFR: "Ordures ménagères", url: func(c config.MontrealWasteConfig) string { return c.GarbageURL }},
	"recycling": {nameEN: "Recycling", nameFR: "Matières recyclables", url: func(c config.MontrealWasteConfig) string { return c.RecyclingURL }},
	"organic":   {nameEN: "Organic/Food Waste", nameFR: "Résidus alimentaires", url: func(c config.MontrealWasteConfig) string { return c.OrganicURL }},
	"green":     {nameEN: "Green Waste", nameFR: "Résidus verts", url: func(c config.MontrealWasteConfig) string { return c.GreenURL }},
}

// MontrealWaste answers collection-schedule questions by locating the sector
// polygon containing a point, one GeoJSON layer per stream. Layers are large
// and change rarely, so they cache for a day and stale layers are served
// whenever a refresh fails.
type MontrealWaste struct {
	client LayerFetcher
	cache  *cache.Cache
	cfg    config.MontrealWasteConfig
	geo    geo.GeoUtils
	now    func() time.Time
}

// NewMontrealWaste creates the adapter.
func NewMontrealWaste(client LayerFetcher, c *cache.Cache, cfg config.MontrealWasteConfig) *MontrealWaste {
	return &MontrealWaste{
		client: client,
		cache:  c,
		cfg:    cfg,
		geo:    geo.NewGeoUtils(),
		now:    time.Now,
	}
}

// WithClock overrides the adapter's clock, for tests.
func (m *MontrealWaste) WithClock(now func() time.Time) *MontrealWaste {
	m.now = now
	return m
}

// ScheduleFor builds the waste schedule for a point. The first polygon
// containing the point wins per stream; sectors in the source data do not
// overlap within one layer. Streams whose layer cannot be loaded are omitted;
// only a total miss is an error.
func (m *MontrealWaste) ScheduleFor(ctx context.Context, p geo.Point) (*WasteSchedule, error) {
	schedule := &WasteSchedule{
		CityTag: city.Montreal.String(),
		Source:  "geojson",
		Streams: make(map[string]StreamSchedule),
	}

	failures := 0
	anyStale := false
	for stream, meta := range montrealStreams {
		layer, stale, err := m.layer(ctx, stream, meta.url(m.cfg))
		if err != nil {
			logging.Warnw(ctx, "montreal waste: layer unavailable", "stream", stream, "error", err)
			failures++
			continue
		}
		anyStale = anyStale || stale

		feature := m.sectorFor(layer, p)
		if feature == nil {
			continue
		}

		entry := StreamSchedule{
			Stream:    stream,
			NameEN:    meta.nameEN,
			NameFR:    meta.nameFR,
			Day:       feature.Prop("JOUR_COLLECTE"),
			Frequency: frequencyOrDefault(feature.Prop("FREQUENCE")),
			Notes:     feature.Prop("NOTES"),
		}
		if day, ok := weekdayFromLabel(entry.Day); ok {
			next := nextCollectionDate(day, m.now())
			entry.NextCollection = &next
			entry.Display = RelativeDayLabel(next, m.now())
		}
		schedule.Streams[stream] = entry
	}

	if failures == len(montrealStreams) {
		return nil, fmt.Errorf("%w: all collection layers failed to load", ErrUnavailable)
	}
	if len(schedule.Streams) == 0 {
		return nil, fmt.Errorf("%w: point (%f, %f) is in no collection sector", ErrNotCovered, p.Latitude, p.Longitude)
	}
	schedule.Cached = anyStale
	return schedule, nil
}

func (m *MontrealWaste) layer(ctx context.Context, stream, layerURL string) (*montrealwaste.FeatureCollection, bool, error) {
	var collection montrealwaste.FeatureCollection
	stale, err := m.cache.GetOrFetch(ctx, "montreal_waste:"+stream, m.cfg.CacheTTL, "donnees.montreal.ca",
		&collection, func(ctx context.Context) (interface{}, error) {
			return m.client.FetchLayer(ctx, layerURL)
		})
	if err != nil {
		return nil, false, err
	}
	return &collection, stale, nil
}

func (m *MontrealWaste) sectorFor(layer *montrealwaste.FeatureCollection, p geo.Point) *montrealwaste.Feature {
	for i := range layer.Features {
		if layer.Features[i].Contains(m.geo, p) {
			return &layer.Features[i]
		}
	}
	return nil
}

func frequencyOrDefault(raw string) string {
	if raw == "" {
		return "weekly"
	}
	return raw
}
