package sources

import (
	"context"
	"fmt"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/clients/arcgis"
	"github.com/alertmtl/server/internal/config"
	"github.com/alertmtl/server/internal/lib/city"
	"github.com/alertmtl/server/internal/lib/status"
	"github.com/alertmtl/server/internal/store"
)

const sourceQuebecSnow = "quebec_snow"

// SpatialQuerier is the slice of the ArcGIS client this adapter needs.
type SpatialQuerier interface {
	QueryPointRadius(ctx context.Context, layerURL string, lat, lon float64, radiusM int) (*arcgis.FeatureSet, error)
}

// QuebecSnow answers snow status questions for Quebec City coordinates. The
// city publishes flashing-light beacons as a map layer; a beacon "en
// fonction" near an address means removal operations are active there. The
// search radius expands in steps until something is found or the ceiling is
// reached, since beacon density varies by neighborhood.
type QuebecSnow struct {
	client SpatialQuerier
	store  *store.Store
	cfg    config.QuebecSnowConfig
	now    func() time.Time
}

// NewQuebecSnow creates the adapter.
func NewQuebecSnow(client SpatialQuerier, st *store.Store, cfg config.QuebecSnowConfig) *QuebecSnow {
	return &QuebecSnow{
		client: client,
		store:  st,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock overrides the adapter's clock, for tests.
func (q *QuebecSnow) WithClock(now func() time.Time) *QuebecSnow {
	q.now = now
	return q
}

// StatusNear reports whether snow-removal operations are active near a
// coordinate. Cached per rounded coordinate; stale rows are served when the
// layer query fails.
func (q *QuebecSnow) StatusNear(ctx context.Context, lat, lon float64) (status.Report, error) {
	key := locationKey(lat, lon)
	now := q.now()

	cached, cacheErr := q.store.CachedStatus(sourceQuebecSnow, key)
	if cacheErr == nil && !cached.IsExpired(q.cfg.CacheTTL, now) {
		return q.reportFromEntry(cached, true), nil
	}

	report, fetchErr := q.queryWithExpansion(ctx, lat, lon)
	if fetchErr != nil {
		if cacheErr == nil {
			logging.Warnw(ctx, "quebec snow: serving stale status after query failure",
				"location", key, "error", fetchErr)
			return q.reportFromEntry(cached, true), nil
		}
		return status.Report{}, fmt.Errorf("%w: %v", ErrUnavailable, fetchErr)
	}

	if err := q.store.PutCachedStatus(sourceQuebecSnow, key, string(report.Code), nil, nil, now); err != nil {
		logging.Warnw(ctx, "quebec snow: failed to cache status", "location", key, "error", err)
	}
	return report, nil
}

// queryWithExpansion walks the radius ladder. An empty result at one radius
// widens the search; only the ceiling turns emptiness into "hors service".
func (q *QuebecSnow) queryWithExpansion(ctx context.Context, lat, lon float64) (status.Report, error) {
	radius := q.cfg.InitialRadiusM
	for {
		featureSet, err := q.client.QueryPointRadius(ctx, q.cfg.LayerURL, lat, lon, radius)
		if err != nil {
			return status.Report{}, err
		}

		if len(featureSet.Features) == 0 {
			if radius < q.cfg.MaxRadiusM {
				radius += q.cfg.RadiusStepM
				continue
			}
			return q.buildReport(status.CodeInactive, radius, ""), nil
		}

		active := false
		nearest := ""
		for _, feature := range featureSet.Features {
			if feature.Attr("STATUT") == "En fonction" {
				active = true
				if nearest == "" {
					nearest = feature.Attr("STATION_NO")
				}
			}
		}
		if active {
			return q.buildReport(status.CodeActive, radius, nearest), nil
		}
		return q.buildReport(status.CodeInactive, radius, ""), nil
	}
}

func (q *QuebecSnow) buildReport(code status.Code, radius int, nearby string) status.Report {
	return status.Report{
		City:            city.Quebec,
		CityTag:         city.Quebec.String(),
		Code:            code,
		Display:         status.DisplayFor(code),
		ParkingAllowed:  !status.ParkingProhibited(code),
		Message:         status.Message(code),
		SearchRadiusM:   radius,
		NearbyOperation: nearby,
	}
}

func (q *QuebecSnow) reportFromEntry(entry *store.StatusCacheEntry, cached bool) status.Report {
	report := q.buildReport(status.Code(entry.Status), 0, "")
	report.Cached = cached
	return report
}

// locationKey rounds coordinates to ~10m so nearby lookups share a cache row.
func locationKey(lat, lon float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lon)
}
