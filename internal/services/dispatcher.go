// Package services wires the adapters into the operations the handlers and
// background jobs call: city-routed status queries, the batch runs, the
// geobase index and the job scheduler.
package services

import (
	"context"
	"fmt"

	"github.com/alertmtl/server/internal/lib/city"
	"github.com/alertmtl/server/internal/lib/geo"
	"github.com/alertmtl/server/internal/lib/status"
	"github.com/alertmtl/server/internal/resolver"
	"github.com/alertmtl/server/internal/sources"
	"github.com/alertmtl/server/internal/store"
)

// Narrow views of the adapters, so tests can stub one city at a time.
type (
	// MontrealSnowSource answers per-segment snow status.
	MontrealSnowSource interface {
		StatusForSegment(ctx context.Context, segmentID int) (status.Report, error)
	}
	// QuebecSnowSource answers proximity snow status.
	QuebecSnowSource interface {
		StatusNear(ctx context.Context, lat, lon float64) (status.Report, error)
	}
	// MontrealWasteSource answers point-in-sector schedules.
	MontrealWasteSource interface {
		ScheduleFor(ctx context.Context, p geo.Point) (*sources.WasteSchedule, error)
	}
	// QuebecWasteSource answers postal-code schedules.
	QuebecWasteSource interface {
		ScheduleFor(ctx context.Context, postalCode string, civicNumber int) (*sources.WasteSchedule, error)
	}
	// LocationResolver turns postal codes into coordinates.
	LocationResolver interface {
		Resolve(ctx context.Context, postalCode string) (*resolver.Location, error)
	}
	// SegmentLookup finds Montreal street segments for civic addresses.
	SegmentLookup interface {
		LookupAddress(address string) (*store.GeoStreetSegment, error)
	}
)

// Dispatcher routes status and schedule queries to the right city adapter.
// Callers never pick an adapter themselves; the postal code decides.
type Dispatcher struct {
	resolver      LocationResolver
	segments      SegmentLookup
	montrealSnow  MontrealSnowSource
	quebecSnow    QuebecSnowSource
	montrealWaste MontrealWasteSource
	quebecWaste   QuebecWasteSource
}

// NewDispatcher creates the dispatcher.
func NewDispatcher(res LocationResolver, segments SegmentLookup,
	mtlSnow MontrealSnowSource, qcSnow QuebecSnowSource,
	mtlWaste MontrealWasteSource, qcWaste QuebecWasteSource) *Dispatcher {
	return &Dispatcher{
		resolver:      res,
		segments:      segments,
		montrealSnow:  mtlSnow,
		quebecSnow:    qcSnow,
		montrealWaste: mtlWaste,
		quebecWaste:   qcWaste,
	}
}

// SnowQuery identifies a location for a snow status lookup. SegmentID wins
// when set; otherwise Address narrows Montreal lookups and PostalCode routes
// and, for Quebec, locates.
type SnowQuery struct {
	PostalCode string
	Address    string
	SegmentID  int
}

// SnowStatus answers a snow status query, routing on city.
func (d *Dispatcher) SnowStatus(ctx context.Context, q SnowQuery) (status.Report, error) {
	// A known segment bypasses resolution entirely; segments exist only in
	// Montreal's system.
	if q.SegmentID != 0 {
		return d.montrealSnow.StatusForSegment(ctx, q.SegmentID)
	}

	if q.PostalCode == "" {
		return status.Report{}, fmt.Errorf("%w: empty postal code", resolver.ErrInvalidPostalCode)
	}
	location, err := d.resolver.Resolve(ctx, q.PostalCode)
	if err != nil {
		return status.Report{}, err
	}

	switch location.City {
	case city.Montreal:
		return d.montrealStatus(ctx, q, location)
	case city.Quebec:
		return d.quebecSnow.StatusNear(ctx, location.Point.Latitude, location.Point.Longitude)
	default:
		return status.Report{}, fmt.Errorf("%w: %s", resolver.ErrUnsupportedCity, location.CityTag)
	}
}

// montrealStatus needs a street segment; the civic address supplies it via
// the geobase index. Without one the status is honestly unknown rather than
// guessed from the postal centroid, which can sit on a different street.
func (d *Dispatcher) montrealStatus(ctx context.Context, q SnowQuery, loc *resolver.Location) (status.Report, error) {
	address := q.Address
	if address == "" && loc.Street != "" {
		address = loc.Street
	}
	if address == "" {
		return status.UnknownReport(city.Montreal,
			"A civic address is required to locate the street segment."), nil
	}

	segment, err := d.segments.LookupAddress(address)
	if err != nil {
		return status.UnknownReport(city.Montreal,
			fmt.Sprintf("No street segment found for %q.", address)), nil
	}
	return d.montrealSnow.StatusForSegment(ctx, segment.SegmentID)
}

// WasteSchedule answers a waste schedule query, routing on city.
func (d *Dispatcher) WasteSchedule(ctx context.Context, postalCode string, civicNumber int) (*sources.WasteSchedule, error) {
	location, err := d.resolver.Resolve(ctx, postalCode)
	if err != nil {
		return nil, err
	}

	switch location.City {
	case city.Montreal:
		return d.montrealWaste.ScheduleFor(ctx, location.Point)
	case city.Quebec:
		return d.quebecWaste.ScheduleFor(ctx, location.PostalCode, civicNumber)
	default:
		return nil, fmt.Errorf("%w: %s", resolver.ErrUnsupportedCity, location.CityTag)
	}
}

// SnowStatusForAddress answers for a stored subscription address, using its
// persisted segment or coordinates before falling back to resolution.
func (d *Dispatcher) SnowStatusForAddress(ctx context.Context, addr *store.Address) (status.Report, error) {
	c, err := city.Parse(addr.City)
	if err != nil {
		return status.Report{}, err
	}

	switch c {
	case city.Montreal:
		if addr.SegmentID != nil && *addr.SegmentID != 0 {
			return d.montrealSnow.StatusForSegment(ctx, *addr.SegmentID)
		}
		return d.SnowStatus(ctx, SnowQuery{
			PostalCode: addr.PostalCode,
			Address:    civicAddress(addr),
		})
	case city.Quebec:
		if addr.Latitude != nil && addr.Longitude != nil {
			return d.quebecSnow.StatusNear(ctx, *addr.Latitude, *addr.Longitude)
		}
		return d.SnowStatus(ctx, SnowQuery{PostalCode: addr.PostalCode})
	default:
		return status.Report{}, fmt.Errorf("%w: %s", resolver.ErrUnsupportedCity, addr.City)
	}
}

// WasteScheduleForAddress answers for a stored subscription address,
// preferring its persisted coordinates.
func (d *Dispatcher) WasteScheduleForAddress(ctx context.Context, addr *store.Address) (*sources.WasteSchedule, error) {
	c, err := city.Parse(addr.City)
	if err != nil {
		return nil, err
	}

	if c == city.Montreal && addr.Latitude != nil && addr.Longitude != nil {
		return d.montrealWaste.ScheduleFor(ctx, geo.Point{Latitude: *addr.Latitude, Longitude: *addr.Longitude})
	}
	if c == city.Quebec {
		return d.quebecWaste.ScheduleFor(ctx, addr.PostalCode, addr.CivicNumber)
	}
	return d.WasteSchedule(ctx, addr.PostalCode, addr.CivicNumber)
}

func civicAddress(addr *store.Address) string {
	if addr.StreetName == "" {
		return ""
	}
	if addr.CivicNumber > 0 {
		return fmt.Sprintf("%d %s", addr.CivicNumber, addr.StreetName)
	}
	return addr.StreetName
}
