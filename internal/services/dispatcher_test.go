package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alertmtl/server/internal/lib/city"
	"github.com/alertmtl/server/internal/lib/geo"
	"github.com/alertmtl/server/internal/lib/status"
	"github.com/alertmtl/server/internal/resolver"
	"github.com/alertmtl/server/internal/sources"
	"github.com/alertmtl/server/internal/store"
)

type stubMtlSnow struct {
	report   status.Report
	err      error
	segments []int
}

func (s *stubMtlSnow) StatusForSegment(ctx context.Context, segmentID int) (status.Report, error) {
	s.segments = append(s.segments, segmentID)
	return s.report, s.err
}

type stubQcSnow struct {
	report status.Report
	err    error
	points []geo.Point
}

func (s *stubQcSnow) StatusNear(ctx context.Context, lat, lon float64) (status.Report, error) {
	s.points = append(s.points, geo.Point{Latitude: lat, Longitude: lon})
	return s.report, s.err
}

type stubMtlWaste struct {
	schedule *sources.WasteSchedule
	err      error
	points   []geo.Point
}

func (s *stubMtlWaste) ScheduleFor(ctx context.Context, p geo.Point) (*sources.WasteSchedule, error) {
	s.points = append(s.points, p)
	return s.schedule, s.err
}

type stubQcWaste struct {
	schedule *sources.WasteSchedule
	err      error
	postals  []string
	civics   []int
}

func (s *stubQcWaste) ScheduleFor(ctx context.Context, postalCode string, civicNumber int) (*sources.WasteSchedule, error) {
	s.postals = append(s.postals, postalCode)
	s.civics = append(s.civics, civicNumber)
	return s.schedule, s.err
}

type stubResolver struct {
	location *resolver.Location
	err      error
	calls    int
}

func (s *stubResolver) Resolve(ctx context.Context, postalCode string) (*resolver.Location, error) {
	s.calls++
	return s.location, s.err
}

type stubSegments struct {
	segment *store.GeoStreetSegment
	err     error
	queries []string
}

func (s *stubSegments) LookupAddress(address string) (*store.GeoStreetSegment, error) {
	s.queries = append(s.queries, address)
	if s.err != nil {
		return nil, s.err
	}
	return s.segment, nil
}

type dispatcherStubs struct {
	resolver *stubResolver
	segments *stubSegments
	mtlSnow  *stubMtlSnow
	qcSnow   *stubQcSnow
	mtlWaste *stubMtlWaste
	qcWaste  *stubQcWaste
}

func newStubDispatcher() (*Dispatcher, *dispatcherStubs) {
	stubs := &dispatcherStubs{
		resolver: &stubResolver{},
		segments: &stubSegments{},
		mtlSnow:  &stubMtlSnow{},
		qcSnow:   &stubQcSnow{},
		mtlWaste: &stubMtlWaste{},
		qcWaste:  &stubQcWaste{},
	}
	d := NewDispatcher(stubs.resolver, stubs.segments,
		stubs.mtlSnow, stubs.qcSnow, stubs.mtlWaste, stubs.qcWaste)
	return d, stubs
}

func montrealLocation(street string) *resolver.Location {
	return &resolver.Location{
		PostalCode: "H2X1Y6",
		City:       city.Montreal,
		CityTag:    "montreal",
		Point:      geo.Point{Latitude: 45.5088, Longitude: -73.5696},
		Street:     street,
	}
}

func quebecLocation() *resolver.Location {
	return &resolver.Location{
		PostalCode: "G1R4S9",
		City:       city.Quebec,
		CityTag:    "quebec",
		Point:      geo.Point{Latitude: 46.8139, Longitude: -71.2080},
	}
}

func TestSnowStatus_SegmentBypassesResolution(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.mtlSnow.report = status.Report{Code: status.CodeScheduled}

	report, err := d.SnowStatus(context.Background(), SnowQuery{SegmentID: 1040100})
	require.NoError(t, err)
	assert.Equal(t, status.CodeScheduled, report.Code)
	assert.Equal(t, []int{1040100}, stubs.mtlSnow.segments)
	assert.Zero(t, stubs.resolver.calls)
}

func TestSnowStatus_EmptyPostalCode(t *testing.T) {
	d, _ := newStubDispatcher()
	_, err := d.SnowStatus(context.Background(), SnowQuery{})
	assert.ErrorIs(t, err, resolver.ErrInvalidPostalCode)
}

func TestSnowStatus_MontrealUsesGeobaseSegment(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.resolver.location = montrealLocation("Rue Saint-Denis")
	stubs.segments.segment = &store.GeoStreetSegment{SegmentID: 1040100}
	stubs.mtlSnow.report = status.Report{Code: status.CodeInProgress}

	report, err := d.SnowStatus(context.Background(), SnowQuery{PostalCode: "H2X 1Y6"})
	require.NoError(t, err)
	assert.Equal(t, status.CodeInProgress, report.Code)
	assert.Equal(t, []string{"Rue Saint-Denis"}, stubs.segments.queries,
		"the reverse-geocoded street feeds the segment lookup")
	assert.Equal(t, []int{1040100}, stubs.mtlSnow.segments)
}

func TestSnowStatus_ExplicitAddressWinsOverResolvedStreet(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.resolver.location = montrealLocation("Rue Saint-Denis")
	stubs.segments.segment = &store.GeoStreetSegment{SegmentID: 7}

	_, err := d.SnowStatus(context.Background(), SnowQuery{
		PostalCode: "H2X 1Y6",
		Address:    "3700 rue Saint-Urbain",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"3700 rue Saint-Urbain"}, stubs.segments.queries)
}

func TestSnowStatus_MontrealWithoutAddressIsUnknown(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.resolver.location = montrealLocation("")

	report, err := d.SnowStatus(context.Background(), SnowQuery{PostalCode: "H2X 1Y6"})
	require.NoError(t, err)
	assert.Equal(t, status.CodeUnknown, report.Code)
	assert.Empty(t, stubs.mtlSnow.segments, "no guessing from the postal centroid")
}

func TestSnowStatus_MontrealSegmentMissIsUnknown(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.resolver.location = montrealLocation("Rue Introuvable")
	stubs.segments.err = store.ErrNotFound

	report, err := d.SnowStatus(context.Background(), SnowQuery{PostalCode: "H2X 1Y6"})
	require.NoError(t, err)
	assert.Equal(t, status.CodeUnknown, report.Code)
}

func TestSnowStatus_QuebecRoutesToProximity(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.resolver.location = quebecLocation()
	stubs.qcSnow.report = status.Report{Code: status.CodeActive}

	report, err := d.SnowStatus(context.Background(), SnowQuery{PostalCode: "G1R 4S9"})
	require.NoError(t, err)
	assert.Equal(t, status.CodeActive, report.Code)
	require.Len(t, stubs.qcSnow.points, 1)
	assert.InDelta(t, 46.8139, stubs.qcSnow.points[0].Latitude, 0.0001)
}

func TestWasteSchedule_Routing(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.resolver.location = montrealLocation("")
	stubs.mtlWaste.schedule = &sources.WasteSchedule{CityTag: "montreal"}

	schedule, err := d.WasteSchedule(context.Background(), "H2X 1Y6", 0)
	require.NoError(t, err)
	assert.Equal(t, "montreal", schedule.CityTag)
	require.Len(t, stubs.mtlWaste.points, 1)

	stubs.resolver.location = quebecLocation()
	stubs.qcWaste.schedule = &sources.WasteSchedule{CityTag: "quebec"}

	schedule, err = d.WasteSchedule(context.Background(), "G1R 4S9", 350)
	require.NoError(t, err)
	assert.Equal(t, "quebec", schedule.CityTag)
	assert.Equal(t, []string{"G1R4S9"}, stubs.qcWaste.postals)
	assert.Equal(t, []int{350}, stubs.qcWaste.civics)
}

func TestSnowStatusForAddress_PrefersPersistedSegment(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.mtlSnow.report = status.Report{Code: status.CodeCleared}

	segmentID := 1040100
	addr := &store.Address{City: "montreal", PostalCode: "H2X1Y6", SegmentID: &segmentID}

	report, err := d.SnowStatusForAddress(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, status.CodeCleared, report.Code)
	assert.Equal(t, []int{1040100}, stubs.mtlSnow.segments)
	assert.Zero(t, stubs.resolver.calls)
}

func TestSnowStatusForAddress_QuebecPrefersPersistedCoords(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.qcSnow.report = status.Report{Code: status.CodeInactive}

	lat, lon := 46.8139, -71.2080
	addr := &store.Address{City: "quebec", PostalCode: "G1R4S9", Latitude: &lat, Longitude: &lon}

	_, err := d.SnowStatusForAddress(context.Background(), addr)
	require.NoError(t, err)
	require.Len(t, stubs.qcSnow.points, 1)
	assert.Zero(t, stubs.resolver.calls)
}

func TestWasteScheduleForAddress(t *testing.T) {
	d, stubs := newStubDispatcher()
	stubs.mtlWaste.schedule = &sources.WasteSchedule{CityTag: "montreal"}

	lat, lon := 45.5088, -73.5542
	addr := &store.Address{City: "montreal", PostalCode: "H2X1Y6", Latitude: &lat, Longitude: &lon}

	_, err := d.WasteScheduleForAddress(context.Background(), addr)
	require.NoError(t, err)
	require.Len(t, stubs.mtlWaste.points, 1)
	assert.Zero(t, stubs.resolver.calls, "persisted coordinates skip resolution")

	stubs.qcWaste.schedule = &sources.WasteSchedule{CityTag: "quebec"}
	addr = &store.Address{City: "quebec", PostalCode: "G1R4S9", CivicNumber: 350}

	_, err = d.WasteScheduleForAddress(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, []string{"G1R4S9"}, stubs.qcWaste.postals)
}
