package sources

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dpup/prefab/logging"

	"github.com/alertmtl/server/internal/clients/infoneige"
	"github.com/alertmtl/server/internal/lib/city"
	"github.com/alertmtl/server/internal/lib/status"
	"github.com/alertmtl/server/internal/store"
)

const sourceInfoNeige = "infoneige"

// PlanifFetcher is the slice of the InfoNeige client this adapter needs.
type PlanifFetcher interface {
	PlanificationsForDate(ctx context.Context, date time.Time) ([]infoneige.Planification, error)
}

// MontrealSnow answers snow status questions for Montreal street segments.
// One upstream call returns the whole city's planifications, so every fetch
// refreshes the status cache for all segments at once; per-segment reads are
// then cache hits until the TTL lapses.
type MontrealSnow struct {
	client PlanifFetcher
	store  *store.Store
	ttl    time.Duration
	now    func() time.Time
}

// NewMontrealSnow creates the adapter. ttl bounds how long a cached segment
// status is considered fresh.
func NewMontrealSnow(client PlanifFetcher, st *store.Store, ttl time.Duration) *MontrealSnow {
	return &MontrealSnow{
		client: client,
		store:  st,
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock overrides the adapter's clock, for tests.
func (m *MontrealSnow) WithClock(now func() time.Time) *MontrealSnow {
	m.now = now
	return m
}

// StatusForSegment returns the snow-removal status for one street segment.
// Resolution order: fresh cache row, live bulk fetch, stale cache row. A
// cooldown on the shared rate gate is not an error as long as any cached row
// exists.
func (m *MontrealSnow) StatusForSegment(ctx context.Context, segmentID int) (status.Report, error) {
	key := strconv.Itoa(segmentID)
	now := m.now()

	cached, cacheErr := m.store.CachedStatus(sourceInfoNeige, key)
	if cacheErr == nil && !cached.IsExpired(m.ttl, now) {
		return m.reportFromEntry(cached, true), nil
	}

	plans, fetchErr := m.client.PlanificationsForDate(ctx, now)
	if fetchErr != nil {
		if cacheErr == nil {
			logging.Warnw(ctx, "montreal snow: serving stale status after fetch failure",
				"segment_id", segmentID, "error", fetchErr)
			return m.reportFromEntry(cached, true), nil
		}
		if errors.Is(fetchErr, infoneige.ErrCooldown) {
			return status.Report{}, fmt.Errorf("%w: rate gate closed and no cached status for segment %d", ErrUnavailable, segmentID)
		}
		return status.Report{}, fmt.Errorf("%w: %v", ErrUnavailable, fetchErr)
	}

	var mine *infoneige.Planification
	for i, plan := range plans {
		code := normalizeMontrealCode(plan.State)
		if err := m.store.PutCachedStatus(sourceInfoNeige, strconv.Itoa(plan.SegmentID),
			string(code), plan.Start, plan.End, now); err != nil {
			logging.Warnw(ctx, "montreal snow: failed to cache status",
				"segment_id", plan.SegmentID, "error", err)
		}
		if plan.SegmentID == segmentID {
			mine = &plans[i]
		}
	}

	if mine == nil {
		// The daily planification omits segments with no operation planned
		// or recorded. Status is unknown, not "cleared": absence of a plan
		// says nothing about the snow on the ground.
		return status.UnknownReport(city.Montreal, "No planification found for this street segment."), nil
	}

	code := normalizeMontrealCode(mine.State)
	return status.Report{
		City:           city.Montreal,
		CityTag:        city.Montreal.String(),
		Code:           code,
		Display:        status.DisplayFor(code),
		ParkingAllowed: !status.ParkingProhibited(code),
		Message:        status.Message(code),
		ScheduledStart: mine.Start,
		ScheduledEnd:   mine.End,
	}, nil
}

func (m *MontrealSnow) reportFromEntry(entry *store.StatusCacheEntry, cached bool) status.Report {
	code := status.Code(entry.Status)
	return status.Report{
		City:           city.Montreal,
		CityTag:        city.Montreal.String(),
		Code:           code,
		Display:        status.DisplayFor(code),
		ParkingAllowed: !status.ParkingProhibited(code),
		Message:        status.Message(code),
		ScheduledStart: entry.StartAt,
		ScheduledEnd:   entry.EndAt,
		Cached:         cached,
	}
}

// normalizeMontrealCode lowercases the upstream state and keeps only codes in
// the known vocabulary; anything else is unknown.
func normalizeMontrealCode(raw string) status.Code {
	code := status.Code(strings.ToLower(strings.TrimSpace(raw)))
	switch code {
	case status.CodeSnowy, status.CodeScheduled, status.CodeRescheduled,
		status.CodeInProgress, status.CodeCleared, status.CodeToReschedule,
		status.CodeClear:
		return code
	default:
		return status.CodeUnknown
	}
}
