package sources

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekdayFromLabel(t *testing.T) {
	cases := []struct {
		label string
		want  time.Weekday
		ok    bool
	}{
		{"Monday", time.Monday, true},
		{"lundi", time.Monday, true},
		{"JEUDI", time.Thursday, true},
		{"  Vendredi ", time.Friday, true},
		{"dimanche", time.Sunday, true},
		{"someday", time.Sunday, false},
		{"", time.Sunday, false},
	}
	for _, tc := range cases {
		got, ok := weekdayFromLabel(tc.label)
		assert.Equal(t, tc.ok, ok, "label %q", tc.label)
		if tc.ok {
			assert.Equal(t, tc.want, got, "label %q", tc.label)
		}
	}
}

func TestNextCollectionDate_StrictlyAfter(t *testing.T) {
	// Thursday, asking for the Thursday collection: next week, not today.
	from := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	next := nextCollectionDate(time.Thursday, from)
	assert.Equal(t, time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC), next)

	// A later day the same week.
	next = nextCollectionDate(time.Friday, from)
	assert.Equal(t, time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), next)
}

func TestNextCollectionDate_ShiftsPastHolidays(t *testing.T) {
	// Next Monday from Sept 3, 2026 is Labour Day; collection shifts to
	// Tuesday.
	from := time.Date(2026, 9, 3, 12, 0, 0, 0, time.UTC)
	next := nextCollectionDate(time.Monday, from)
	assert.Equal(t, time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC), next)
}

func TestAdjustForHoliday_ConsecutiveHolidays(t *testing.T) {
	// Christmas and Boxing Day back to back.
	day := time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 12, 27, 0, 0, 0, 0, time.UTC), adjustForHoliday(day))

	// Ordinary days pass through untouched.
	day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, day, adjustForHoliday(day))
}

func TestRelativeDayLabel(t *testing.T) {
	// Thursday, Jan 15 2026.
	now := time.Date(2026, 1, 15, 7, 30, 0, 0, time.UTC)
	cases := []struct {
		date time.Time
		want string
	}{
		{time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), "Today"},
		{time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC), "Tomorrow"},
		{time.Date(2026, 1, 17, 0, 0, 0, 0, time.UTC), "This Saturday"},
		{time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC), "This Wednesday"},
		{time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC), "Next Thursday"},
		{time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC), "January 29"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RelativeDayLabel(tc.date, now), "date %s", tc.date.Format("2006-01-02"))
	}
}

func TestWasteScheduleNextPickup(t *testing.T) {
	sooner := time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)
	later := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)
	schedule := &WasteSchedule{Streams: map[string]StreamSchedule{
		"garbage":   {Stream: "garbage", NextCollection: &later},
		"recycling": {Stream: "recycling", NextCollection: &sooner},
		"green":     {Stream: "green"},
	}}

	stream, date, ok := schedule.NextPickup()
	assert.True(t, ok)
	assert.Equal(t, "recycling", stream)
	assert.Equal(t, sooner, date)

	empty := &WasteSchedule{Streams: map[string]StreamSchedule{}}
	_, _, ok = empty.NextPickup()
	assert.False(t, ok)
}
