package sources

import "time"

// Quebec statutory holidays. Collections falling on these days shift to the
// next non-holiday day. Extend this table each fall when the province
// publishes next year's calendar.
var statutoryHolidays = map[string]bool{
	"2025-01-01": true, // New Year's Day
	"2025-04-18": true, // Good Friday
	"2025-04-21": true, // Easter Monday
	"2025-05-19": true, // Victoria Day
	"2025-06-24": true, // Saint-Jean-Baptiste
	"2025-07-01": true, // Canada Day
	"2025-09-01": true, // Labour Day
	"2025-10-13": true, // Thanksgiving
	"2025-12-25": true, // Christmas
	"2025-12-26": true, // Boxing Day
	"2026-01-01": true, // New Year's Day
	"2026-04-03": true, // Good Friday
	"2026-04-06": true, // Easter Monday
	"2026-05-18": true, // Victoria Day
	"2026-06-24": true, // Saint-Jean-Baptiste
	"2026-07-01": true, // Canada Day
	"2026-09-07": true, // Labour Day
	"2026-10-12": true, // Thanksgiving
	"2026-12-25": true, // Christmas
	"2026-12-26": true, // Boxing Day
}

func isHoliday(t time.Time) bool {
	return statutoryHolidays[t.Format("2006-01-02")]
}

// adjustForHoliday pushes a collection date forward past holidays.
func adjustForHoliday(t time.Time) time.Time {
	for isHoliday(t) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// weekdayFromLabel maps English and French day names onto time.Weekday.
func weekdayFromLabel(label string) (time.Weekday, bool) {
	switch normalizeDayLabel(label) {
	case "monday", "lundi":
		return time.Monday, true
	case "tuesday", "mardi":
		return time.Tuesday, true
	case "wednesday", "mercredi":
		return time.Wednesday, true
	case "thursday", "jeudi":
		return time.Thursday, true
	case "friday", "vendredi":
		return time.Friday, true
	case "saturday", "samedi":
		return time.Saturday, true
	case "sunday", "dimanche":
		return time.Sunday, true
	default:
		return time.Sunday, false
	}
}

func normalizeDayLabel(label string) string {
	out := make([]rune, 0, len(label))
	for _, r := range label {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if r == ' ' || r == '\t' {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

// nextCollectionDate finds the next occurrence of a weekly collection day
// strictly after from, shifted past holidays.
func nextCollectionDate(day time.Weekday, from time.Time) time.Time {
	daysAhead := (int(day) - int(from.Weekday()) + 7) % 7
	if daysAhead == 0 {
		daysAhead = 7
	}
	next := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, from.Location()).
		AddDate(0, 0, daysAhead)
	return adjustForHoliday(next)
}
