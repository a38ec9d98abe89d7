// Package status defines the closed status vocabulary shared by every
// upstream adapter and the alert decision engine. Adapters translate their
// raw upstream codes into these values so the engine never branches on
// source-specific strings.
package status

import (
	"time"

	"github.com/alertmtl/server/internal/lib/city"
)

// Code is a normalized snow-removal status. Montreal's InfoNeige system has a
// multi-state lifecycle; Quebec City's is binary (flashing lights on or off).
// Both vocabularies map into this one set.
type Code string

const (
	CodeUnknown      Code = "unknown"
	CodeSnowy        Code = "enneige"
	CodeScheduled    Code = "planifie"
	CodeRescheduled  Code = "replanifie"
	CodeInProgress   Code = "en_cours"
	CodeCleared      Code = "deneige"
	CodeToReschedule Code = "sera_replanifie"
	CodeClear        Code = "degage"

	// Quebec City binary states.
	CodeActive   Code = "en_fonction"
	CodeInactive Code = "hors_service"
)

// AlertType tags one family of outgoing notification. Snow types dedup on a
// rolling window; the waste reminder dedups on its collection date.
type AlertType string

const (
	AlertNone          AlertType = ""
	AlertSnowScheduled AlertType = "snow_scheduled"
	AlertSnowUrgent    AlertType = "snow_urgent"
	AlertSnowCleared   AlertType = "snow_cleared"
	AlertWasteReminder AlertType = "waste_reminder"
)

// Display carries the presentation metadata for a status. Callers render
// these directly; raw upstream codes never leave the adapters.
type Display struct {
	LabelEN  string `json:"en"`
	LabelFR  string `json:"fr"`
	Color    string `json:"color"`
	Priority int    `json:"priority"`
}

// Report is the uniform result of a snow status fetch.
type Report struct {
	City            city.City  `json:"-"`
	CityTag         string     `json:"city"`
	Code            Code       `json:"etat"`
	Display         Display    `json:"display"`
	ParkingAllowed  bool       `json:"parking_allowed"`
	Message         string     `json:"message,omitempty"`
	ScheduledStart  *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd    *time.Time `json:"scheduled_end,omitempty"`
	Cached          bool       `json:"cached"`
	SearchRadiusM   int        `json:"search_radius,omitempty"`
	NearbyOperation string     `json:"nearest_operation,omitempty"`
}

var displays = map[Code]Display{
	CodeSnowy:        {LabelEN: "Snowy", LabelFR: "Enneigé", Color: "blue", Priority: 1},
	CodeScheduled:    {LabelEN: "Scheduled", LabelFR: "Planifié", Color: "orange", Priority: 3},
	CodeRescheduled:  {LabelEN: "Rescheduled", LabelFR: "Replanifié", Color: "orange", Priority: 3},
	CodeInProgress:   {LabelEN: "In Progress", LabelFR: "En cours", Color: "purple", Priority: 4},
	CodeCleared:      {LabelEN: "Cleared", LabelFR: "Déneigé", Color: "green", Priority: 0},
	CodeToReschedule: {LabelEN: "To be Rescheduled", LabelFR: "Sera replanifié", Color: "orange", Priority: 2},
	CodeClear:        {LabelEN: "Clear", LabelFR: "Dégagé", Color: "green", Priority: 0},
	CodeActive:       {LabelEN: "Active", LabelFR: "En fonction", Color: "red", Priority: 4},
	CodeInactive:     {LabelEN: "Inactive", LabelFR: "Hors service", Color: "green", Priority: 0},
	CodeUnknown:      {LabelEN: "Unknown", LabelFR: "Inconnu", Color: "gray", Priority: 0},
}

// DisplayFor returns presentation metadata for a code. Unrecognized codes get
// the gray "unknown" treatment rather than an error.
func DisplayFor(code Code) Display {
	if d, ok := displays[code]; ok {
		return d
	}
	return displays[CodeUnknown]
}

// Priority returns the urgency ranking for a code (higher is more urgent).
func Priority(code Code) int {
	return DisplayFor(code).Priority
}

// ParkingProhibited reports whether street parking is disallowed while a
// status is in effect.
func ParkingProhibited(code Code) bool {
	switch code {
	case CodeInProgress, CodeScheduled, CodeRescheduled, CodeActive:
		return true
	default:
		return false
	}
}

// Per-city transition tables: the new status alone decides the alert type.
// The engine has already established that a transition occurred before
// consulting these.
var montrealTransitions = map[Code]AlertType{
	CodeScheduled:   AlertSnowScheduled,
	CodeRescheduled: AlertSnowScheduled,
	CodeInProgress:  AlertSnowUrgent,
	CodeCleared:     AlertSnowCleared,
}

var quebecTransitions = map[Code]AlertType{
	CodeActive:   AlertSnowUrgent,
	CodeInactive: AlertSnowCleared,
}

// ClassifyTransition maps a status change onto an alert type for the given
// city. It returns AlertNone when the statuses are equal, when there is no
// recorded previous status (first observation establishes a baseline), or
// when the new status is not alert-worthy.
func ClassifyTransition(c city.City, previous, current Code) AlertType {
	if previous == "" || previous == current {
		return AlertNone
	}
	switch c {
	case city.Montreal:
		return montrealTransitions[current]
	case city.Quebec:
		return quebecTransitions[current]
	default:
		return AlertNone
	}
}

// UnknownReport builds the generic "status unknown" report for a city,
// used when every fetch path has failed.
func UnknownReport(c city.City, message string) Report {
	return Report{
		City:           c,
		CityTag:        c.String(),
		Code:           CodeUnknown,
		Display:        DisplayFor(CodeUnknown),
		ParkingAllowed: true,
		Message:        message,
	}
}

// Message returns the advisory text for a snow status code.
func Message(code Code) string {
	switch code {
	case CodeScheduled, CodeRescheduled:
		return "Snow removal is scheduled. Move your vehicle before the operation begins."
	case CodeInProgress:
		return "Snow removal in progress! Parking is prohibited."
	case CodeCleared:
		return "Street has been cleared. Parking is allowed."
	case CodeSnowy:
		return "Street is snowy. Monitor for scheduled removal."
	case CodeActive:
		return "Snow removal operations are active nearby."
	case CodeInactive:
		return "No active snow removal operations nearby."
	default:
		return ""
	}
}
