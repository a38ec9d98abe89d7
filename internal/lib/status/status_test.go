package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alertmtl/server/internal/lib/city"
)

func TestClassifyTransition_Montreal(t *testing.T) {
	tests := []struct {
		name     string
		previous Code
		current  Code
		want     AlertType
	}{
		{"scheduled from snowy", CodeSnowy, CodeScheduled, AlertSnowScheduled},
		{"rescheduled counts as scheduled", CodeScheduled, CodeRescheduled, AlertSnowScheduled},
		{"operation starts", CodeScheduled, CodeInProgress, AlertSnowUrgent},
		{"operation finishes", CodeInProgress, CodeCleared, AlertSnowCleared},
		{"no change no alert", CodeInProgress, CodeInProgress, AlertNone},
		{"baseline observation never alerts", "", CodeInProgress, AlertNone},
		{"transition to snowy is informational only", CodeClear, CodeSnowy, AlertNone},
		{"transition to unknown never alerts", CodeScheduled, CodeUnknown, AlertNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTransition(city.Montreal, tt.previous, tt.current))
		})
	}
}

func TestClassifyTransition_Quebec(t *testing.T) {
	assert.Equal(t, AlertSnowUrgent, ClassifyTransition(city.Quebec, CodeInactive, CodeActive))
	assert.Equal(t, AlertSnowCleared, ClassifyTransition(city.Quebec, CodeActive, CodeInactive))
	assert.Equal(t, AlertNone, ClassifyTransition(city.Quebec, "", CodeActive))
	assert.Equal(t, AlertNone, ClassifyTransition(city.Quebec, CodeActive, CodeActive))

	// Montreal codes mean nothing in Quebec's table.
	assert.Equal(t, AlertNone, ClassifyTransition(city.Quebec, CodeInactive, CodeInProgress))
}

func TestClassifyTransition_UnknownCity(t *testing.T) {
	assert.Equal(t, AlertNone, ClassifyTransition(city.Unknown, CodeScheduled, CodeInProgress))
}

func TestDisplayFor(t *testing.T) {
	d := DisplayFor(CodeInProgress)
	assert.Equal(t, "In Progress", d.LabelEN)
	assert.Equal(t, "En cours", d.LabelFR)
	assert.Equal(t, 4, d.Priority)

	// Unrecognized codes degrade to the unknown treatment.
	d = DisplayFor(Code("garbage_value"))
	assert.Equal(t, "Unknown", d.LabelEN)
	assert.Equal(t, "gray", d.Color)
}

func TestParkingProhibited(t *testing.T) {
	assert.True(t, ParkingProhibited(CodeInProgress))
	assert.True(t, ParkingProhibited(CodeScheduled))
	assert.True(t, ParkingProhibited(CodeActive))
	assert.False(t, ParkingProhibited(CodeCleared))
	assert.False(t, ParkingProhibited(CodeUnknown))
}

func TestUnknownReport(t *testing.T) {
	report := UnknownReport(city.Montreal, "nothing to see")
	assert.Equal(t, CodeUnknown, report.Code)
	assert.Equal(t, "montreal", report.CityTag)
	assert.True(t, report.ParkingAllowed)
	assert.Equal(t, "nothing to see", report.Message)
}
