package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGate_TryAcquire(t *testing.T) {
	current := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	gate := NewGateWithClock(5*time.Minute, func() time.Time { return current })

	assert.True(t, gate.TryAcquire(), "first call always passes")
	assert.False(t, gate.TryAcquire(), "immediate second call is inside the cooldown")

	current = current.Add(4 * time.Minute)
	assert.False(t, gate.TryAcquire(), "still one minute short")

	current = current.Add(time.Minute)
	assert.True(t, gate.TryAcquire(), "cooldown has elapsed")
	assert.False(t, gate.TryAcquire(), "acquisition restarted the cooldown")
}

func TestGate_Remaining(t *testing.T) {
	current := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	gate := NewGateWithClock(5*time.Minute, func() time.Time { return current })

	assert.Equal(t, time.Duration(0), gate.Remaining(), "untouched gate is open")

	gate.TryAcquire()
	assert.Equal(t, 5*time.Minute, gate.Remaining())

	current = current.Add(3 * time.Minute)
	assert.Equal(t, 2*time.Minute, gate.Remaining())

	current = current.Add(10 * time.Minute)
	assert.Equal(t, time.Duration(0), gate.Remaining())
}

func TestGate_Interval(t *testing.T) {
	assert.Equal(t, time.Minute, NewGate(time.Minute).Interval())
}
