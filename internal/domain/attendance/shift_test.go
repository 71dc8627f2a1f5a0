package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(day, hour, min int) time.Time {
	return time.Date(2025, time.March, day, hour, min, 0, 0, time.UTC)
}

func TestShiftPolicy_IsLate(t *testing.T) {
	p := DefaultShiftPolicy()

	tests := []struct {
		name    string
		shift   Shift
		checkIn time.Time
		want    bool
	}{
		{"morning on time", ShiftMorning, at(10, 8, 55), false},
		{"morning exactly nine", ShiftMorning, at(10, 9, 0), false},
		{"morning late", ShiftMorning, at(10, 9, 1), true},
		{"evening on time", ShiftEvening, at(10, 16, 45), false},
		{"evening late", ShiftEvening, at(10, 17, 30), true},
		{"night early window within grace", ShiftNight, at(10, 0, 20), false},
		{"night early window late", ShiftNight, at(10, 0, 45), true},
		{"night evening window on time", ShiftNight, at(10, 20, 15), false},
		{"night evening window before start", ShiftNight, at(10, 19, 0), false},
		{"night evening window late", ShiftNight, at(10, 21, 0), true},
		{"night before midnight", ShiftNight, at(10, 23, 50), true},
		{"night daytime", ShiftNight, at(10, 12, 0), false},
		{"flexible never late", ShiftFlexible, at(10, 23, 59), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.IsLate(tt.shift, tt.checkIn)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown shift", func(t *testing.T) {
		_, err := p.IsLate(Shift("graveyard"), at(10, 9, 0))
		assert.ErrorIs(t, err, ErrInvalidShift)
	})
}

func TestShiftPolicy_Boundary(t *testing.T) {
	p := DefaultShiftPolicy()

	tests := []struct {
		name    string
		shift   Shift
		checkIn time.Time
		want    time.Time
	}{
		{"morning", ShiftMorning, at(10, 8, 0), at(10, 16, 0)},
		{"morning after end", ShiftMorning, at(10, 17, 0), at(10, 17, 0)},
		{"evening", ShiftEvening, at(10, 17, 0), at(10, 23, 59).Add(59*time.Second + 999*time.Millisecond)},
		{"night before midnight", ShiftNight, at(10, 23, 50), at(11, 8, 0)},
		{"night after midnight", ShiftNight, at(11, 0, 30), at(11, 8, 0)},
		{"flexible", ShiftFlexible, at(10, 13, 15), at(11, 13, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Boundary(tt.shift, tt.checkIn)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.False(t, got.Before(tt.checkIn))
		})
	}

	t.Run("unknown shift", func(t *testing.T) {
		_, err := p.Boundary(Shift(""), at(10, 9, 0))
		assert.ErrorIs(t, err, ErrInvalidShift)
	})
}

func TestShiftPolicy_IsAnomalous(t *testing.T) {
	p := DefaultShiftPolicy()

	assert.True(t, p.IsAnomalous(ShiftNight, at(10, 12, 0)))
	assert.True(t, p.IsAnomalous(ShiftNight, at(10, 8, 0)))
	assert.False(t, p.IsAnomalous(ShiftNight, at(10, 7, 59)))
	assert.False(t, p.IsAnomalous(ShiftNight, at(10, 18, 0)))
	assert.False(t, p.IsAnomalous(ShiftMorning, at(10, 12, 0)))
}
