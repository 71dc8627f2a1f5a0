package worksession

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)

func TestFinalize(t *testing.T) {
	t.Run("no samples", func(t *testing.T) {
		s := Session{StartTime: base, Status: StatusRunning}
		Finalize(&s, base.Add(4*time.Hour))

		require.NotNil(t, s.Totals)
		assert.Equal(t, StatusStopped, s.Status)
		assert.Equal(t, 240, s.Totals.DurationMinutes)
		assert.Equal(t, 4.0, s.Totals.TotalHours)
		assert.Zero(t, s.Totals.ProductiveMinutes)
		assert.Equal(t, 240, s.Totals.IdleMinutes)
		assert.Zero(t, s.Totals.AverageActivityLevel)
		assert.Nil(t, s.Totals.TotalEarnings)
	})

	t.Run("idle samples never count as productive", func(t *testing.T) {
		rate := 20.0
		s := Session{
			StartTime:  base,
			Status:     StatusRunning,
			HourlyRate: &rate,
			Samples: []Sample{
				{Keystrokes: 100, MouseClicks: 10, ProductivityScore: 80, IntervalMinutes: 10},
				{Keystrokes: 50, ProductivityScore: 95, IsIdle: true, IntervalMinutes: 10},
				{MouseClicks: 5, ProductivityScore: 40, IntervalMinutes: 10},
			},
		}
		Finalize(&s, base.Add(time.Hour))

		assert.Equal(t, 60, s.Totals.DurationMinutes)
		assert.Equal(t, 20, s.Totals.ProductiveMinutes)
		assert.Equal(t, 40, s.Totals.IdleMinutes)
		assert.Equal(t, 0.33, s.Totals.ProductiveHours)
		assert.Equal(t, 0.67, s.Totals.IdleHours)
		assert.Equal(t, 71.67, s.Totals.AverageActivityLevel)
		assert.Equal(t, 150, s.Totals.TotalKeystrokes)
		assert.Equal(t, 15, s.Totals.TotalMouseClicks)
		require.NotNil(t, s.Totals.TotalEarnings)
		assert.Equal(t, 20.0, *s.Totals.TotalEarnings)
	})

	t.Run("paused time is excluded", func(t *testing.T) {
		pausedAt := base.Add(90 * time.Minute)
		s := Session{
			StartTime:  base,
			Status:     StatusPaused,
			PausedTime: 30 * time.Minute,
			PausedAt:   &pausedAt,
		}
		Finalize(&s, base.Add(2*time.Hour))

		assert.Nil(t, s.PausedAt)
		assert.Equal(t, 60*time.Minute, s.PausedTime)
		assert.Equal(t, 60, s.Totals.DurationMinutes)
	})

	t.Run("productive minutes capped at duration", func(t *testing.T) {
		s := Session{
			StartTime: base,
			Samples:   []Sample{{Keystrokes: 10, IntervalMinutes: 60}},
		}
		Finalize(&s, base.Add(15*time.Minute))

		assert.Equal(t, 15, s.Totals.ProductiveMinutes)
		assert.Zero(t, s.Totals.IdleMinutes)
	})
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		m    Metrics
		want float64
	}{
		{"no input", Metrics{IntervalMinutes: 5}, 0},
		{"half rate", Metrics{Keystrokes: 150, IntervalMinutes: 5}, 50},
		{"clicks weigh double", Metrics{MouseClicks: 75, IntervalMinutes: 5}, 50},
		{"moves weigh a tenth", Metrics{MouseMoves: 300, IntervalMinutes: 1}, 50},
		{"clamped at 100", Metrics{Keystrokes: 10000, IntervalMinutes: 1}, 100},
		{"zero interval", Metrics{Keystrokes: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(DefaultScore, tt.m))
		})
	}

	t.Run("custom function is clamped", func(t *testing.T) {
		assert.Equal(t, 0.0, Score(func(Metrics) float64 { return -12 }, Metrics{}))
		assert.Equal(t, 100.0, Score(func(Metrics) float64 { return 250 }, Metrics{}))
	})
}

func TestIsIdle(t *testing.T) {
	assert.True(t, IsIdle(false, Metrics{IntervalMinutes: 5}))
	assert.True(t, IsIdle(true, Metrics{Keystrokes: 40, IntervalMinutes: 5}))
	assert.False(t, IsIdle(false, Metrics{Scrolls: 1, IntervalMinutes: 5}))
}
