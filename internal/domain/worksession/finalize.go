package worksession

import (
	"math"
	"time"
)

// FoldPause closes an open pause at t, adding its length to PausedTime.
func FoldPause(s *Session, t time.Time) {
	if s.PausedAt == nil {
		return
	}
	if d := t.Sub(*s.PausedAt); d > 0 {
		s.PausedTime += d
	}
	s.PausedAt = nil
}

// Finalize stops s at end and computes its totals. The caller must make sure
// the session has not been finalized before.
func Finalize(s *Session, end time.Time) {
	FoldPause(s, end)

	duration := int(math.Round((end.Sub(s.StartTime) - s.PausedTime).Minutes()))
	if duration < 0 {
		duration = 0
	}

	var t Totals
	var scoreSum float64
	for _, sample := range s.Samples {
		if !sample.IsIdle {
			t.ProductiveMinutes += sample.IntervalMinutes
		}
		scoreSum += sample.ProductivityScore
		t.TotalKeystrokes += sample.Keystrokes
		t.TotalMouseClicks += sample.MouseClicks
	}
	if t.ProductiveMinutes > duration {
		t.ProductiveMinutes = duration
	}

	t.DurationMinutes = duration
	t.IdleMinutes = duration - t.ProductiveMinutes
	t.TotalHours = round2(float64(t.DurationMinutes) / 60)
	t.ProductiveHours = round2(float64(t.ProductiveMinutes) / 60)
	t.IdleHours = round2(float64(t.IdleMinutes) / 60)
	if len(s.Samples) > 0 {
		t.AverageActivityLevel = round2(scoreSum / float64(len(s.Samples)))
	}
	if s.HourlyRate != nil {
		earnings := round2(t.TotalHours * *s.HourlyRate)
		t.TotalEarnings = &earnings
	}

	stop := end
	s.EndTime = &stop
	s.Status = StatusStopped
	s.Totals = &t
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
