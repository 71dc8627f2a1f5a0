package attendance

import (
	"time"
)

type Shift string

const (
	ShiftMorning  Shift = "morning"
	ShiftEvening  Shift = "evening"
	ShiftNight    Shift = "night"
	ShiftFlexible Shift = "flexible"
)

var validShifts = []string{string(ShiftMorning), string(ShiftEvening), string(ShiftNight), string(ShiftFlexible)}

// ShiftPolicy holds the time-of-day rules of each shift. Offsets are measured
// from local midnight of the check-in day.
type ShiftPolicy struct {
	MorningLateAfter time.Duration
	MorningEnd       time.Duration
	EveningLateAfter time.Duration
	EveningEnd       time.Duration

	// Night check-ins before NightEnd belong to the window that started at
	// midnight; check-ins at or after NightEveningFromHour open a window that
	// closes at NightEnd on the following day.
	NightEnd             time.Duration
	NightEveningFromHour int
	NightEveningStart    time.Duration
	NightLateGrace       time.Duration

	FlexibleWindow time.Duration
}

func DefaultShiftPolicy() ShiftPolicy {
	return ShiftPolicy{
		MorningLateAfter:     9 * time.Hour,
		MorningEnd:           16 * time.Hour,
		EveningLateAfter:     17 * time.Hour,
		EveningEnd:           24*time.Hour - time.Millisecond,
		NightEnd:             8 * time.Hour,
		NightEveningFromHour: 18,
		NightEveningStart:    20 * time.Hour,
		NightLateGrace:       30 * time.Minute,
		FlexibleWindow:       24 * time.Hour,
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Boundary returns the instant at which the shift window of checkIn closes.
func (p ShiftPolicy) Boundary(shift Shift, checkIn time.Time) (time.Time, error) {
	day := midnight(checkIn)

	switch shift {
	case ShiftMorning:
		return maxTime(day.Add(p.MorningEnd), checkIn), nil
	case ShiftEvening:
		return maxTime(day.Add(p.EveningEnd), checkIn), nil
	case ShiftNight:
		if checkIn.Hour() < int(p.NightEnd/time.Hour) {
			return day.Add(p.NightEnd), nil
		}
		return day.AddDate(0, 0, 1).Add(p.NightEnd), nil
	case ShiftFlexible:
		return checkIn.Add(p.FlexibleWindow), nil
	default:
		return time.Time{}, ErrInvalidShift
	}
}

// IsLate reports whether checkIn is past the lateness threshold of the shift.
func (p ShiftPolicy) IsLate(shift Shift, checkIn time.Time) (bool, error) {
	day := midnight(checkIn)

	switch shift {
	case ShiftMorning:
		return checkIn.After(day.Add(p.MorningLateAfter)), nil
	case ShiftEvening:
		return checkIn.After(day.Add(p.EveningLateAfter)), nil
	case ShiftNight:
		switch {
		case checkIn.Hour() < int(p.NightEnd/time.Hour):
			return checkIn.After(day.Add(p.NightLateGrace)), nil
		case checkIn.Hour() >= p.NightEveningFromHour:
			return checkIn.After(day.Add(p.NightEveningStart + p.NightLateGrace)), nil
		default:
			return false, nil
		}
	case ShiftFlexible:
		return false, nil
	default:
		return false, ErrInvalidShift
	}
}

// IsAnomalous flags night check-ins that fall in neither night window.
func (p ShiftPolicy) IsAnomalous(shift Shift, checkIn time.Time) bool {
	if shift != ShiftNight {
		return false
	}
	h := checkIn.Hour()
	return h >= int(p.NightEnd/time.Hour) && h < p.NightEveningFromHour
}

// maxTime keeps the boundary from preceding a check-in made after the window closed.
func maxTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}
