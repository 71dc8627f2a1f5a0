package attendance

import (
	"math"
	"time"
)

// Derive recomputes the derived totals of e. It is called on the write path
// before every persistence of an entry.
func Derive(e *Entry) {
	e.TotalBreakMinutes = 0
	for _, b := range e.Breaks {
		e.TotalBreakMinutes += IntervalMinutes(b.Start, b.End)
	}

	e.TotalNamazMinutes = 0
	for _, n := range e.Namaz {
		e.TotalNamazMinutes += IntervalMinutes(n.Start, n.End)
	}

	if e.CheckOut == nil {
		e.TotalHours = nil
		return
	}

	gross := e.CheckOut.Sub(e.CheckIn).Minutes()
	net := gross - float64(e.TotalBreakMinutes) - float64(e.TotalNamazMinutes)
	hours := Round2(math.Max(0, net/60))
	e.TotalHours = &hours
}

// closeOpenIntervals ends any break or prayer still open at t.
func closeOpenIntervals(e *Entry, t time.Time) {
	if i := e.OpenBreak(); i >= 0 {
		end := t
		e.Breaks[i].End = &end
	}
	if i := e.OpenNamaz(); i >= 0 {
		end := t
		e.Namaz[i].End = &end
	}
}

// CloseAt sets the check-out instant, closing open intervals and re-deriving totals.
func CloseAt(e *Entry, t time.Time) {
	closeOpenIntervals(e, t)
	out := t
	e.CheckOut = &out
	Derive(e)
}

// IntervalMinutes counts whole minutes of a closed interval; open intervals count zero.
func IntervalMinutes(start time.Time, end *time.Time) int {
	if end == nil || end.Before(start) {
		return 0
	}
	return int(math.Round(end.Sub(start).Minutes()))
}

// Round2 rounds v to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
