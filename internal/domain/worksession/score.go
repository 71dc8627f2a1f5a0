package worksession

// ScoreFunc maps the raw input counts of one sampling interval to a
// productivity score. Results are clamped to [0, 100] by the caller.
type ScoreFunc func(m Metrics) float64

type Metrics struct {
	Keystrokes      int
	MouseClicks     int
	MouseMoves      int
	Scrolls         int
	IntervalMinutes int
}

// EventsPerMinuteForFullScore is the weighted input rate that scores 100.
const EventsPerMinuteForFullScore = 60.0

// DefaultScore weighs clicks double and mouse moves at a tenth, then scales
// the weighted events per minute against EventsPerMinuteForFullScore.
func DefaultScore(m Metrics) float64 {
	if m.IntervalMinutes <= 0 {
		return 0
	}
	weighted := float64(m.Keystrokes) + 2*float64(m.MouseClicks) + float64(m.Scrolls) + float64(m.MouseMoves)/10
	perMinute := weighted / float64(m.IntervalMinutes)
	return 100 * perMinute / EventsPerMinuteForFullScore
}

// Score applies fn and clamps the result to [0, 100].
func Score(fn ScoreFunc, m Metrics) float64 {
	if fn == nil {
		fn = DefaultScore
	}
	v := fn(m)
	switch {
	case v != v, v < 0:
		return 0
	case v > 100:
		return 100
	}
	return round2(v)
}

// IsIdle reports whether an interval counts as idle: the client said so or no
// input was recorded.
func IsIdle(clientIdle bool, m Metrics) bool {
	return clientIdle || m.Keystrokes+m.MouseClicks+m.MouseMoves+m.Scrolls == 0
}
