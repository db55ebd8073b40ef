package risk

import "time"

// Temporal risk bases by hour-of-day band, with a weekend multiplier on top.
const (
	nightRisk        = 2.5
	eveningRisk      = 1.8
	earlyMorningRisk = 1.2
	baseTimeRisk     = 1.0

	weekendMultiplier = 1.3
)

// TimeRisk maps a timestamp to a multiplicative risk weight derived from its
// hour-of-day and day-of-week. The result is an unbounded positive
// multiplier, not a 0-100 score.
//
// Band precedence matters: hour 22 satisfies both the night range [22,6] and
// the evening range [18,22), and the night check runs first, so 22:00 always
// resolves to night. Hour 6 likewise resolves to night, not early morning.
func TimeRisk(t time.Time) float64 {
	hour := t.Hour()

	risk := baseTimeRisk
	switch {
	case hour >= 22 || hour <= 6:
		risk = nightRisk
	case hour >= 18 && hour < 22:
		risk = eveningRisk
	case hour >= 6 && hour <= 9:
		risk = earlyMorningRisk
	}

	if isWeekend(t) {
		risk *= weekendMultiplier
	}
	return risk
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// isNightHour reports whether an hour falls in the night band used for the
// night-incident ratio feature. Matches the TimeRisk night range.
func isNightHour(hour int) bool {
	return hour >= 22 || hour <= 6
}
