package logic

import "time"

// Clock returns the current Millis reading.
type Clock func() Millis

// NewMonotonicClock returns a Clock counting milliseconds since start using
// the monotonic reading carried by time.Time. The counter wraps like a
// microcontroller millis() would.
func NewMonotonicClock(start time.Time) Clock {
	return func() Millis {
		return Millis(uint64(time.Since(start).Milliseconds()))
	}
}

// DurationMillis converts d to Millis, saturating at the largest value.
func DurationMillis(d time.Duration) Millis {
	ms := d.Milliseconds()
	if ms <= 0 {
		return 0
	}
	if ms > int64(^Millis(0)) {
		return ^Millis(0)
	}
	return Millis(ms)
}
