package logic

// Heartbeat fires on a fixed interval. A zero interval disables it.
type Heartbeat struct {
	interval Millis
	last     Millis
}

// NewHeartbeat creates a heartbeat whose first beat is one interval after now.
func NewHeartbeat(interval Millis, now Millis) *Heartbeat {
	return &Heartbeat{interval: interval, last: now}
}

// Check reports whether the interval has elapsed since the last beat (or
// startup), and if so starts the next interval at now.
func (h *Heartbeat) Check(now Millis) bool {
	if h.interval == 0 {
		return false
	}
	if Since(now, h.last) < h.interval {
		return false
	}
	h.last = now
	return true
}
