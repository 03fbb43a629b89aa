package logic

// Defaults for the health watchdog. Both are tunable from the command line.
const (
	DefaultHealthInterval  Millis = 30000
	DefaultHealthThreshold        = 3
)

// Verdict is the watchdog's decision for one check window.
type Verdict int

const (
	// VerdictHealthy means at least one client is connected.
	VerdictHealthy Verdict = iota
	// VerdictGrace means no client now, but one was seen within the last window.
	VerdictGrace
	// VerdictAnnounce asks for a re-announcement of the discovery record.
	VerdictAnnounce
	// VerdictRestart asks for a full device restart.
	VerdictRestart
)

func (v Verdict) String() string {
	switch v {
	case VerdictHealthy:
		return "healthy"
	case VerdictGrace:
		return "grace"
	case VerdictAnnounce:
		return "announce"
	case VerdictRestart:
		return "restart"
	}
	return "unknown"
}

// Watchdog escalates from re-announcing to restarting when no controller
// client has been seen for consecutive check windows.
type Watchdog struct {
	interval  Millis
	threshold int

	lastCheck   Millis
	lastHealthy Millis
	healthySeen bool
	unhealthy   int
}

// NewWatchdog creates a watchdog that checks every interval, starting from
// now. A threshold below 1 is treated as 1.
func NewWatchdog(interval Millis, threshold int, now Millis) *Watchdog {
	if threshold < 1 {
		threshold = 1
	}
	return &Watchdog{interval: interval, threshold: threshold, lastCheck: now}
}

// Due reports whether a check window has elapsed since the last evaluation.
func (w *Watchdog) Due(now Millis) bool {
	return Since(now, w.lastCheck) >= w.interval
}

// Observe records client activity seen between windows.
func (w *Watchdog) Observe(now Millis) {
	w.lastHealthy = now
	w.healthySeen = true
	w.unhealthy = 0
}

// Evaluate closes one check window given the current client count.
func (w *Watchdog) Evaluate(now Millis, clients int) Verdict {
	w.lastCheck = now

	if clients > 0 {
		w.Observe(now)
		return VerdictHealthy
	}

	if w.healthySeen && Since(now, w.lastHealthy) < w.interval {
		return VerdictGrace
	}

	w.unhealthy++
	if w.unhealthy >= w.threshold {
		w.unhealthy = 0
		return VerdictRestart
	}
	return VerdictAnnounce
}

// Unhealthy returns the number of consecutive unhealthy windows.
func (w *Watchdog) Unhealthy() int {
	return w.unhealthy
}

// Threshold returns the number of unhealthy windows that forces a restart.
func (w *Watchdog) Threshold() int {
	return w.threshold
}
