package logic

// DefaultFactoryHold is how long the reset button must be held continuously
// before a factory reset is triggered.
const DefaultFactoryHold Millis = 5000

// ResetHold detects a long press on the dedicated reset input.
type ResetHold struct {
	threshold  Millis
	pressStart Millis
	active     bool
	fired      bool
	last       Level
}

// NewResetHold creates a detector. initial is the level read at boot; a
// button already down does not count as a fresh press edge.
func NewResetHold(threshold Millis, initial Level) *ResetHold {
	return &ResetHold{threshold: threshold, last: initial}
}

// Threshold returns the hold threshold.
func (r *ResetHold) Threshold() Millis {
	return r.threshold
}

// Active reports whether a hold is currently being timed.
func (r *ResetHold) Active() bool {
	return r.active
}

// Sample feeds one raw reading taken at now. It returns true exactly once per
// continuous hold, on the first sample at or past the threshold.
func (r *ResetHold) Sample(raw Level, now Millis) bool {
	defer func() { r.last = raw }()

	switch {
	case raw.Pressed() && !r.last.Pressed():
		r.pressStart = now
		r.active = true
		r.fired = false
	case !raw.Pressed():
		r.active = false
		r.fired = false
	}

	if r.active && !r.fired && Since(now, r.pressStart) >= r.threshold {
		r.fired = true
		return true
	}
	return false
}

// HoldResult is the outcome of the boot-time hold check.
type HoldResult int

const (
	// HoldNotPressed means the reset input was released at boot.
	HoldNotPressed HoldResult = iota
	// HoldReleased means the input was held at boot but let go early.
	HoldReleased
	// HoldExpired means the input was held for the full threshold.
	HoldExpired
)

func (h HoldResult) String() string {
	switch h {
	case HoldNotPressed:
		return "not-pressed"
	case HoldReleased:
		return "released"
	case HoldExpired:
		return "expired"
	}
	return "unknown"
}

// SpinBootHold is the blocking boot phase of the reset detector. If read
// reports the input pressed, it spins until the input is released or the
// threshold elapses, calling pause between reads. It must run before any
// other subsystem starts.
func SpinBootHold(read func() Level, clock Clock, pause func(), threshold Millis) HoldResult {
	if !read().Pressed() {
		return HoldNotPressed
	}
	start := clock()
	for read().Pressed() {
		if Since(clock(), start) >= threshold {
			return HoldExpired
		}
		if pause != nil {
			pause()
		}
	}
	return HoldReleased
}
