// Package logic contains the pure state machines of the switch bridge.
// This package has NO external dependencies (no GPIO, HAP, MQTT, OS, or time.Sleep).
// Time is always injectable as a wrapping millisecond counter.
package logic

import "time"

// Millis is a monotonic millisecond counter that wraps at 2^32
// (about 49.7 days). Never compare two Millis values directly; use Since.
type Millis uint32

// Since returns the time elapsed from then to now. Unsigned subtraction keeps
// the result correct across the wrap boundary as long as the real interval
// is shorter than one full wrap.
func Since(now, then Millis) Millis {
	return now - then
}

// Level is a raw digital pin level.
type Level uint8

const (
	Low  Level = 0
	High Level = 1
)

// Pressed reports whether the level denotes a pressed button.
// Inputs are pulled up, so a pressed button reads Low.
func (l Level) Pressed() bool {
	return l == Low
}

func (l Level) String() string {
	if l == Low {
		return "LOW"
	}
	return "HIGH"
}

// ToggleHandler is the capability invoked when an input completes a
// press-release cycle.
type ToggleHandler interface {
	OnToggle(index int)
}

// ToggleFunc adapts a plain function to ToggleHandler.
type ToggleFunc func(index int)

// OnToggle calls f(index).
func (f ToggleFunc) OnToggle(index int) { f(index) }

// Input is one debounced button. It is immutable after the engine is built.
type Input struct {
	Pin     int
	Handler ToggleHandler
}

// DebounceState tracks debounce state for a single input.
type DebounceState struct {
	// Raw level seen on the previous sample
	LastRaw Level
	// Time of the most recent raw change
	LastEdge Millis
	// Current stable (debounced) level
	Stable Level
	// A press has been committed and is waiting for its release
	PressActive bool
}

// Source identifies what caused a toggle.
type Source string

const (
	SourceButton Source = "BUTTON"
	SourceRemote Source = "REMOTE"
)

// ToggleEvent is a switch value change to be published.
type ToggleEvent struct {
	Timestamp time.Time
	Index     int
	Name      string
	On        bool
	Source    Source
}

// StateString renders a switch value as ON or OFF.
func StateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
