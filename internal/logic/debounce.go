package logic

// DefaultDebounceWindow is the quiet time a raw level must hold before it is
// accepted.
const DefaultDebounceWindow Millis = 50

// Engine debounces a fixed set of inputs and fires each input's handler on
// the release that completes a qualifying press.
type Engine struct {
	window Millis
	inputs []Input
	states []DebounceState
}

// NewEngine creates an engine for inputs. initial holds the levels read at
// boot and seeds both the stable and last raw level, so a button already held
// at boot is never armed and its release does not toggle. A missing initial
// level defaults to High (released).
func NewEngine(inputs []Input, window Millis, initial []Level) *Engine {
	e := &Engine{
		window: window,
		inputs: inputs,
		states: make([]DebounceState, len(inputs)),
	}
	for i := range e.states {
		lvl := High
		if i < len(initial) {
			lvl = initial[i]
		}
		e.states[i] = DebounceState{LastRaw: lvl, Stable: lvl}
	}
	return e
}

// Len returns the number of inputs.
func (e *Engine) Len() int {
	return len(e.inputs)
}

// State returns a copy of the debounce state for input i.
func (e *Engine) State(i int) DebounceState {
	return e.states[i]
}

// Sample feeds one raw reading for input i taken at now. It reports whether
// the input's toggle fired on this sample. Out of range indexes are ignored.
func (e *Engine) Sample(i int, raw Level, now Millis) bool {
	if i < 0 || i >= len(e.states) {
		return false
	}
	st := &e.states[i]
	fired := false

	// Every raw change restarts the quiet timer, not just the first.
	if raw != st.LastRaw {
		st.LastEdge = now
	}

	if Since(now, st.LastEdge) > e.window && raw != st.Stable {
		st.Stable = raw
		if raw.Pressed() {
			st.PressActive = true
		} else if st.PressActive {
			st.PressActive = false
			fired = true
		}
	}

	st.LastRaw = raw

	if fired && e.inputs[i].Handler != nil {
		e.inputs[i].Handler.OnToggle(i)
	}
	return fired
}

// SampleAll feeds one reading per input and returns the indexes that fired,
// in input order. Extra levels are ignored.
func (e *Engine) SampleAll(levels []Level, now Millis) []int {
	var fired []int
	for i := 0; i < len(e.states) && i < len(levels); i++ {
		if e.Sample(i, levels[i], now) {
			fired = append(fired, i)
		}
	}
	return fired
}
