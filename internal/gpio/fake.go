package gpio

import (
	"errors"

	"github.com/sweeney/switch-bridge/internal/logic"
)

// FakeReader is a test double that returns scripted GPIO levels.
type FakeReader struct {
	// Samples contains scripted levels to return, one slice per Read.
	// Each call to Read() consumes the next sample.
	Samples [][]logic.Level

	// index tracks current position in Samples
	index int

	// Reads counts calls to Read
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples [][]logic.Level) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns a copy of the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() ([]logic.Level, error) {
	f.Reads++
	if f.ReadError != nil {
		return nil, f.ReadError
	}

	if len(f.Samples) == 0 {
		return nil, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return append([]logic.Level(nil), sample...), nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}

// Levels builds a sample from a compact string: '0' or 'L' is Low (pressed),
// anything else is High.
func Levels(s string) []logic.Level {
	out := make([]logic.Level, len(s))
	for i, c := range s {
		if c == '0' || c == 'L' {
			out[i] = logic.Low
		} else {
			out[i] = logic.High
		}
	}
	return out
}
