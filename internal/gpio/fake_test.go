package gpio

import (
	"errors"
	"testing"

	"github.com/sweeney/switch-bridge/internal/logic"
)

func TestFakeReaderRead(t *testing.T) {
	samples := [][]logic.Level{
		Levels("10"),
		Levels("01"),
		Levels("00"),
	}

	f := NewFakeReader(samples)

	for i, want := range samples {
		got, err := f.Read()
		if err != nil {
			t.Fatalf("sample %d: unexpected error: %v", i, err)
		}
		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("sample %d: expected %v, got %v", i, want, got)
		}
	}

	// Fourth read should repeat last sample
	got, err := f.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != logic.Low || got[1] != logic.Low {
		t.Errorf("sample 3 (repeat): expected [LOW LOW], got %v", got)
	}
	if f.Reads != 4 {
		t.Errorf("Reads: got %d, want 4", f.Reads)
	}
}

func TestFakeReaderReturnsCopy(t *testing.T) {
	f := NewFakeReader([][]logic.Level{Levels("1")})
	got, _ := f.Read()
	got[0] = logic.Low

	again, _ := f.Read()
	if again[0] != logic.High {
		t.Error("mutating a returned sample changed the script")
	}
}

func TestFakeReaderNoSamples(t *testing.T) {
	f := NewFakeReader(nil)

	_, err := f.Read()
	if err == nil {
		t.Error("expected error with no samples")
	}
}

func TestFakeReaderError(t *testing.T) {
	f := NewFakeReader([][]logic.Level{Levels("11")})
	f.ReadError = errors.New("simulated error")

	_, err := f.Read()
	if err == nil {
		t.Error("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeReaderClose(t *testing.T) {
	f := NewFakeReader([][]logic.Level{Levels("11")})

	if f.Closed {
		t.Error("should not be closed initially")
	}

	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeReaderReset(t *testing.T) {
	f := NewFakeReader([][]logic.Level{Levels("10"), Levels("01")})

	// Consume first sample
	f.Read()

	// Reset
	f.Reset()

	// Should read first sample again
	got, _ := f.Read()
	if got[0] != logic.High || got[1] != logic.Low {
		t.Errorf("after reset: expected [HIGH LOW], got %v", got)
	}
}

func TestLevels(t *testing.T) {
	got := Levels("0L1H")
	want := []logic.Level{logic.Low, logic.Low, logic.High, logic.High}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
