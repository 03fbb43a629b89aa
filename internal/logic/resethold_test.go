package logic

import "testing"

func TestResetHoldShortPressNoReset(t *testing.T) {
	r := NewResetHold(DefaultFactoryHold, High)

	for now := Millis(100); now < 4000; now += 10 {
		if r.Sample(Low, now) {
			t.Fatalf("reset fired at %d, before threshold", now)
		}
	}
	if !r.Active() {
		t.Fatal("expected hold to be active while pressed")
	}
	if r.Sample(High, 4010) {
		t.Fatal("reset fired on release")
	}
	if r.Active() {
		t.Error("expected hold to clear on release")
	}
}

func TestResetHoldFiresExactlyOncePerHold(t *testing.T) {
	r := NewResetHold(5000, High)

	fired := 0
	var firedAt Millis
	for now := Millis(100); now <= 12000; now += 10 {
		if r.Sample(Low, now) {
			fired++
			firedAt = now
		}
	}
	if fired != 1 {
		t.Fatalf("expected exactly 1 reset, got %d", fired)
	}
	if firedAt != 5100 {
		t.Errorf("fired at %d, want 5100", firedAt)
	}
}

func TestResetHoldReleaseRearms(t *testing.T) {
	r := NewResetHold(1000, High)

	r.Sample(Low, 0)
	r.Sample(Low, 999)
	r.Sample(High, 1000)
	if r.Sample(Low, 1500) {
		t.Fatal("fresh press should restart the timer")
	}
	if r.Sample(Low, 2499) {
		t.Fatal("fired before threshold of second hold")
	}
	if !r.Sample(Low, 2500) {
		t.Fatal("expected reset at threshold of second hold")
	}
}

func TestResetHoldIgnoresPressStartedBeforeBoot(t *testing.T) {
	r := NewResetHold(1000, Low)
	for now := Millis(0); now < 5000; now += 100 {
		if r.Sample(Low, now) {
			t.Fatal("hold that began before boot should not fire without a fresh edge")
		}
	}
}

func TestResetHoldAcrossClockWrap(t *testing.T) {
	r := NewResetHold(5000, High)
	start := Millis(0xFFFFF000) // 4096ms before wrap

	if r.Sample(Low, start) {
		t.Fatal("fired on press edge")
	}
	if r.Sample(Low, start+4999) {
		t.Fatal("fired before threshold across wrap")
	}
	if !r.Sample(Low, start+5000) {
		t.Fatal("expected reset at threshold across wrap")
	}
}

// fakeClock advances by step on every reading.
type fakeClock struct {
	now  Millis
	step Millis
}

func (c *fakeClock) read() Millis {
	v := c.now
	c.now += c.step
	return v
}

func TestSpinBootHold(t *testing.T) {
	tests := []struct {
		name    string
		pressed int // number of reads that report pressed
		want    HoldResult
	}{
		{"not pressed", 0, HoldNotPressed},
		{"released early", 10, HoldReleased},
		{"held past threshold", 1000, HoldExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reads := 0
			read := func() Level {
				reads++
				if reads <= tt.pressed {
					return Low
				}
				return High
			}
			clk := &fakeClock{step: 100}
			pauses := 0

			got := SpinBootHold(read, clk.read, func() { pauses++ }, 5000)
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
			if tt.want == HoldExpired && reads > 60 {
				t.Errorf("spin should stop at threshold, took %d reads", reads)
			}
		})
	}
}

func TestHoldResultString(t *testing.T) {
	if HoldExpired.String() != "expired" || HoldReleased.String() != "released" || HoldNotPressed.String() != "not-pressed" {
		t.Error("unexpected HoldResult strings")
	}
}
