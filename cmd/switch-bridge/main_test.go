package main

import (
	"errors"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/switch-bridge/internal/bridge"
	"github.com/sweeney/switch-bridge/internal/gpio"
	"github.com/sweeney/switch-bridge/internal/hap"
	"github.com/sweeney/switch-bridge/internal/logic"
	"github.com/sweeney/switch-bridge/internal/mqtt"
	"github.com/sweeney/switch-bridge/internal/store"
)

func TestParsePins(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"5,6,13,19", []int{5, 6, 13, 19}, false},
		{" 17 , 27 ", []int{17, 27}, false},
		{"4,", []int{4}, false},
		{"", nil, true},
		{"5,x", nil, true},
		{"5,-1", nil, true},
		{"5,5", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePins(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err: got %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestJoinPinsRoundTrip(t *testing.T) {
	s := joinPins(gpio.DefaultButtonPins)
	if s != "5,6,13,19" {
		t.Errorf("joinPins: got %q", s)
	}
	pins, err := parsePins(s)
	if err != nil || len(pins) != len(gpio.DefaultButtonPins) {
		t.Errorf("default pins do not parse back: %v %v", pins, err)
	}
}

func TestSignalName(t *testing.T) {
	if got := signalName(syscall.SIGINT); got != "SIGINT" {
		t.Errorf("SIGINT: got %q", got)
	}
	if got := signalName(syscall.SIGTERM); got != "SIGTERM" {
		t.Errorf("SIGTERM: got %q", got)
	}
	if got := signalName(syscall.SIGHUP); got != "UNKNOWN" {
		t.Errorf("SIGHUP: got %q", got)
	}
}

func TestNewRestarter(t *testing.T) {
	if r, err := newRestarter("exec"); err != nil {
		t.Errorf("exec: %v", err)
	} else if _, ok := r.(*bridge.ExecRestarter); !ok {
		t.Errorf("exec: got %T", r)
	}
	if r, err := newRestarter("exit"); err != nil {
		t.Errorf("exit: %v", err)
	} else if _, ok := r.(*bridge.ExitRestarter); !ok {
		t.Errorf("exit: got %T", r)
	}
	if _, err := newRestarter("reboot"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestResetHoldDisabledWithoutPin(t *testing.T) {
	if got := resetHold(options{resetPin: -1, resetHold: 5 * time.Second}); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
	if got := resetHold(options{resetPin: 26, resetHold: 5 * time.Second}); got != 5000 {
		t.Errorf("got %d, want 5000", got)
	}
}

// --- runLoop tests ---

// stepClock returns a Clock that advances by step on every call.
// Not safe for concurrent use (only called from runLoop's goroutine).
func stepClock(step logic.Millis) logic.Clock {
	var now logic.Millis
	return func() logic.Millis {
		t := now
		now += step
		return t
	}
}

// repeat returns n copies of levels.
func repeat(levels string, n int) [][]logic.Level {
	out := make([][]logic.Level, n)
	for i := range out {
		out[i] = gpio.Levels(levels)
	}
	return out
}

type loopFixture struct {
	proto *hap.Fake
	pub   *mqtt.FakePublisher
	mem   *store.MemMedium
	ctrl  *bridge.Controller
}

func newLoopFixture(cfg bridge.Config) *loopFixture {
	n := len(cfg.Names)
	f := &loopFixture{
		proto: hap.NewFake(n),
		pub:   mqtt.NewFakePublisher(),
		mem:   store.NewMemMedium(),
	}
	f.proto.Clients = 1
	f.ctrl = bridge.New(cfg, bridge.Deps{
		Protocol:  f.proto,
		Store:     store.New(f.mem),
		Publisher: f.pub,
	}, nil, 0)
	return f
}

func loopConfig(n int) bridge.Config {
	return bridge.Config{
		Names:           hap.DefaultSwitchNames(n),
		Debounce:        logic.DefaultDebounceWindow,
		ResetHold:       logic.DefaultFactoryHold,
		HealthInterval:  logic.DefaultHealthInterval,
		HealthThreshold: logic.DefaultHealthThreshold,
	}
}

// drive runs runLoop for nTicks and then sends signal (if non-nil).
func drive(t *testing.T, reader gpio.Reader, ctrl *bridge.Controller, clock logic.Clock, nTicks int, signal os.Signal) *bridge.RestartRequest {
	t.Helper()
	tick := make(chan time.Time)
	sig := make(chan os.Signal, 1)

	done := make(chan *bridge.RestartRequest, 1)
	go func() {
		done <- runLoop(reader, ctrl, clock, tick, sig)
	}()

	for i := 0; i < nTicks; i++ {
		select {
		case tick <- time.Time{}:
		case req := <-done:
			return req
		}
	}
	if signal != nil {
		sig <- signal
	}
	return <-done
}

func TestRunLoopButtonPress(t *testing.T) {
	f := newLoopFixture(loopConfig(2))
	samples := append(repeat("111", 4), repeat("011", 20)...)
	samples = append(samples, repeat("111", 20)...)
	reader := gpio.NewFakeReader(samples)

	req := drive(t, reader, f.ctrl, stepClock(5), len(samples), syscall.SIGTERM)
	if req != nil {
		t.Fatalf("unexpected restart: %+v", req)
	}

	if len(f.pub.Toggles) != 1 || f.pub.Toggles[0].Index != 0 || !f.pub.Toggles[0].On {
		t.Fatalf("expected switch 0 on, got %+v", f.pub.Toggles)
	}
	names := f.pub.SystemEventNames()
	if len(names) != 1 || names[0] != "SHUTDOWN" {
		t.Fatalf("expected only SHUTDOWN, got %v", names)
	}
	if f.pub.SystemEvents[0].Reason != "SIGTERM" {
		t.Errorf("reason: got %q, want SIGTERM", f.pub.SystemEvents[0].Reason)
	}
}

func TestRunLoopGPIOErrorRecovery(t *testing.T) {
	f := newLoopFixture(loopConfig(1))
	reader := &faultReader{
		inner:      gpio.NewFakeReader(append(repeat("01", 20), repeat("11", 20)...)),
		faultStart: 2,
		faultEnd:   6,
	}

	drive(t, reader, f.ctrl, stepClock(5), 44, syscall.SIGINT)

	if len(f.pub.Toggles) != 1 {
		t.Errorf("expected toggle after read errors, got %d", len(f.pub.Toggles))
	}
	names := f.pub.SystemEventNames()
	if len(names) != 1 || names[0] != "SHUTDOWN" || f.pub.SystemEvents[0].Reason != "SIGINT" {
		t.Errorf("unexpected lifecycle events: %v", f.pub.SystemEvents)
	}
}

func TestRunLoopFactoryResetReturnsRestart(t *testing.T) {
	f := newLoopFixture(loopConfig(1))
	reader := gpio.NewFakeReader(repeat("10", 1))

	// 100ms per tick; the hold crosses 5s on tick 50.
	req := drive(t, reader, f.ctrl, stepClock(100), 200, nil)
	if req == nil {
		t.Fatal("expected restart request")
	}
	if req.Reason != bridge.ReasonFactoryReset {
		t.Errorf("reason: got %q", req.Reason)
	}
	if f.proto.Resets != 1 {
		t.Errorf("ResetPairing calls: got %d, want 1", f.proto.Resets)
	}
	names := f.pub.SystemEventNames()
	if len(names) != 1 || names[0] != "RESTART" {
		t.Errorf("expected RESTART lifecycle event, got %v", names)
	}
}

func TestRunLoopWatchdogRestart(t *testing.T) {
	cfg := loopConfig(1)
	cfg.HealthInterval = 1000
	f := newLoopFixture(cfg)
	f.proto.Clients = 0
	reader := gpio.NewFakeReader(repeat("11", 1))

	req := drive(t, reader, f.ctrl, stepClock(100), 100, nil)
	if req == nil || req.Reason != bridge.ReasonWatchdog {
		t.Fatalf("expected watchdog restart, got %+v", req)
	}
	if f.proto.Announces != logic.DefaultHealthThreshold-1 {
		t.Errorf("announces: got %d, want %d", f.proto.Announces, logic.DefaultHealthThreshold-1)
	}
}

// faultReader wraps a FakeReader and returns errors for a range of Read() calls.
type faultReader struct {
	inner      *gpio.FakeReader
	call       int
	faultStart int // first call index that returns error (inclusive)
	faultEnd   int // last call index that returns error (exclusive)
}

func (r *faultReader) Read() ([]logic.Level, error) {
	i := r.call
	r.call++
	if i >= r.faultStart && i < r.faultEnd {
		return nil, errors.New("gpio fault")
	}
	return r.inner.Read()
}

func (r *faultReader) Close() error { return r.inner.Close() }
