package hap

import (
	"context"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUniqueName(t *testing.T) {
	mac, _ := net.ParseMAC("b8:27:eb:12:ab:0c")
	if got := UniqueName("Buttons", mac); got != "Buttons_12AB0C" {
		t.Errorf("got %q, want Buttons_12AB0C", got)
	}
	if got := UniqueName("Buttons", nil); got != "Buttons" {
		t.Errorf("no mac: got %q, want Buttons", got)
	}
}

func TestDefaultSwitchNames(t *testing.T) {
	names := DefaultSwitchNames(4)
	if len(names) != 4 || names[0] != "Button 1" || names[3] != "Button 4" {
		t.Errorf("got %v", names)
	}
}

func TestNewServerBuildsTree(t *testing.T) {
	s := NewServer(Config{
		Name:         "Buttons",
		SwitchNames:  DefaultSwitchNames(3),
		Manufacturer: "sweeney",
		Model:        "switch-bridge",
		SerialPrefix: "BTN",
		Firmware:     "1.0",
		Pin:          "45927836",
		SetupID:      "BTN4",
		Port:         51826,
		StoreDir:     t.TempDir(),
	})
	if s.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", s.Len())
	}
	if s.bridge.A.Id != 1 {
		t.Errorf("bridge id: got %d, want 1", s.bridge.A.Id)
	}
	for i, sw := range s.switches {
		if sw.A.Id != uint64(i+2) {
			t.Errorf("switch %d id: got %d, want %d", i, sw.A.Id, i+2)
		}
	}

	s.SetSwitch(1, true)
	if !s.switches[1].Switch.On.Value() {
		t.Error("SetSwitch did not update the characteristic")
	}
	s.SetSwitch(7, true) // out of range is ignored

	if w := s.Remote(); len(w) != 0 {
		t.Errorf("Remote: got %v, want nothing queued", w)
	}
}

func TestFake(t *testing.T) {
	f := NewFake(2)
	f.SetSwitch(1, true)
	f.SetSwitch(5, true)
	if !f.Values[1] || len(f.Notifications) != 1 {
		t.Errorf("SetSwitch: values=%v notifications=%v", f.Values, f.Notifications)
	}

	f.Write(0, true)
	if w := f.Remote(); len(w) != 1 || w[0] != (RemoteWrite{Index: 0, On: true}) {
		t.Errorf("Remote: got %v", w)
	}
	if w := f.Remote(); len(w) != 0 {
		t.Errorf("second Remote: got %v, want empty", w)
	}
}

func testServer(t *testing.T, pin string, port int) *Server {
	t.Helper()
	return NewServer(Config{
		Name:        "Buttons",
		SwitchNames: DefaultSwitchNames(2),
		Pin:         pin,
		SetupID:     "BTN4",
		Port:        port,
		StoreDir:    t.TempDir(),
	})
}

func TestStartReportsEarlyFailure(t *testing.T) {
	s := testServer(t, "12345678", 0)
	err := s.Start(context.Background())
	if err == nil {
		s.Stop()
		t.Fatal("expected Start to fail with an insecure pin")
	}
	if !strings.Contains(err.Error(), "insecure pin") {
		t.Errorf("unexpected error: %v", err)
	}

	// A failed start leaves the server stopped, so Announce tries again.
	if err := s.Announce(); err == nil {
		s.Stop()
		t.Error("expected Announce to surface the same failure")
	}
}

func TestStartReportsBusyPort(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	s := testServer(t, "45927836", ln.Addr().(*net.TCPAddr).Port)
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("expected Start to fail on a busy port")
	}
}

func TestIdentifyIsHandled(t *testing.T) {
	s := testServer(t, "45927836", 51826)
	req := httptest.NewRequest("POST", "/identify", nil)

	s.bridge.A.IdentifyFunc(req)
	for _, sw := range s.switches {
		if sw.A.IdentifyFunc == nil {
			t.Fatal("switch has no identify handler")
		}
		sw.A.IdentifyFunc(req)
	}
	if n := s.identifies.Load(); n != 3 {
		t.Errorf("identifies: got %d, want 3", n)
	}
}
