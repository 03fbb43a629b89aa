// Package status provides a thread-safe status tracker for the switch bridge.
// It is written by the control loop and read by HTTP handlers and the MQTT
// lifecycle payloads.
package status

import (
	"fmt"
	"sync"
	"time"
)

// SwitchInfo is the display state of one switch.
type SwitchInfo struct {
	Name    string
	On      bool
	Toggles int
}

// WiFiInfo contains connectivity supervisor state. This is a local copy to
// avoid importing internal/wifi from status.
type WiFiInfo struct {
	SSID           string
	Status         string
	Lock           string
	Retries        int
	RestartPending bool
}

// HAPInfo contains protocol health as seen by the watchdog.
type HAPInfo struct {
	Clients   int
	Unhealthy int
	Threshold int
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs          int64
	DebounceMs      int64
	ResetHoldMs     int64
	HeartbeatMs     int64
	HealthCheckMs   int64
	HealthThreshold int
	HAPPort         int
	Broker          string
	HTTPAddr        string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Switches      []SwitchInfo
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	WiFi          *WiFiInfo
	HAP           HAPInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Problems lists the conditions that make the bridge unhealthy. An empty
// result means healthy. MQTT is optional and never counts.
func (s Snapshot) Problems() []string {
	var out []string
	if s.HAP.Clients == 0 && s.HAP.Unhealthy > 0 {
		out = append(out, fmt.Sprintf("hap: no clients for %d/%d checks", s.HAP.Unhealthy, s.HAP.Threshold))
	}
	if s.WiFi != nil {
		if s.WiFi.Status != "connected" {
			out = append(out, "wifi: "+s.WiFi.Status)
		}
		if s.WiFi.RestartPending {
			out = append(out, "wifi: restart pending")
		}
	}
	return out
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateSwitches replaces the switch list. Called from the control loop.
func (t *Tracker) UpdateSwitches(switches []SwitchInfo) {
	cp := append([]SwitchInfo(nil), switches...)
	t.mu.Lock()
	t.snap.Switches = cp
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetWiFi sets the connectivity supervisor info. nil means no supervisor.
func (t *Tracker) SetWiFi(info *WiFiInfo) {
	var cp *WiFiInfo
	if info != nil {
		v := *info
		cp = &v
	}
	t.mu.Lock()
	t.snap.WiFi = cp
	t.mu.Unlock()
}

// SetHAP sets the protocol health info.
func (t *Tracker) SetHAP(info HAPInfo) {
	t.mu.Lock()
	t.snap.HAP = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Switches = append([]SwitchInfo(nil), t.snap.Switches...)
	if t.snap.WiFi != nil {
		w := *t.snap.WiFi
		s.WiFi = &w
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
