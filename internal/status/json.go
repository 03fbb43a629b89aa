package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/switch-bridge/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Switches      []SwitchJSON `json:"switches"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	HAP           HAPJSON      `json:"hap"`
	WiFi          *WiFiJSON    `json:"wifi,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SwitchJSON is the JSON representation of one switch.
type SwitchJSON struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	State   string `json:"state"`
	Toggles int    `json:"toggles"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// HAPJSON reports protocol health.
type HAPJSON struct {
	Port      int `json:"port"`
	Clients   int `json:"clients"`
	Unhealthy int `json:"unhealthy_windows"`
	Threshold int `json:"restart_threshold"`
}

// WiFiJSON is the JSON representation of the connectivity supervisor.
type WiFiJSON struct {
	SSID           string `json:"ssid"`
	Status         string `json:"status"`
	Lock           string `json:"lock,omitempty"`
	Retries        int    `json:"retries"`
	RestartPending bool   `json:"restart_pending"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs          int64  `json:"poll_ms"`
	DebounceMs      int64  `json:"debounce_ms"`
	ResetHoldMs     int64  `json:"reset_hold_ms"`
	HeartbeatMs     int64  `json:"heartbeat_ms"`
	HealthCheckMs   int64  `json:"health_check_ms"`
	HealthThreshold int    `json:"health_threshold"`
	Broker          string `json:"broker"`
	HTTPAddr        string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	switches := make([]SwitchJSON, len(snap.Switches))
	for i, sw := range snap.Switches {
		switches[i] = SwitchJSON{Index: i, Name: sw.Name, State: logic.StateString(sw.On), Toggles: sw.Toggles}
	}

	inner := StatusInner{
		Switches:      switches,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		HAP: HAPJSON{
			Port:      snap.Config.HAPPort,
			Clients:   snap.HAP.Clients,
			Unhealthy: snap.HAP.Unhealthy,
			Threshold: snap.HAP.Threshold,
		},
		Config: ConfigJSON{
			PollMs:          snap.Config.PollMs,
			DebounceMs:      snap.Config.DebounceMs,
			ResetHoldMs:     snap.Config.ResetHoldMs,
			HeartbeatMs:     snap.Config.HeartbeatMs,
			HealthCheckMs:   snap.Config.HealthCheckMs,
			HealthThreshold: snap.Config.HealthThreshold,
			Broker:          snap.Config.Broker,
			HTTPAddr:        snap.Config.HTTPAddr,
		},
	}

	if snap.WiFi != nil {
		inner.WiFi = &WiFiJSON{
			SSID:           snap.WiFi.SSID,
			Status:         snap.WiFi.Status,
			Lock:           snap.WiFi.Lock,
			Retries:        snap.WiFi.Retries,
			RestartPending: snap.WiFi.RestartPending,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
