// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/switch-bridge/internal/logic"
)

// Topic is the MQTT topic for switch toggle events.
const Topic = "home/switch-bridge/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/switch-bridge/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// PublishToggle sends a switch toggle to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishToggle(event logic.ToggleEvent) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, restart, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "RESTART", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "watchdog", "wifi-recovered"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Switch SwitchPayload `json:"switch"`
}

// SwitchPayload contains the toggle details.
type SwitchPayload struct {
	Timestamp string `json:"timestamp"`
	Index     int    `json:"index"`
	Name      string `json:"name"`
	State     string `json:"state"`
	Source    string `json:"source"`
}

// FormatPayload creates the JSON payload for a toggle event.
func FormatPayload(event logic.ToggleEvent) ([]byte, error) {
	payload := Payload{
		Switch: SwitchPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Index:     event.Index,
			Name:      event.Name,
			State:     logic.StateString(event.On),
			Source:    string(event.Source),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// Message is a serialized event routed to its topic.
type Message struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

// ToggleMessage routes a toggle event at QoS 0, never retained.
func ToggleMessage(event logic.ToggleEvent) (Message, error) {
	payload, err := FormatPayload(event)
	if err != nil {
		return Message{}, fmt.Errorf("format payload: %w", err)
	}
	return Message{Topic: Topic, Payload: payload}, nil
}

// SystemMessage routes a lifecycle event at QoS 1.
func SystemMessage(event SystemEvent) (Message, error) {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return Message{}, fmt.Errorf("format system payload: %w", err)
	}
	return Message{Topic: TopicSystem, Payload: payload, QoS: 1, Retained: event.Retained}, nil
}
