// Package bridge composes the control core: debounced buttons, the reset
// hold, the toggle store, the connectivity supervisor and the health
// watchdog. Everything here runs on the single control loop goroutine.
package bridge

import (
	"github.com/sweeney/switch-bridge/internal/hap"
	"github.com/sweeney/switch-bridge/internal/logic"
)

// Protocol is the accessory protocol layer the bridge drives.
type Protocol interface {
	// SetSwitch updates a characteristic and notifies subscribers.
	SetSwitch(index int, on bool)
	// Remote drains writes made by controllers since the last call.
	Remote() []hap.RemoteWrite
	// ConnectedClients returns the number of active controller sessions.
	ConnectedClients() int
	// Announce re-publishes the discovery record.
	Announce() error
	// ResetPairing irreversibly removes all pairings.
	ResetPairing() error
}

// Restarter replaces the running process. It does not return on success.
type Restarter interface {
	Restart(reason string) error
}

// Restart reasons.
const (
	ReasonFactoryReset  = "factory-reset"
	ReasonWatchdog      = "watchdog"
	ReasonWiFiRecovered = "wifi-recovered"
)

// RestartRequest is the single pending restart effect. Once set it is never
// replaced; the first reason wins.
type RestartRequest struct {
	Reason string
	At     logic.Millis
}
