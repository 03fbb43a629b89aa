// Package hap exposes the switches to HomeKit controllers. It is the
// protocol layer of the bridge: accessory tree, value notification, remote
// writes, client counting, re-announcement and pairing reset.
package hap

import (
	"fmt"
	"net"
)

// RemoteWrite is a value set by a controller. Writes are queued by the HAP
// server goroutines and applied by the control loop.
type RemoteWrite struct {
	Index int
	On    bool
}

// Config describes the accessory tree and server.
type Config struct {
	// Name is the bridge name shown in the Home app.
	Name string
	// SwitchNames names each switch; its length sets the switch count.
	SwitchNames []string

	Manufacturer string
	Model        string
	SerialPrefix string
	Firmware     string

	// Pin is the 8 digit setup code, without dashes.
	Pin string
	// SetupID is the 4 character setup identifier.
	SetupID string
	// Port is the TCP port the HAP server listens on.
	Port int
	// StoreDir holds pairing and accessory state.
	StoreDir string
}

// DefaultSwitchNames returns "Button 1".."Button n".
func DefaultSwitchNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Button %d", i+1)
	}
	return names
}

// UniqueName appends the last three bytes of mac to base so several bridges
// on one network are distinguishable.
func UniqueName(base string, mac net.HardwareAddr) string {
	if len(mac) < 3 {
		return base
	}
	n := len(mac)
	return fmt.Sprintf("%s_%02X%02X%02X", base, mac[n-3], mac[n-2], mac[n-1])
}
