// Package wifi keeps the bridge associated with its access point. The
// Supervisor owns the retry and recovery policy; the Network interface is the
// underlying Wi-Fi stack.
package wifi

import (
	"fmt"
	"net"
)

// Status is the link state reported by the network stack.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// AccessPoint is one scan result.
type AccessPoint struct {
	SSID    string
	BSSID   [6]byte
	Channel int
}

// Lock pins connection attempts to one access point. A nil *Lock means
// connections are by SSID only.
type Lock struct {
	BSSID   [6]byte
	Channel int
}

func (l *Lock) String() string {
	if l == nil {
		return "none"
	}
	return fmt.Sprintf("%s ch%d", net.HardwareAddr(l.BSSID[:]), l.Channel)
}

// Network is the Wi-Fi stack the supervisor drives.
type Network interface {
	// Scan returns all visible access points.
	Scan() ([]AccessPoint, error)
	// Begin starts associating with ssid. A non-nil lock targets that
	// specific access point.
	Begin(ssid, password string, lock *Lock) error
	// Status reports the current link state.
	Status() (Status, error)
	// Reconnect retries the last connection.
	Reconnect() error
	// Disconnect drops the link, optionally forgetting the stored profile.
	Disconnect(erase bool) error
}

// ChannelForFrequency maps a centre frequency in MHz to its 802.11 channel
// number. It returns 0 for frequencies it does not recognise.
func ChannelForFrequency(mhz uint32) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return int(mhz-2407) / 5
	case mhz >= 5160 && mhz <= 5885:
		return int(mhz-5000) / 5
	case mhz >= 5955 && mhz <= 7115:
		return int(mhz-5950) / 5
	}
	return 0
}
