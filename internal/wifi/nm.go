package wifi

import (
	"errors"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/godbus/dbus/v5"
)

// NetworkManager D-Bus names.
const (
	nmDest         = "org.freedesktop.NetworkManager"
	nmPath         = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmIface        = "org.freedesktop.NetworkManager"
	nmDevice       = nmIface + ".Device"
	nmWireless     = nmDevice + ".Wireless"
	nmAccessPoint  = nmIface + ".AccessPoint"
	nmSettingsConn = nmIface + ".Settings.Connection"

	noObject = dbus.ObjectPath("/")

	profileID   = "switch-bridge"
	scanTimeout = 8 * time.Second
	scanPoll    = 250 * time.Millisecond
)

// NMNetwork drives a Wi-Fi device through NetworkManager on the system bus.
type NMNetwork struct {
	conn    *dbus.Conn
	iface   string
	device  dbus.ObjectPath
	profile dbus.ObjectPath

	// Access point objects from the last scan, by BSSID.
	aps map[[6]byte]dbus.ObjectPath
}

// NewNMNetwork connects to the system bus and resolves the device for iface.
func NewNMNetwork(iface string) (*NMNetwork, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}

	var dev dbus.ObjectPath
	err = conn.Object(nmDest, nmPath).Call(nmIface+".GetDeviceByIpIface", 0, iface).Store(&dev)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("find device %s: %w", iface, err)
	}

	return &NMNetwork{
		conn:   conn,
		iface:  iface,
		device: dev,
		aps:    make(map[[6]byte]dbus.ObjectPath),
	}, nil
}

// Close releases the bus connection.
func (n *NMNetwork) Close() error {
	return n.conn.Close()
}

func (n *NMNetwork) dev() dbus.BusObject {
	return n.conn.Object(nmDest, n.device)
}

// Scan requests a fresh scan, waits for it to finish and returns the
// visible access points.
func (n *NMNetwork) Scan() ([]AccessPoint, error) {
	dev := n.dev()
	before, _ := n.lastScan()

	if err := dev.Call(nmWireless+".RequestScan", 0, map[string]dbus.Variant{}).Err; err != nil {
		// NetworkManager refuses back-to-back scans; the cached list is
		// still usable.
		log.Printf("wifi: scan request on %s: %v", n.iface, err)
	} else {
		deadline := time.Now().Add(scanTimeout)
		for time.Now().Before(deadline) {
			if last, err := n.lastScan(); err == nil && last != before {
				break
			}
			time.Sleep(scanPoll)
		}
	}

	var paths []dbus.ObjectPath
	if err := dev.Call(nmWireless+".GetAllAccessPoints", 0).Store(&paths); err != nil {
		return nil, fmt.Errorf("list access points: %w", err)
	}

	aps := make([]AccessPoint, 0, len(paths))
	for _, p := range paths {
		ap, err := n.accessPoint(p)
		if err != nil {
			log.Printf("wifi: skipping %s: %v", p, err)
			continue
		}
		n.aps[ap.BSSID] = p
		aps = append(aps, ap)
	}
	return aps, nil
}

func (n *NMNetwork) lastScan() (int64, error) {
	v, err := n.dev().GetProperty(nmWireless + ".LastScan")
	if err != nil {
		return 0, err
	}
	last, _ := v.Value().(int64)
	return last, nil
}

func (n *NMNetwork) accessPoint(p dbus.ObjectPath) (AccessPoint, error) {
	obj := n.conn.Object(nmDest, p)

	ssidV, err := obj.GetProperty(nmAccessPoint + ".Ssid")
	if err != nil {
		return AccessPoint{}, fmt.Errorf("ssid: %w", err)
	}
	hwV, err := obj.GetProperty(nmAccessPoint + ".HwAddress")
	if err != nil {
		return AccessPoint{}, fmt.Errorf("hw address: %w", err)
	}
	freqV, err := obj.GetProperty(nmAccessPoint + ".Frequency")
	if err != nil {
		return AccessPoint{}, fmt.Errorf("frequency: %w", err)
	}

	ssid, _ := ssidV.Value().([]byte)
	hw, _ := hwV.Value().(string)
	freq, _ := freqV.Value().(uint32)

	mac, err := net.ParseMAC(hw)
	if err != nil || len(mac) != 6 {
		return AccessPoint{}, fmt.Errorf("bad hw address %q", hw)
	}
	ap := AccessPoint{SSID: string(ssid), Channel: ChannelForFrequency(freq)}
	copy(ap.BSSID[:], mac)
	return ap, nil
}

// Begin creates or updates the bridge's connection profile and activates it.
func (n *NMNetwork) Begin(ssid, password string, lock *Lock) error {
	settings := connectionSettings(ssid, password, lock)
	specific := noObject
	if lock != nil {
		if p, ok := n.aps[lock.BSSID]; ok {
			specific = p
		}
	}

	if n.profile != "" {
		err := n.conn.Object(nmDest, n.profile).Call(nmSettingsConn+".Update", 0, settings).Err
		if err == nil {
			return n.activate(specific)
		}
		log.Printf("wifi: update profile %s: %v, recreating", n.profile, err)
		n.profile = ""
	}

	var profile, active dbus.ObjectPath
	err := n.conn.Object(nmDest, nmPath).
		Call(nmIface+".AddAndActivateConnection", 0, settings, n.device, specific).
		Store(&profile, &active)
	if err != nil {
		return fmt.Errorf("add and activate: %w", err)
	}
	n.profile = profile
	return nil
}

func (n *NMNetwork) activate(specific dbus.ObjectPath) error {
	var active dbus.ObjectPath
	err := n.conn.Object(nmDest, nmPath).
		Call(nmIface+".ActivateConnection", 0, n.profile, n.device, specific).
		Store(&active)
	if err != nil {
		return fmt.Errorf("activate: %w", err)
	}
	return nil
}

// Status maps the device state to a link status.
func (n *NMNetwork) Status() (Status, error) {
	v, err := n.dev().GetProperty(nmDevice + ".State")
	if err != nil {
		return Disconnected, fmt.Errorf("device state: %w", err)
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return Disconnected, fmt.Errorf("device state: unexpected type %T", v.Value())
	}
	return deviceStateStatus(state), nil
}

// Reconnect re-activates the bridge's profile.
func (n *NMNetwork) Reconnect() error {
	if n.profile == "" {
		return errors.New("no connection profile yet")
	}
	return n.activate(noObject)
}

// Disconnect deactivates the device, and deletes the profile if erase is set.
func (n *NMNetwork) Disconnect(erase bool) error {
	if err := n.dev().Call(nmDevice+".Disconnect", 0).Err; err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	if erase && n.profile != "" {
		if err := n.conn.Object(nmDest, n.profile).Call(nmSettingsConn+".Delete", 0).Err; err != nil {
			return fmt.Errorf("delete profile: %w", err)
		}
		n.profile = ""
	}
	return nil
}

// connectionSettings builds the a{sa{sv}} profile for NetworkManager.
func connectionSettings(ssid, password string, lock *Lock) map[string]map[string]dbus.Variant {
	wireless := map[string]dbus.Variant{
		"ssid": dbus.MakeVariant([]byte(ssid)),
		"mode": dbus.MakeVariant("infrastructure"),
	}
	if lock != nil {
		wireless["bssid"] = dbus.MakeVariant(append([]byte(nil), lock.BSSID[:]...))
		wireless["band"] = dbus.MakeVariant("bg")
		wireless["channel"] = dbus.MakeVariant(uint32(lock.Channel))
	}

	settings := map[string]map[string]dbus.Variant{
		"connection": {
			"id":          dbus.MakeVariant(profileID),
			"type":        dbus.MakeVariant("802-11-wireless"),
			"autoconnect": dbus.MakeVariant(false),
		},
		"802-11-wireless": wireless,
		"ipv4":            {"method": dbus.MakeVariant("auto")},
		"ipv6":            {"method": dbus.MakeVariant("auto")},
	}
	if password != "" {
		settings["802-11-wireless-security"] = map[string]dbus.Variant{
			"key-mgmt": dbus.MakeVariant("wpa-psk"),
			"psk":      dbus.MakeVariant(password),
		}
	}
	return settings
}

// deviceStateStatus maps an NMDeviceState value to a Status.
func deviceStateStatus(state uint32) Status {
	switch {
	case state == 100: // activated
		return Connected
	case state >= 40 && state <= 90: // prepare .. secondaries
		return Connecting
	}
	return Disconnected
}
