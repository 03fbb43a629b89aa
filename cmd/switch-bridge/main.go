// Command switch-bridge exposes GPIO push buttons as HomeKit switches and
// publishes every toggle to MQTT.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sweeney/switch-bridge/internal/bridge"
	"github.com/sweeney/switch-bridge/internal/gpio"
	"github.com/sweeney/switch-bridge/internal/hap"
	"github.com/sweeney/switch-bridge/internal/logic"
	"github.com/sweeney/switch-bridge/internal/mqtt"
	"github.com/sweeney/switch-bridge/internal/status"
	"github.com/sweeney/switch-bridge/internal/store"
	"github.com/sweeney/switch-bridge/internal/web"
	"github.com/sweeney/switch-bridge/internal/wifi"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// envWiFiPassword keeps the passphrase out of the process list.
const envWiFiPassword = "BRIDGE_WIFI_PASSWORD"

// bootPause is the poll interval of the boot-time reset hold spin.
const bootPause = 10 * time.Millisecond

type options struct {
	poll      time.Duration
	debounce  time.Duration
	pins      []int
	resetPin  int
	resetHold time.Duration

	wifiIface    string
	wifiSSID     string
	wifiPassword string
	wifiRetry    time.Duration
	wifiAttempts int

	hkCheck     time.Duration
	hkThreshold int

	hapPort    int
	hapPin     string
	hapSetupID string
	hapStore   string

	statePath string
	broker    string
	heartbeat time.Duration
	httpAddr  string
	restart   string
}

func main() {
	var o options
	var pins string

	flag.DurationVar(&o.poll, "poll", 5*time.Millisecond, "GPIO polling interval")
	flag.DurationVar(&o.debounce, "debounce", 50*time.Millisecond, "Debounce window")
	flag.StringVar(&pins, "pins", joinPins(gpio.DefaultButtonPins), "Comma separated BCM pins of the buttons")
	flag.IntVar(&o.resetPin, "reset-pin", gpio.DefaultPinReset, "BCM pin of the factory reset button (-1 to disable)")
	flag.DurationVar(&o.resetHold, "reset-hold", 5*time.Second, "Hold time that triggers a factory reset")

	flag.StringVar(&o.wifiIface, "wifi-iface", "wlan0", "Wi-Fi interface managed by NetworkManager")
	flag.StringVar(&o.wifiSSID, "wifi-ssid", "", "Wi-Fi network to supervise (empty disables)")
	flag.DurationVar(&o.wifiRetry, "wifi-retry", 10*time.Second, "Wi-Fi link check and retry interval")
	flag.IntVar(&o.wifiAttempts, "wifi-attempts", wifi.DefaultConnectAttempts, "Boot-time link polls before giving up")

	flag.DurationVar(&o.hkCheck, "hk-check", 30*time.Second, "HomeKit health check interval")
	flag.IntVar(&o.hkThreshold, "hk-threshold", logic.DefaultHealthThreshold, "Unhealthy checks before a restart")

	flag.IntVar(&o.hapPort, "hap-port", 51826, "HAP server TCP port")
	flag.StringVar(&o.hapPin, "hap-pin", "00102003", "HomeKit setup code (8 digits)")
	flag.StringVar(&o.hapSetupID, "hap-setup-id", "SWBR", "HomeKit setup ID (4 characters)")
	flag.StringVar(&o.hapStore, "hap-store", "/var/lib/switch-bridge/hap", "HAP pairing store directory")

	flag.StringVar(&o.statePath, "state", "/var/lib/switch-bridge/switches.state", "Switch state file")
	flag.StringVar(&o.broker, "broker", "", "MQTT broker address (empty disables)")
	flag.DurationVar(&o.heartbeat, "heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	flag.StringVar(&o.httpAddr, "http", ":8080", "HTTP status address (empty to disable)")
	flag.StringVar(&o.restart, "restart", "exec", `Restart method: "exec" re-executes in place, "exit" exits with status 75`)

	flag.Parse()

	var err error
	if o.pins, err = parsePins(pins); err != nil {
		log.Fatalf("fatal: --pins: %v", err)
	}
	for _, p := range o.pins {
		if p == o.resetPin {
			log.Fatalf("fatal: pin %d is both a button and the reset pin", p)
		}
	}
	o.wifiPassword = os.Getenv(envWiFiPassword)

	if err := run(o); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(o options) error {
	restarter, err := newRestarter(o.restart)
	if err != nil {
		return err
	}

	// Cleanup runs in reverse order before exit or restart.
	var stops []func()
	shutdown := func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
		stops = nil
	}
	defer shutdown()

	lines := o.pins
	if o.resetPin >= 0 {
		lines = append(append([]int(nil), o.pins...), o.resetPin)
	}
	reader, err := gpio.NewRealReader(gpio.DefaultChip, lines)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	stops = append(stops, func() { reader.Close() })

	clock := logic.NewMonotonicClock(time.Now())

	names := hap.DefaultSwitchNames(len(o.pins))
	server := hap.NewServer(hap.Config{
		Name:         hap.UniqueName("Buttons", interfaceMAC(o.wifiIface)),
		SwitchNames:  names,
		Manufacturer: "sweeney",
		Model:        "switch-bridge",
		SerialPrefix: "SB",
		Firmware:     version,
		Pin:          o.hapPin,
		SetupID:      o.hapSetupID,
		Port:         o.hapPort,
		StoreDir:     o.hapStore,
	})

	// A reset button held through power-up is checked before anything
	// else starts.
	if o.resetPin >= 0 {
		n := len(o.pins)
		read := func() logic.Level {
			lv, err := reader.Read()
			if err != nil || n >= len(lv) {
				return logic.High
			}
			return lv[n]
		}
		res := logic.SpinBootHold(read, clock, func() { time.Sleep(bootPause) }, logic.DurationMillis(o.resetHold))
		if res != logic.HoldNotPressed {
			log.Printf("reset: boot hold %s", res)
		}
		if res == logic.HoldExpired {
			if err := server.ResetPairing(); err != nil {
				log.Printf("reset: clear pairings failed: %v", err)
			}
			shutdown()
			return restarter.Restart(bridge.ReasonFactoryReset)
		}
	}

	var supervisor *wifi.Supervisor
	if o.wifiSSID != "" {
		nm, err := wifi.NewNMNetwork(o.wifiIface)
		if err != nil {
			log.Printf("wifi: supervisor disabled: %v", err)
		} else {
			stops = append(stops, func() { nm.Close() })
			supervisor = wifi.NewSupervisor(nm, wifi.Config{
				SSID:            o.wifiSSID,
				Password:        o.wifiPassword,
				RetryInterval:   logic.DurationMillis(o.wifiRetry),
				ConnectAttempts: o.wifiAttempts,
				RestartGrace:    wifi.DefaultRestartGrace,
			})
			supervisor.Connect(time.Sleep)
		}
	}

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:          o.poll.Milliseconds(),
		DebounceMs:      o.debounce.Milliseconds(),
		ResetHoldMs:     o.resetHold.Milliseconds(),
		HeartbeatMs:     o.heartbeat.Milliseconds(),
		HealthCheckMs:   o.hkCheck.Milliseconds(),
		HealthThreshold: o.hkThreshold,
		HAPPort:         o.hapPort,
		Broker:          o.broker,
		HTTPAddr:        o.httpAddr,
	})

	deps := bridge.Deps{
		Protocol:   server,
		Store:      store.New(store.NewFileMedium(o.statePath)),
		Supervisor: supervisor,
		Tracker:    tracker,
	}
	if o.broker != "" {
		publisher, err := mqtt.NewRealPublisher(o.broker, mqttClientID())
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		stops = append(stops, func() { publisher.Close() })
		deps.Publisher = publisher
	}

	initial, err := reader.Read()
	if err != nil {
		log.Printf("gpio: boot read failed, assuming released: %v", err)
		initial = nil
	}

	ctrl := bridge.New(bridge.Config{
		Names:           names,
		Pins:            o.pins,
		Debounce:        logic.DurationMillis(o.debounce),
		ResetHold:       resetHold(o),
		HealthInterval:  logic.DurationMillis(o.hkCheck),
		HealthThreshold: o.hkThreshold,
		Heartbeat:       logic.DurationMillis(o.heartbeat),
	}, deps, initial, clock())

	if err := server.Start(context.Background()); err != nil {
		return fmt.Errorf("start hap: %w", err)
	}
	stops = append(stops, server.Stop)

	if o.httpAddr != "" {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			if err := web.New(o.httpAddr, tracker).Run(ctx); err != nil {
				log.Printf("http: %v", err)
			}
		}()
		stops = append(stops, cancel)
		log.Printf("http: status page on %s", o.httpAddr)
	}

	ctrl.Started()
	log.Printf("started: %d switches on pins %v, poll=%v debounce=%v hap=:%d broker=%q",
		len(o.pins), o.pins, o.poll, o.debounce, o.hapPort, o.broker)

	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	req := runLoop(reader, ctrl, clock, ticker.C, sigCh)
	shutdown()
	if req != nil {
		return restarter.Restart(req.Reason)
	}
	return nil
}

// runLoop drives the controller until a signal arrives or a restart is
// requested. The final lifecycle event has been published when it returns.
// It returns the restart request, or nil on a signal.
func runLoop(reader gpio.Reader, ctrl *bridge.Controller, clock logic.Clock, tick <-chan time.Time, sig <-chan os.Signal) *bridge.RestartRequest {
	for {
		select {
		case s := <-sig:
			name := signalName(s)
			log.Printf("received %v, shutting down", s)
			ctrl.Shutdown("SHUTDOWN", name)
			return nil

		case <-tick:
			levels, err := reader.Read()
			if err != nil {
				log.Printf("gpio read error: %v", err)
				continue
			}
			if req := ctrl.Step(clock(), levels); req != nil {
				ctrl.Shutdown("RESTART", req.Reason)
				return req
			}
		}
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

func resetHold(o options) logic.Millis {
	if o.resetPin < 0 {
		return 0
	}
	return logic.DurationMillis(o.resetHold)
}

func newRestarter(mode string) (bridge.Restarter, error) {
	switch mode {
	case "exec":
		return bridge.NewExecRestarter(), nil
	case "exit":
		return bridge.NewExitRestarter(), nil
	}
	return nil, fmt.Errorf("unknown --restart mode %q", mode)
}

// parsePins parses a comma separated list of BCM pin numbers.
func parsePins(s string) ([]int, error) {
	var pins []int
	seen := make(map[int]bool)
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		p, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad pin %q: %w", f, err)
		}
		if p < 0 {
			return nil, fmt.Errorf("bad pin %d", p)
		}
		if seen[p] {
			return nil, fmt.Errorf("pin %d listed twice", p)
		}
		seen[p] = true
		pins = append(pins, p)
	}
	if len(pins) == 0 {
		return nil, fmt.Errorf("no pins given")
	}
	return pins, nil
}

func joinPins(pins []int) string {
	s := make([]string, len(pins))
	for i, p := range pins {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ",")
}

func interfaceMAC(name string) net.HardwareAddr {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return ifi.HardwareAddr
}

func mqttClientID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "switch-bridge"
	}
	return "switch-bridge-" + host
}
