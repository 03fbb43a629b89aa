package bridge

import (
	"log"
	"time"

	"github.com/sweeney/switch-bridge/internal/logic"
	"github.com/sweeney/switch-bridge/internal/mqtt"
	"github.com/sweeney/switch-bridge/internal/status"
	"github.com/sweeney/switch-bridge/internal/store"
	"github.com/sweeney/switch-bridge/internal/wifi"
)

// statusRefresh bounds how often unchanged state is copied to the tracker.
const statusRefresh logic.Millis = 1000

// Config holds the controller settings.
type Config struct {
	// Names holds one display name per button. Its length is the switch count.
	Names []string
	// Pins holds the GPIO line of each button, for logging.
	Pins []int

	Debounce logic.Millis
	// ResetHold is the factory reset threshold. Zero means no reset input.
	ResetHold logic.Millis

	HealthInterval  logic.Millis
	HealthThreshold int

	// Heartbeat is the lifecycle heartbeat interval. Zero disables it.
	Heartbeat logic.Millis
}

// Deps are the collaborators the controller drives. Publisher, Supervisor
// and Tracker may be nil.
type Deps struct {
	Protocol   Protocol
	Store      *store.Store
	Publisher  mqtt.Publisher
	Supervisor *wifi.Supervisor
	Tracker    *status.Tracker
	// WallClock stamps published events. Defaults to time.Now.
	WallClock func() time.Time
}

// Controller runs one iteration of the control loop per Step call.
type Controller struct {
	cfg  Config
	deps Deps

	values  []bool
	toggles []int

	engine   *logic.Engine
	reset    *logic.ResetHold
	watchdog *logic.Watchdog
	beat     *logic.Heartbeat

	restart *RestartRequest

	dirty       bool
	lastRefresh logic.Millis
}

// New builds a controller. initial holds the boot levels: one per button,
// followed by the reset input when cfg.ResetHold is set. The saved toggle
// values are loaded and pushed to the protocol layer, so the accessory tree
// must already exist.
func New(cfg Config, deps Deps, initial []logic.Level, now logic.Millis) *Controller {
	if deps.WallClock == nil {
		deps.WallClock = time.Now
	}
	n := len(cfg.Names)

	c := &Controller{
		cfg:      cfg,
		deps:     deps,
		toggles:  make([]int, n),
		watchdog: logic.NewWatchdog(cfg.HealthInterval, cfg.HealthThreshold, now),
		beat:     logic.NewHeartbeat(cfg.Heartbeat, now),
		dirty:    true,
	}

	inputs := make([]logic.Input, n)
	for i := range inputs {
		inputs[i] = logic.Input{Handler: c}
		if i < len(cfg.Pins) {
			inputs[i].Pin = cfg.Pins[i]
		}
	}
	c.engine = logic.NewEngine(inputs, cfg.Debounce, initial)

	if cfg.ResetHold > 0 {
		lvl := logic.High
		if n < len(initial) {
			lvl = initial[n]
		}
		c.reset = logic.NewResetHold(cfg.ResetHold, lvl)
	}

	c.values = deps.Store.Load(n)
	for i, on := range c.values {
		deps.Protocol.SetSwitch(i, on)
	}
	log.Printf("bridge: restored %d switches: %v", n, c.values)

	if deps.Supervisor != nil {
		deps.Supervisor.Start(now)
	}
	return c
}

// Values returns a copy of the toggle values.
func (c *Controller) Values() []bool {
	return append([]bool(nil), c.values...)
}

// Pending returns the restart request, or nil.
func (c *Controller) Pending() *RestartRequest {
	return c.restart
}

// Watchdog exposes the health watchdog for status reporting.
func (c *Controller) Watchdog() *logic.Watchdog {
	return c.watchdog
}

// Step runs one loop iteration with the levels read at now and returns the
// pending restart request, if any. Once a restart is pending no further
// work is done.
func (c *Controller) Step(now logic.Millis, levels []logic.Level) *RestartRequest {
	if c.restart != nil {
		return c.restart
	}

	c.applyRemote(now)

	n := c.engine.Len()
	if len(levels) > n {
		c.engine.SampleAll(levels[:n], now)
	} else {
		c.engine.SampleAll(levels, now)
	}

	if c.reset != nil && n < len(levels) {
		if c.reset.Sample(levels[n], now) {
			c.factoryReset(now)
			return c.restart
		}
	}

	if c.deps.Supervisor != nil && c.deps.Supervisor.Check(now) {
		c.requestRestart(ReasonWiFiRecovered, now)
		return c.restart
	}

	if c.watchdog.Due(now) {
		c.checkHealth(now)
		if c.restart != nil {
			return c.restart
		}
	}

	if c.beat.Check(now) {
		c.publishStatus("HEARTBEAT", "")
	}

	c.refresh(now)
	return nil
}

// OnToggle flips switch i after a completed button press.
func (c *Controller) OnToggle(i int) {
	c.values[i] = !c.values[i]
	c.deps.Protocol.SetSwitch(i, c.values[i])
	c.commit(i, logic.SourceButton)
}

func (c *Controller) applyRemote(now logic.Millis) {
	for _, w := range c.deps.Protocol.Remote() {
		c.watchdog.Observe(now)
		if w.Index < 0 || w.Index >= len(c.values) {
			log.Printf("bridge: ignoring remote write to switch %d", w.Index)
			continue
		}
		if c.values[w.Index] == w.On {
			continue
		}
		c.values[w.Index] = w.On
		c.commit(w.Index, logic.SourceRemote)
	}
}

// commit persists and publishes a change to switch i.
func (c *Controller) commit(i int, src logic.Source) {
	c.toggles[i]++
	c.dirty = true

	if err := c.deps.Store.Save(c.values); err != nil {
		log.Printf("store: save failed: %v", err)
	}

	if c.deps.Publisher != nil {
		ev := logic.ToggleEvent{
			Timestamp: c.deps.WallClock(),
			Index:     i,
			Name:      c.name(i),
			On:        c.values[i],
			Source:    src,
		}
		if err := c.deps.Publisher.PublishToggle(ev); err != nil {
			log.Printf("mqtt: publish toggle failed: %v", err)
		}
	}

	log.Printf("bridge: %s -> %s (%s)", c.name(i), logic.StateString(c.values[i]), src)
}

func (c *Controller) factoryReset(now logic.Millis) {
	log.Printf("reset: held for %dms, clearing pairings", c.reset.Threshold())
	if err := c.deps.Protocol.ResetPairing(); err != nil {
		log.Printf("reset: clear pairings failed: %v", err)
	}
	c.requestRestart(ReasonFactoryReset, now)
}

func (c *Controller) checkHealth(now logic.Millis) {
	clients := c.deps.Protocol.ConnectedClients()
	v := c.watchdog.Evaluate(now, clients)
	c.dirty = true

	switch v {
	case logic.VerdictAnnounce:
		log.Printf("watchdog: no clients (%d/%d), re-announcing", c.watchdog.Unhealthy(), c.watchdog.Threshold())
		if err := c.deps.Protocol.Announce(); err != nil {
			log.Printf("watchdog: announce failed: %v", err)
		}
	case logic.VerdictRestart:
		log.Printf("watchdog: no clients for %d windows", c.watchdog.Threshold())
		c.requestRestart(ReasonWatchdog, now)
	}
}

func (c *Controller) requestRestart(reason string, now logic.Millis) {
	if c.restart != nil {
		return
	}
	c.restart = &RestartRequest{Reason: reason, At: now}
	log.Printf("bridge: restart requested: %s", reason)
}

// Started publishes the STARTUP lifecycle event.
func (c *Controller) Started() {
	c.refresh(0)
	c.publishStatus("STARTUP", "")
}

// Shutdown flushes the toggle values and publishes the final lifecycle
// event. event is "RESTART" or "SHUTDOWN". Call it once before the process
// exits or restarts.
func (c *Controller) Shutdown(event, reason string) {
	if err := c.deps.Store.Save(c.values); err != nil {
		log.Printf("store: final save failed: %v", err)
	}
	c.refresh(0)
	c.publishStatus(event, reason)
}

func (c *Controller) publishStatus(event, reason string) {
	if c.deps.Publisher == nil {
		return
	}
	se := mqtt.SystemEvent{
		Timestamp: c.deps.WallClock(),
		Event:     event,
		Reason:    reason,
	}
	if c.deps.Tracker != nil {
		se.RawPayload = status.FormatStatusEvent(c.deps.Tracker.Snapshot(), event, reason)
	}
	if err := c.deps.Publisher.PublishSystem(se); err != nil {
		log.Printf("mqtt: publish %s failed: %v", event, err)
	}
}

// refresh copies state to the tracker when it changed, and at most once per
// statusRefresh otherwise. A zero now forces the copy.
func (c *Controller) refresh(now logic.Millis) {
	t := c.deps.Tracker
	if t == nil {
		return
	}
	if !c.dirty && now != 0 && logic.Since(now, c.lastRefresh) < statusRefresh {
		return
	}
	c.dirty = false
	c.lastRefresh = now

	switches := make([]status.SwitchInfo, len(c.values))
	for i, on := range c.values {
		switches[i] = status.SwitchInfo{Name: c.name(i), On: on, Toggles: c.toggles[i]}
	}
	t.UpdateSwitches(switches)

	t.SetHAP(status.HAPInfo{
		Clients:   c.deps.Protocol.ConnectedClients(),
		Unhealthy: c.watchdog.Unhealthy(),
		Threshold: c.watchdog.Threshold(),
	})

	if s := c.deps.Supervisor; s != nil {
		info := &status.WiFiInfo{
			SSID:           s.SSID(),
			Status:         s.Status().String(),
			Retries:        s.Retries(),
			RestartPending: s.RestartPending(),
		}
		if l := s.Lock(); l != nil {
			info.Lock = l.String()
		}
		t.SetWiFi(info)
	}

	if cs, ok := c.deps.Publisher.(mqtt.ConnectionStatus); ok {
		t.SetMQTTConnected(cs.IsConnected())
	}
}

func (c *Controller) name(i int) string {
	if i < len(c.cfg.Names) && c.cfg.Names[i] != "" {
		return c.cfg.Names[i]
	}
	return "switch"
}
