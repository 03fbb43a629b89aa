package wifi

import (
	"log"
	"time"

	"github.com/sweeney/switch-bridge/internal/logic"
)

// Defaults for the supervisor.
const (
	DefaultRetryInterval   logic.Millis = 10000
	DefaultRestartGrace    logic.Millis = 1000
	DefaultConnectAttempts              = 40
	DefaultAttemptPause                 = 500 * time.Millisecond
	// DefaultMaxChannel keeps association on the 2.4 GHz band.
	DefaultMaxChannel = 13
)

// Config holds the supervisor settings.
type Config struct {
	SSID     string
	Password string

	RetryInterval   logic.Millis
	ConnectAttempts int
	AttemptPause    time.Duration
	MaxChannel      int

	// RestartGrace delays the recovery restart. Zero restarts on the check
	// that sees the link return.
	RestartGrace logic.Millis
}

func (c *Config) setDefaults() {
	if c.RetryInterval == 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	if c.ConnectAttempts <= 0 {
		c.ConnectAttempts = DefaultConnectAttempts
	}
	if c.AttemptPause <= 0 {
		c.AttemptPause = DefaultAttemptPause
	}
	if c.MaxChannel <= 0 {
		c.MaxChannel = DefaultMaxChannel
	}
}

// Supervisor retries association on a fixed interval and requests a restart
// once the link comes back after a loss. The HAP server's discovery records
// are bound to the address it had at startup, so restarting is the recovery.
type Supervisor struct {
	cfg Config
	net Network

	lock *Lock

	lastCheck       logic.Millis
	wasDisconnected bool
	restartPending  bool
	restartAt       logic.Millis
	status          Status
	retries         int
}

// NewSupervisor creates a supervisor for cfg.SSID over n.
func NewSupervisor(n Network, cfg Config) *Supervisor {
	cfg.setDefaults()
	return &Supervisor{cfg: cfg, net: n}
}

// SSID returns the supervised network name.
func (s *Supervisor) SSID() string {
	return s.cfg.SSID
}

// Lock returns the cached access point lock, or nil.
func (s *Supervisor) Lock() *Lock {
	return s.lock
}

// Status returns the link state seen on the last check.
func (s *Supervisor) Status() Status {
	return s.status
}

// Retries returns the number of retries issued since the link was last up.
func (s *Supervisor) Retries() int {
	return s.retries
}

// RestartPending reports whether a recovery restart has been scheduled.
func (s *Supervisor) RestartPending() bool {
	return s.restartPending
}

// FindLock scans for the configured SSID and caches the first match on an
// allowed channel. It reports whether a lock was found.
func (s *Supervisor) FindLock() bool {
	log.Printf("wifi: scanning for %q on channels <= %d", s.cfg.SSID, s.cfg.MaxChannel)
	aps, err := s.net.Scan()
	if err != nil {
		log.Printf("wifi: scan failed: %v", err)
		return false
	}
	for _, ap := range aps {
		if ap.SSID == s.cfg.SSID && ap.Channel > 0 && ap.Channel <= s.cfg.MaxChannel {
			s.lock = &Lock{BSSID: ap.BSSID, Channel: ap.Channel}
			log.Printf("wifi: locked to %s", s.lock)
			return true
		}
	}
	log.Printf("wifi: %q not found on an allowed channel, connecting by SSID", s.cfg.SSID)
	return false
}

// Connect is the blocking boot-time association. It polls the link up to
// ConnectAttempts times, calling pause between polls, and reports whether the
// link came up. Failure is not fatal; Check keeps retrying.
func (s *Supervisor) Connect(pause func(time.Duration)) bool {
	// Drop any association left over from before the restart, keeping the
	// stored profile.
	if err := s.net.Disconnect(false); err != nil {
		log.Printf("wifi: disconnect before connect: %v", err)
	}
	if s.lock == nil {
		s.FindLock()
	}
	if err := s.net.Begin(s.cfg.SSID, s.cfg.Password, s.lock); err != nil {
		log.Printf("wifi: begin failed: %v", err)
	}

	for i := 0; i < s.cfg.ConnectAttempts; i++ {
		st, err := s.net.Status()
		if err == nil && st == Connected {
			s.status = Connected
			log.Printf("wifi: connected after %d polls", i+1)
			return true
		}
		if pause != nil {
			pause(s.cfg.AttemptPause)
		}
	}

	st, err := s.net.Status()
	if err == nil && st == Connected {
		s.status = Connected
		log.Printf("wifi: connected")
		return true
	}
	s.status = Disconnected
	log.Printf("wifi: could not connect within %d attempts", s.cfg.ConnectAttempts)
	return false
}

// Start begins the retry interval at now.
func (s *Supervisor) Start(now logic.Millis) {
	s.lastCheck = now
}

// Check runs the periodic link check and reports true exactly once, when a
// scheduled recovery restart is due. It never blocks.
func (s *Supervisor) Check(now logic.Millis) bool {
	if s.restartPending {
		if logic.Since(now, s.restartAt) >= s.cfg.RestartGrace {
			s.restartPending = false
			return true
		}
		return false
	}

	if logic.Since(now, s.lastCheck) < s.cfg.RetryInterval {
		return false
	}
	s.lastCheck = now

	st, err := s.net.Status()
	if err != nil {
		log.Printf("wifi: status failed: %v", err)
		st = Disconnected
	}

	if st != Connected {
		if s.status == Connected {
			log.Printf("wifi: link lost")
		}
		s.status = st
		s.wasDisconnected = true
		s.retries++
		s.retry()
		return false
	}

	s.status = Connected
	if s.wasDisconnected {
		s.wasDisconnected = false
		log.Printf("wifi: reconnected after %d retries, restarting in %dms", s.retries, s.cfg.RestartGrace)
		s.retries = 0
		s.restartPending = true
		s.restartAt = now
		if s.cfg.RestartGrace == 0 {
			s.restartPending = false
			return true
		}
	}
	return false
}

func (s *Supervisor) retry() {
	if s.lock != nil {
		log.Printf("wifi: retry %d, targeting %s", s.retries, s.lock)
		if err := s.net.Begin(s.cfg.SSID, s.cfg.Password, s.lock); err != nil {
			log.Printf("wifi: retry failed: %v", err)
		}
		return
	}

	log.Printf("wifi: retry %d, reconnecting", s.retries)
	err := s.net.Reconnect()
	if err == nil {
		return
	}
	// No usable profile, for instance when the boot Begin never got through.
	log.Printf("wifi: reconnect failed: %v, starting over by SSID", err)
	if err := s.net.Begin(s.cfg.SSID, s.cfg.Password, nil); err != nil {
		log.Printf("wifi: retry failed: %v", err)
	}
}
