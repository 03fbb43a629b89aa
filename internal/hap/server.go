package hap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
)

const (
	// remoteQueue bounds the writes buffered between two loop iterations.
	remoteQueue = 32
	// startCheck is how long Start waits for an early listen or DNS-SD
	// failure before reporting success.
	startCheck = 100 * time.Millisecond
)

// Server is the HomeKit bridge backed by brutella/hap.
type Server struct {
	cfg      Config
	bridge   *accessory.Bridge
	switches []*accessory.Switch
	store    hap.Store
	clients  ClientCounter

	remote     chan RemoteWrite
	identifies atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewServer builds the accessory tree. Characteristic values may be set
// before Start; nothing is published until then.
func NewServer(cfg Config) *Server {
	s := &Server{
		cfg:     cfg,
		store:   hap.NewFsStore(cfg.StoreDir),
		clients: NewProcCounter(cfg.Port),
		remote:  make(chan RemoteWrite, remoteQueue),
	}

	s.bridge = accessory.NewBridge(accessory.Info{
		Name:         cfg.Name,
		Manufacturer: cfg.Manufacturer,
		Model:        cfg.Model,
		SerialNumber: cfg.SerialPrefix + "-000",
		Firmware:     cfg.Firmware,
	})
	s.bridge.A.Id = 1
	s.onIdentify(s.bridge.A, cfg.Name)

	for i, name := range cfg.SwitchNames {
		sw := accessory.NewSwitch(accessory.Info{
			Name:         name,
			Manufacturer: cfg.Manufacturer,
			Model:        cfg.Model,
			SerialNumber: fmt.Sprintf("%s-SW%d", cfg.SerialPrefix, i+1),
			Firmware:     cfg.Firmware,
		})
		sw.A.Id = uint64(i + 2)
		s.onIdentify(sw.A, name)

		sw.Switch.On.OnValueRemoteUpdate(func(on bool) {
			select {
			case s.remote <- RemoteWrite{Index: i, On: on}:
			default:
				log.Printf("hap: remote write queue full, dropping %s=%v", name, on)
			}
		})
		s.switches = append(s.switches, sw)
	}
	return s
}

// Start runs the HAP server in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Server) startLocked(ctx context.Context) error {
	if s.cancel != nil {
		return errors.New("hap: server already running")
	}

	as := make([]*accessory.A, len(s.switches))
	for i, sw := range s.switches {
		as[i] = sw.A
	}
	srv, err := hap.NewServer(s.store, s.bridge.A, as...)
	if err != nil {
		return fmt.Errorf("create hap server: %w", err)
	}
	srv.Pin = s.cfg.Pin
	srv.SetupId = s.cfg.SetupID
	srv.Addr = fmt.Sprintf(":%d", s.cfg.Port)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	failed := make(chan error, 1)
	go func() {
		defer close(done)
		err := srv.ListenAndServe(runCtx)
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, http.ErrServerClosed) {
			return
		}
		failed <- err
		log.Printf("hap: server stopped: %v", err)
	}()

	select {
	case err := <-failed:
		cancel()
		<-done
		s.cancel = nil
		s.done = nil
		return fmt.Errorf("hap: serve on port %d: %w", s.cfg.Port, err)
	case <-time.After(startCheck):
	}
	log.Printf("hap: serving %q with %d switches on port %d", s.cfg.Name, len(s.switches), s.cfg.Port)
	return nil
}

// onIdentify logs identify requests for a, both the unpaired /identify call
// and writes to the Identify characteristic.
func (s *Server) onIdentify(a *accessory.A, name string) {
	identify := func() {
		s.identifies.Add(1)
		log.Printf("hap: identify %s", name)
	}
	a.IdentifyFunc = func(*http.Request) { identify() }
	a.Info.Identify.OnValueRemoteUpdate(func(bool) { identify() })
}

// Stop shuts the HAP server down and waits for it to exit.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Server) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

// Len returns the number of switches.
func (s *Server) Len() int {
	return len(s.switches)
}

// SetSwitch sets switch i and notifies subscribed controllers.
func (s *Server) SetSwitch(i int, on bool) {
	if i < 0 || i >= len(s.switches) {
		return
	}
	s.switches[i].Switch.On.SetValue(on)
}

// Remote drains the remote writes queued since the last call. It never blocks.
func (s *Server) Remote() []RemoteWrite {
	var writes []RemoteWrite
	for {
		select {
		case w := <-s.remote:
			writes = append(writes, w)
		default:
			return writes
		}
	}
}

// ConnectedClients returns the number of controllers connected to the server.
func (s *Server) ConnectedClients() int {
	n, err := s.clients.Count()
	if err != nil {
		log.Printf("hap: count clients: %v", err)
		return 0
	}
	return n
}

// Announce restarts the server, which re-publishes its DNS-SD records.
func (s *Server) Announce() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	log.Printf("hap: re-announcing")
	return s.startLocked(context.Background())
}

// ResetPairing stops the server and erases all pairings and accessory state.
func (s *Server) ResetPairing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	if err := os.RemoveAll(s.cfg.StoreDir); err != nil {
		return fmt.Errorf("remove %s: %w", s.cfg.StoreDir, err)
	}
	log.Printf("hap: pairing data erased")
	return nil
}
