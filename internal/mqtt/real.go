package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sweeney/switch-bridge/internal/logic"
)

const (
	publishTimeout = 5 * time.Second
	retryInterval  = time.Second
	// closeDrain bounds how long Close keeps sending the final events.
	closeDrain = 2 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. Publish calls only
// enqueue. A sender goroutine delivers the outbox in order whenever the
// broker is connected.
type RealPublisher struct {
	client paho.Client
	send   func(Message) error

	mu        sync.Mutex
	pending   *outbox
	connected bool
	connects  int

	wake      chan struct{}
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewRealPublisher creates a publisher for the given broker. It does not
// wait for the first connection: the bridge must boot even when the broker
// is down, so the connect is retried in the background.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	return dial(broker, clientID, publishTimeout)
}

func dial(broker, clientID string, sendTimeout time.Duration) (*RealPublisher, error) {
	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	p := newRealPublisher(nil)

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, false).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.send = func(m Message) error {
		token := p.client.Publish(m.Topic, m.QoS, m.Retained, m.Payload)
		if !token.WaitTimeout(sendTimeout) {
			return fmt.Errorf("publish %s: timeout", m.Topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", m.Topic, err)
		}
		return nil
	}

	go p.run()
	p.client.Connect()
	return p, nil
}

// newRealPublisher builds a publisher around send. The caller starts run.
func newRealPublisher(send func(Message) error) *RealPublisher {
	return &RealPublisher{
		send:    send,
		pending: newOutbox(DefaultOutboxSize),
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	p.connected = true
	p.connects++
	if p.connects > 1 {
		m, err := SystemMessage(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err == nil {
			p.pending.add(m)
		}
	}
	queued, dropped := p.pending.len(), p.pending.takeDropped()
	p.mu.Unlock()

	if queued > 0 || dropped > 0 {
		log.Printf("mqtt: connected, replaying %d queued messages (%d dropped)", queued, dropped)
	} else {
		log.Printf("mqtt: connected")
	}
	p.notify()
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	log.Printf("mqtt: connection lost: %v", err)
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// PublishToggle queues a switch toggle for the broker.
func (p *RealPublisher) PublishToggle(event logic.ToggleEvent) error {
	m, err := ToggleMessage(event)
	if err != nil {
		return err
	}
	p.enqueue(m)
	return nil
}

// PublishSystem queues a system lifecycle event for the broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	m, err := SystemMessage(event)
	if err != nil {
		return err
	}
	p.enqueue(m)
	return nil
}

func (p *RealPublisher) enqueue(m Message) {
	p.mu.Lock()
	p.pending.add(m)
	p.mu.Unlock()
	p.notify()
}

func (p *RealPublisher) notify() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *RealPublisher) run() {
	defer close(p.done)
	retry := time.NewTicker(retryInterval)
	defer retry.Stop()

	for {
		select {
		case <-p.quit:
			p.drain(time.Now().Add(closeDrain))
			return
		case <-p.wake:
		case <-retry.C:
		}
		p.drain(time.Time{})
	}
}

// drain sends queued messages oldest first until the outbox is empty, the
// link is down, a send fails or the deadline passes. A zero deadline means
// none. A failed message goes back to the front.
func (p *RealPublisher) drain(deadline time.Time) {
	for deadline.IsZero() || time.Now().Before(deadline) {
		p.mu.Lock()
		if !p.connected {
			p.mu.Unlock()
			return
		}
		m, ok := p.pending.pop()
		p.mu.Unlock()
		if !ok {
			return
		}

		if err := p.send(m); err != nil {
			log.Printf("mqtt: %v, will retry", err)
			p.mu.Lock()
			p.pending.unshift(m)
			p.mu.Unlock()
			return
		}
	}
}

// Close sends what it can of the outbox and disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.quit)
		<-p.done
		if p.client != nil {
			p.client.Disconnect(1000) // 1 second timeout
		}
	})
	return nil
}
