package mqtt

import (
	"github.com/sweeney/switch-bridge/internal/logic"
)

// FakePublisher records routed messages for test assertions. It routes
// events through ToggleMessage and SystemMessage exactly like RealPublisher.
type FakePublisher struct {
	Toggles      []logic.ToggleEvent
	SystemEvents []SystemEvent

	// Messages holds every routed message in publish order.
	Messages []Message

	// Payloads and SystemPayloads split Messages by topic.
	Payloads       [][]byte
	SystemPayloads [][]byte

	// PublishError and PublishSystemError are returned by the matching call
	// before anything is recorded.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishToggle records the toggle event and its message.
func (f *FakePublisher) PublishToggle(event logic.ToggleEvent) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	m, err := ToggleMessage(event)
	if err != nil {
		return err
	}
	f.Toggles = append(f.Toggles, event)
	f.record(m)
	return nil
}

// PublishSystem records the lifecycle event and its message.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	m, err := SystemMessage(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.record(m)
	return nil
}

func (f *FakePublisher) record(m Message) {
	f.Messages = append(f.Messages, m)
	switch m.Topic {
	case Topic:
		f.Payloads = append(f.Payloads, m.Payload)
	case TopicSystem:
		f.SystemPayloads = append(f.SystemPayloads, m.Payload)
	}
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected returns Connected.
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// SystemEventNames returns the Event field of every recorded system event.
func (f *FakePublisher) SystemEventNames() []string {
	names := make([]string, len(f.SystemEvents))
	for i, e := range f.SystemEvents {
		names[i] = e.Event
	}
	return names
}

// Reset clears everything recorded and injected.
func (f *FakePublisher) Reset() {
	*f = FakePublisher{}
}
