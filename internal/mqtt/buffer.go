package mqtt

import "log"

// DefaultOutboxSize is how many unsent messages are held.
const DefaultOutboxSize = 64

// outbox is a fixed-capacity FIFO of messages waiting to be sent.
// When full, the oldest message is dropped. Not safe for concurrent use.
type outbox struct {
	msgs    []Message
	head    int // next write position
	count   int
	dropped int // messages lost since the last flush
}

func newOutbox(capacity int) *outbox {
	if capacity < 1 {
		capacity = 1
	}
	return &outbox{msgs: make([]Message, capacity)}
}

func (o *outbox) add(msg Message) {
	capacity := len(o.msgs)
	if o.count == capacity {
		if o.dropped == 0 {
			log.Printf("mqtt: outbox full (%d messages), dropping oldest", capacity)
		}
		o.dropped++
		o.msgs[o.head] = msg
		o.head = (o.head + 1) % capacity
		return
	}
	o.msgs[o.head] = msg
	o.head = (o.head + 1) % capacity
	o.count++
}

// pop removes and returns the oldest message.
func (o *outbox) pop() (Message, bool) {
	if o.count == 0 {
		return Message{}, false
	}
	capacity := len(o.msgs)
	start := (o.head - o.count + capacity) % capacity
	m := o.msgs[start]
	o.msgs[start] = Message{}
	o.count--
	return m, true
}

// unshift puts a message back at the front after a failed send. If the
// outbox filled up meanwhile, the message is the oldest and is dropped.
func (o *outbox) unshift(msg Message) {
	capacity := len(o.msgs)
	if o.count == capacity {
		o.dropped++
		return
	}
	start := (o.head - o.count - 1 + 2*capacity) % capacity
	o.msgs[start] = msg
	o.count++
}

// takeDropped returns the number of messages dropped since the last call.
func (o *outbox) takeDropped() int {
	n := o.dropped
	o.dropped = 0
	return n
}

func (o *outbox) len() int {
	return o.count
}
