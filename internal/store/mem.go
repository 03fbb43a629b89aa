package store

import "errors"

// MemMedium is an in-memory Medium for tests. It separates what has been
// committed from a write that is still in flight, so a simulated power loss
// can drop the latter.
type MemMedium struct {
	durable []byte
	present bool

	// Torn, when set, makes the next write stop after the first N bytes and
	// never commit, as if power were cut mid-write.
	Torn int

	// FailWrites and FailReads, if set, are returned by the matching call.
	FailWrites error
	FailReads  error

	// Writes counts successful writes.
	Writes int

	pending []byte
}

// NewMemMedium returns an empty medium.
func NewMemMedium() *MemMedium {
	return &MemMedium{}
}

// ReadRecord returns the committed record.
func (m *MemMedium) ReadRecord() ([]byte, error) {
	if m.FailReads != nil {
		return nil, m.FailReads
	}
	if !m.present {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.durable...), nil
}

// WriteRecord commits data, unless a torn write is scripted.
func (m *MemMedium) WriteRecord(data []byte) error {
	if m.FailWrites != nil {
		return m.FailWrites
	}
	if m.Torn > 0 {
		n := m.Torn
		if n > len(data) {
			n = len(data)
		}
		m.pending = append([]byte(nil), data[:n]...)
		m.Torn = 0
		return errors.New("store: write interrupted")
	}
	m.durable = append([]byte(nil), data...)
	m.present = true
	m.Writes++
	return nil
}

// PowerLoss discards any uncommitted write.
func (m *MemMedium) PowerLoss() {
	m.pending = nil
}

// Corrupt flips a bit in the committed record.
func (m *MemMedium) Corrupt(offset int) {
	if offset < len(m.durable) {
		m.durable[offset] ^= 0x01
	}
}

// SetRaw replaces the committed record with data.
func (m *MemMedium) SetRaw(data []byte) {
	m.durable = append([]byte(nil), data...)
	m.present = true
}
