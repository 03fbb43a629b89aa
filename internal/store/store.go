// Package store persists the on/off value of every switch across power loss.
//
// A record is the CBOR encoding of the value vector followed by a CRC32 of
// that encoding. Every save rewrites the whole record, so the values on the
// medium are always consistent with each other.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"log"

	"github.com/fxamacker/cbor/v2"
)

// recordVersion is bumped when the record layout changes.
const recordVersion = 1

// ErrNotFound is returned by a Medium that holds no record yet.
var ErrNotFound = errors.New("store: no record")

// Medium is raw durable byte storage holding a single small record.
type Medium interface {
	// ReadRecord returns the last committed record, or ErrNotFound.
	ReadRecord() ([]byte, error)
	// WriteRecord replaces the record. It must not return until the
	// record is durable.
	WriteRecord(data []byte) error
}

type record struct {
	Version uint8  `cbor:"1,keyasint"`
	Values  []bool `cbor:"2,keyasint"`
}

// Store loads and saves the toggle values.
type Store struct {
	medium Medium
}

// New creates a Store backed by m.
func New(m Medium) *Store {
	return &Store{medium: m}
}

// Load returns count values. It never fails: a missing, unreadable or corrupt
// record yields all false, and a record of a different length is truncated
// or padded with false.
func (s *Store) Load(count int) []bool {
	values := make([]bool, count)

	data, err := s.medium.ReadRecord()
	if errors.Is(err, ErrNotFound) {
		log.Printf("store: no saved state, defaulting %d switches to off", count)
		return values
	}
	if err != nil {
		log.Printf("store: read failed, using defaults: %v", err)
		return values
	}

	saved, err := Decode(data)
	if err != nil {
		log.Printf("store: discarding saved state: %v", err)
		return values
	}
	if len(saved) != count {
		log.Printf("store: saved state has %d switches, want %d", len(saved), count)
	}
	copy(values, saved)
	return values
}

// Save writes the full value vector in one record.
func (s *Store) Save(values []bool) error {
	data, err := Encode(values)
	if err != nil {
		return err
	}
	if err := s.medium.WriteRecord(data); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// Encode returns the on-medium form of values.
func Encode(values []bool) ([]byte, error) {
	body, err := cbor.Marshal(record{Version: recordVersion, Values: values})
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return binary.BigEndian.AppendUint32(body, crc32.ChecksumIEEE(body)), nil
}

// Decode parses a record produced by Encode.
func Decode(data []byte) ([]bool, error) {
	if len(data) < 5 {
		return nil, fmt.Errorf("record too short (%d bytes)", len(data))
	}
	body, sum := data[:len(data)-4], binary.BigEndian.Uint32(data[len(data)-4:])
	if got := crc32.ChecksumIEEE(body); got != sum {
		return nil, fmt.Errorf("checksum mismatch: stored %08x, computed %08x", sum, got)
	}

	var rec record
	if err := cbor.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec.Version != recordVersion {
		return nil, fmt.Errorf("unsupported record version %d", rec.Version)
	}
	return rec.Values, nil
}
