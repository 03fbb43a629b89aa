//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"github.com/sweeney/switch-bridge/internal/logic"
)

// RealReader reads GPIO from actual hardware using Linux GPIO character device.
type RealReader struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
	pins  []int
	vals  []int
}

// NewRealReader requests pins as pulled-up inputs on the named chip.
func NewRealReader(chipName string, pins []int) (*RealReader, error) {
	if len(pins) == 0 {
		return nil, fmt.Errorf("no pins requested")
	}
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Buttons short the line to ground, so the idle level must be pulled high.
	lines, err := chip.RequestLines(pins, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.WithConsumer("switch-bridge"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pins %v: %w", pins, err)
	}

	return &RealReader{
		chip:  chip,
		lines: lines,
		pins:  pins,
		vals:  make([]int, len(pins)),
	}, nil
}

// Read returns the raw level of every requested pin.
func (r *RealReader) Read() ([]logic.Level, error) {
	if err := r.lines.Values(r.vals); err != nil {
		return nil, fmt.Errorf("read pins %v: %w", r.pins, err)
	}
	levels := make([]logic.Level, len(r.vals))
	for i, v := range r.vals {
		if v != 0 {
			levels[i] = logic.High
		}
	}
	return levels, nil
}

// Close releases GPIO resources.
// Pins are returned to plain inputs with pull-up before closing so the
// buttons stay in a defined state across the restart.
func (r *RealReader) Close() error {
	var errs []error

	if r.lines != nil {
		if err := r.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullUp); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pins: %w", err))
		}
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pins: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
