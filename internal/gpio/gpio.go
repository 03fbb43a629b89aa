// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import "github.com/sweeney/switch-bridge/internal/logic"

// Reader reads raw GPIO input levels.
type Reader interface {
	// Read returns the raw level of every requested line, in the order the
	// lines were requested. Inputs are pulled up: Low = pressed.
	Read() ([]logic.Level, error)

	// Close releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering).
var DefaultButtonPins = []int{5, 6, 13, 19}

// DefaultPinReset is the dedicated factory reset button.
const DefaultPinReset = 26

// DefaultChip is the GPIO character device the lines are requested from.
const DefaultChip = "gpiochip0"
