package drivelink

import (
	"fmt"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the drive controller firmware.
const DefaultBaudRate = 115200

// Open opens the serial device at path and wraps it in a Link. A baud of 0
// selects the default.
func Open(path string, baud int) (*Link, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	port, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open drive link %s: %w", path, err)
	}
	return New(port), nil
}
