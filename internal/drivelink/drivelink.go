// Package drivelink announces stable classification changes to the drive
// controller over a serial line. The controller consumes one line per
// transition ("LABEL stairs_down\n") and handles braking on its own clock;
// this side only guarantees that every transition is written exactly once,
// in order.
package drivelink

import (
	"fmt"
	"io"
	"sync"

	"github.com/carrybot-robotics/stairguard/internal/depth"
	"github.com/carrybot-robotics/stairguard/internal/monitoring"
)

var ErrWriteFailed = fmt.Errorf("drivelink: failed to write to serial port")

// Announcer is the interface the sampling pipeline talks to. Implementations
// must be safe for use from the publisher's listener callback.
type Announcer interface {
	// Announce reports the current stable label; duplicate consecutive
	// labels are suppressed.
	Announce(label depth.Label) error
	Close() error
}

// Link writes transitions to a serial port (or any writer in tests).
type Link struct {
	mu   sync.Mutex
	port io.WriteCloser
	last depth.Label
}

// New wraps an open port. Use Open for a real serial device.
func New(port io.WriteCloser) *Link {
	return &Link{port: port}
}

// Announce writes one line when the label differs from the previous one.
// Write failures are reported but do not poison the link; the next
// transition tries again.
func (l *Link) Announce(label depth.Label) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if label == l.last {
		return nil
	}
	line := fmt.Sprintf("LABEL %s\n", label)
	if _, err := l.port.Write([]byte(line)); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	l.last = label
	return nil
}

// Close closes the underlying port.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port.Close()
}

// Disabled is an Announcer that drops everything, used when no drive
// controller is attached (server-only and headless runs).
type Disabled struct{}

func (Disabled) Announce(depth.Label) error { return nil }
func (Disabled) Close() error               { return nil }

// Notify adapts an Announcer into a publisher listener, logging rather than
// propagating write failures so the sampling loop never stalls on serial IO.
func Notify(a Announcer) func(label depth.Label) {
	return func(label depth.Label) {
		if err := a.Announce(label); err != nil {
			monitoring.Logf("drive link announce failed: %v", err)
		}
	}
}
