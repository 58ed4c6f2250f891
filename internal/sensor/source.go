// Package sensor abstracts depth frame acquisition. The real driver lives
// outside this repository; production wiring injects it through FrameSource,
// while tests, server-only tuning and demo runs use the synthetic source.
package sensor

import (
	"context"
	"errors"

	"github.com/carrybot-robotics/stairguard/internal/depth"
)

// ErrNoFrame is returned when the source has no frame available this cycle.
// The sampling loop retries on the next cycle; a bounded run of consecutive
// failures escalates to a fatal stop.
var ErrNoFrame = errors.New("sensor: no frame available")

// FrameSource produces depth frames for the sampling loop. NextFrame blocks
// until a frame is ready, the context is cancelled, or acquisition fails.
// The returned frame is owned by the caller for one cycle.
type FrameSource interface {
	NextFrame(ctx context.Context) (*depth.Frame, error)
	Close() error
}
