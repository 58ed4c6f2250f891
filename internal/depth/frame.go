// Package depth implements the frame-local terrain classification pipeline:
// ROI extraction, median filtering, wall/stair/void decision logic and the
// temporal smoother that stabilises per-frame labels. Classification is a
// pure function of one frame and one parameter snapshot so the same inputs
// always produce the same result.
package depth

import "time"

// Frame is a 2D grid of distance samples in meters, row-major, Width*Height
// long. A sample <= 0 is invalid (no return from the sensor). The sampling
// loop owns a frame for exactly one cycle; frames are never shared across
// cycles.
type Frame struct {
	Width     int
	Height    int
	Samples   []float32
	Timestamp time.Time
}

// NewFrame allocates a zeroed (all-invalid) frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:   width,
		Height:  height,
		Samples: make([]float32, width*height),
	}
}

// At returns the sample at (row, col) without bounds checking.
func (f *Frame) At(row, col int) float32 {
	return f.Samples[row*f.Width+col]
}

// Set writes the sample at (row, col).
func (f *Frame) Set(row, col int, v float32) {
	f.Samples[row*f.Width+col] = v
}

// Empty reports whether the frame has no samples at all.
func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Samples) == 0
}
