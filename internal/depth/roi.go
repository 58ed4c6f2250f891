package depth

import "github.com/carrybot-robotics/stairguard/internal/params"

// ROI is a sub-rectangle of a frame expressed in pixel bounds, derived fresh
// each cycle from the fractional roi_* parameters. Row/col stops are
// exclusive.
type ROI struct {
	RowStart, RowStop int
	ColStart, ColStop int
}

// Rows returns the row count of the region.
func (r ROI) Rows() int { return r.RowStop - r.RowStart }

// Cols returns the column count of the region.
func (r ROI) Cols() int { return r.ColStop - r.ColStart }

// Empty reports a degenerate region.
func (r ROI) Empty() bool { return r.Rows() <= 0 || r.Cols() <= 0 }

// RegionFromParams converts the four fractional bounds in set to pixel
// bounds on a frame of the given size, clamping to the frame. Fractions are
// never cached across parameter changes; callers recompute every cycle.
func RegionFromParams(set params.Set, width, height int) ROI {
	clampFrac := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	hStart := clampFrac(set.Float("roi_h_start"))
	hStop := clampFrac(set.Float("roi_h_stop"))
	vStart := clampFrac(set.Float("roi_v_start"))
	vStop := clampFrac(set.Float("roi_v_stop"))

	return ROI{
		RowStart: int(vStart * float64(height)),
		RowStop:  int(vStop * float64(height)),
		ColStart: int(hStart * float64(width)),
		ColStop:  int(hStop * float64(width)),
	}
}

// Extract copies the region out of frame into a standalone grid. Returns nil
// if the source frame or the region is degenerate.
func Extract(f *Frame, r ROI) *Frame {
	if f.Empty() || r.Empty() {
		return nil
	}
	if r.RowStart < 0 {
		r.RowStart = 0
	}
	if r.ColStart < 0 {
		r.ColStart = 0
	}
	if r.RowStop > f.Height {
		r.RowStop = f.Height
	}
	if r.ColStop > f.Width {
		r.ColStop = f.Width
	}
	if r.Empty() {
		return nil
	}
	out := NewFrame(r.Cols(), r.Rows())
	for row := r.RowStart; row < r.RowStop; row++ {
		src := f.Samples[row*f.Width+r.ColStart : row*f.Width+r.ColStop]
		dst := out.Samples[(row-r.RowStart)*out.Width : (row-r.RowStart+1)*out.Width]
		copy(dst, src)
	}
	out.Timestamp = f.Timestamp
	return out
}
