package depth

import "sort"

// MedianFilter applies a ksize x ksize median filter to suppress speckle
// noise, mirroring the medianBlur pass the hardware pipeline ran on raw
// depth. ksize is forced to the nearest odd value >= 1; ksize 1 returns the
// input unchanged. Invalid (<= 0) samples participate in the window so an
// isolated dropout is healed by its neighbours, while a true hole stays a
// hole.
func MedianFilter(f *Frame, ksize int) *Frame {
	if f.Empty() {
		return f
	}
	if ksize < 1 {
		ksize = 1
	}
	if ksize%2 == 0 {
		ksize++
	}
	if ksize == 1 {
		return f
	}

	out := NewFrame(f.Width, f.Height)
	out.Timestamp = f.Timestamp
	half := ksize / 2
	window := make([]float32, 0, ksize*ksize)

	for row := 0; row < f.Height; row++ {
		for col := 0; col < f.Width; col++ {
			window = window[:0]
			for dr := -half; dr <= half; dr++ {
				r := row + dr
				if r < 0 || r >= f.Height {
					continue
				}
				for dc := -half; dc <= half; dc++ {
					c := col + dc
					if c < 0 || c >= f.Width {
						continue
					}
					window = append(window, f.At(r, c))
				}
			}
			out.Set(row, col, median32(window))
		}
	}
	return out
}

// median32 sorts in place and returns the middle element.
func median32(vals []float32) float32 {
	if len(vals) == 0 {
		return 0
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	return vals[len(vals)/2]
}
