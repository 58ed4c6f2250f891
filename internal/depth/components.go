package depth

// Component is one maximal 8-connected group of qualifying pixels, with the
// stats used to separate speckle noise from a real void or stair edge.
type Component struct {
	Area   int
	Height int // bounding-box height in rows
	Width  int // bounding-box width in columns
}

// ConnectedComponents labels the true cells of mask (width*height, row-major)
// with 8-connectivity and returns per-component stats. The scan uses an
// explicit stack so deep regions cannot blow the goroutine stack.
func ConnectedComponents(mask []bool, width, height int) []Component {
	if width <= 0 || height <= 0 || len(mask) != width*height {
		return nil
	}
	visited := make([]bool, len(mask))
	var comps []Component
	var stack []int

	for start := range mask {
		if !mask[start] || visited[start] {
			continue
		}
		comp := Component{}
		minRow, maxRow := height, -1
		minCol, maxCol := width, -1

		stack = append(stack[:0], start)
		visited[start] = true
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			row, col := idx/width, idx%width

			comp.Area++
			if row < minRow {
				minRow = row
			}
			if row > maxRow {
				maxRow = row
			}
			if col < minCol {
				minCol = col
			}
			if col > maxCol {
				maxCol = col
			}

			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					r, c := row+dr, col+dc
					if r < 0 || r >= height || c < 0 || c >= width {
						continue
					}
					n := r*width + c
					if mask[n] && !visited[n] {
						visited[n] = true
						stack = append(stack, n)
					}
				}
			}
		}
		comp.Height = maxRow - minRow + 1
		comp.Width = maxCol - minCol + 1
		comps = append(comps, comp)
	}
	return comps
}

// LargestArea returns the biggest component area, or 0 for an empty slice.
func LargestArea(comps []Component) int {
	max := 0
	for _, c := range comps {
		if c.Area > max {
			max = c.Area
		}
	}
	return max
}

// openMask erodes then dilates the mask with a 3x3 structuring element,
// removing single-pixel speckle before component analysis (gradient mode
// only).
func openMask(mask []bool, width, height int) []bool {
	return dilate(erode(mask, width, height), width, height)
}

func erode(mask []bool, width, height int) []bool {
	out := make([]bool, len(mask))
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			keep := true
			for dr := -1; dr <= 1 && keep; dr++ {
				for dc := -1; dc <= 1; dc++ {
					r, c := row+dr, col+dc
					if r < 0 || r >= height || c < 0 || c >= width {
						keep = false
						break
					}
					if !mask[r*width+c] {
						keep = false
						break
					}
				}
			}
			out[row*width+col] = keep
		}
	}
	return out
}

func dilate(mask []bool, width, height int) []bool {
	out := make([]bool, len(mask))
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			hit := false
			for dr := -1; dr <= 1 && !hit; dr++ {
				for dc := -1; dc <= 1; dc++ {
					r, c := row+dr, col+dc
					if r < 0 || r >= height || c < 0 || c >= width {
						continue
					}
					if mask[r*width+c] {
						hit = true
						break
					}
				}
			}
			out[row*width+col] = hit
		}
	}
	return out
}
