package depth

import (
	"gonum.org/v1/gonum/stat"

	"github.com/carrybot-robotics/stairguard/internal/params"
)

// classifyGradient implements the legacy row-gradient strategy. Per-row mean
// depths are differenced; rows whose normalised gradient magnitude exceeds
// row_norm_thresh become edge rows, and the resulting mask is cleaned with a
// morphological open/close before component filtering. It conforms to the
// same contract as the threshold strategy: one Result, Unknown on malformed
// input, wall precedence over stairs.
func classifyGradient(f *Frame, set params.Set) Result {
	res := Result{Label: LabelUnknown, Mode: "gradient"}

	roi := prepareROI(f, set)
	if roi == nil {
		return res
	}

	minValid := set.Float("min_valid_dist")
	maxValid := set.Float("max_valid_dist")
	valid := validSamples(roi, minValid, maxValid)
	res.ValidFraction = float64(len(valid)) / float64(len(roi.Samples))
	if len(valid) == 0 {
		return res
	}
	res.MeanDistance = stat.Mean(valid, nil)

	res.GroundDistance = bandMedian(roi, groundBandStart, 1.0, minValid, maxValid)
	res.FrontDistance = bandMedian(roi, frontBandStart, frontBandStop, minValid, maxValid)
	res.HeightDiff = res.GroundDistance - res.FrontDistance

	wallTh := set.Float("wall_dist_th")
	if wallTh <= 0 {
		wallTh = 0.8 * res.GroundDistance
	}
	if res.MeanDistance < wallTh {
		res.Label = LabelWall
		return res
	}

	grads := rowGradients(roi, minValid, maxValid)
	maxGrad := 0.0
	for _, g := range grads {
		if g > maxGrad {
			maxGrad = g
		}
	}
	res.MaxRowGradient = maxGrad

	edgeDetected := maxGrad > set.Float("edge_thresh")

	if len(grads) > 0 && maxGrad > 0 {
		mask, edgeRows := edgeRowMask(grads, roi.Width, set.Float("row_norm_thresh"))
		res.EdgeRowFraction = float64(edgeRows) / float64(len(grads))
		mask = openMask(mask, roi.Width, len(grads))
		mask = closeMask(mask, roi.Width, len(grads))

		minArea := set.Int("min_component_area")
		minHeight := set.Int("min_component_height")
		for _, c := range ConnectedComponents(mask, roi.Width, len(grads)) {
			if c.Area >= minArea && c.Height >= minHeight {
				edgeDetected = true
				if c.Area > res.VoidArea {
					res.VoidArea = c.Area
				}
			}
		}
	}

	if !edgeDetected {
		res.Label = LabelClear
		return res
	}

	// Edge confirmed; the differential picks the direction. A front band
	// closer than the ground band is a riser, a front band far beyond it is
	// the floor dropping away.
	stepTh := set.Float("step_height_th")
	switch {
	case res.GroundDistance > 0 && res.FrontDistance > 0 && res.HeightDiff >= stepTh:
		res.Label = LabelStairsUp
	case res.GroundDistance > 0 && res.FrontDistance > 0 && res.HeightDiff <= -stepTh:
		res.Label = LabelStairsDown
	default:
		// Edge without a clear differential still reads as a step ahead.
		res.Label = LabelStairsUp
	}
	return res
}

// rowGradients returns |mean(row i+1) - mean(row i)| over valid samples,
// one value per row boundary. Rows with no valid samples contribute a zero
// gradient on both sides.
func rowGradients(f *Frame, minValid, maxValid float64) []float64 {
	if f.Height < 2 {
		return nil
	}
	rowMeans := make([]float64, f.Height)
	rowValid := make([]bool, f.Height)
	for row := 0; row < f.Height; row++ {
		sum, n := 0.0, 0
		for col := 0; col < f.Width; col++ {
			d := float64(f.At(row, col))
			if d >= minValid && d <= maxValid && d > 0 {
				sum += d
				n++
			}
		}
		if n > 0 {
			rowMeans[row] = sum / float64(n)
			rowValid[row] = true
		}
	}
	grads := make([]float64, f.Height-1)
	for i := 0; i < f.Height-1; i++ {
		if rowValid[i] && rowValid[i+1] {
			g := rowMeans[i+1] - rowMeans[i]
			if g < 0 {
				g = -g
			}
			grads[i] = g
		}
	}
	return grads
}

// edgeRowMask normalises the gradient profile to [0,1] and marks every pixel
// of a row whose normalised magnitude exceeds normThresh. Returns the mask
// (width x len(grads)) and the number of flagged rows.
func edgeRowMask(grads []float64, width int, normThresh float64) ([]bool, int) {
	minG, maxG := grads[0], grads[0]
	for _, g := range grads {
		if g < minG {
			minG = g
		}
		if g > maxG {
			maxG = g
		}
	}
	span := maxG - minG + 1e-6

	mask := make([]bool, width*len(grads))
	edgeRows := 0
	for i, g := range grads {
		if (g-minG)/span > normThresh {
			edgeRows++
			for col := 0; col < width; col++ {
				mask[i*width+col] = true
			}
		}
	}
	return mask, edgeRows
}

// closeMask dilates then erodes with a 3x3 element, bridging small gaps left
// by the open pass.
func closeMask(mask []bool, width, height int) []bool {
	return erode(dilate(mask, width, height), width, height)
}
