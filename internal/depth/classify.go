package depth

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/carrybot-robotics/stairguard/internal/params"
)

// Label is the four-way terrain classification, plus Void for hole-dominated
// scenes and Unknown for malformed input.
type Label string

const (
	LabelClear      Label = "clear"
	LabelWall       Label = "wall"
	LabelStairsUp   Label = "stairs_up"
	LabelStairsDown Label = "stairs_down"
	LabelVoid       Label = "void"
	LabelUnknown    Label = "unknown"
)

// Hazard reports whether the label demands the drive controller's attention.
func (l Label) Hazard() bool {
	return l == LabelWall || l == LabelStairsUp || l == LabelStairsDown || l == LabelVoid
}

// Result is one frame's classification and the scalar evidence that produced
// it. Immutable once returned.
type Result struct {
	Label Label `json:"label"`

	// Evidence, all in meters unless noted.
	MeanDistance    float64 `json:"mean_distance"`
	GroundDistance  float64 `json:"ground_distance"`
	FrontDistance   float64 `json:"front_distance"`
	HeightDiff      float64 `json:"height_diff"` // ground minus front
	VoidArea        int     `json:"void_area"`   // largest qualifying hole, pixels
	MaxRowGradient  float64 `json:"max_row_gradient"`
	EdgeRowFraction float64 `json:"edge_row_fraction"`
	ValidFraction   float64 `json:"valid_fraction"`
	Mode            string  `json:"mode"`
}

// Detection modes selectable via the detect_mode parameter.
const (
	ModeThreshold = 0 // absolute distance/height thresholds
	ModeGradient  = 1 // legacy row-gradient edge detection
)

// Fractional bands of the ROI used for the ground/front split. The ground
// band sits at the bottom of the region (nearest floor ahead of the wheels),
// the front band in the middle distance.
const (
	groundBandStart = 0.7
	frontBandStart  = 0.3
	frontBandStop   = 0.6
)

// Classify runs the configured detection strategy over one frame with one
// parameter snapshot. It is a pure function: no shared state, no side
// effects, identical inputs give identical results. Malformed frames resolve
// to Unknown rather than an error.
func Classify(f *Frame, set params.Set) Result {
	switch set.Int("detect_mode") {
	case ModeGradient:
		return classifyGradient(f, set)
	default:
		return classifyThreshold(f, set)
	}
}

// classifyThreshold implements the primary strategy: wall short-circuit on
// mean ROI distance, ground/front differential for stair direction, then
// connected-component analysis of depth holes for voids.
func classifyThreshold(f *Frame, set params.Set) Result {
	res := Result{Label: LabelUnknown, Mode: "threshold"}

	roi := prepareROI(f, set)
	if roi == nil {
		return res
	}

	minValid := set.Float("min_valid_dist")
	maxValid := set.Float("max_valid_dist")
	valid := validSamples(roi, minValid, maxValid)
	res.ValidFraction = float64(len(valid)) / float64(len(roi.Samples))
	if len(valid) == 0 {
		return res // all-invalid region, fail closed
	}
	res.MeanDistance = stat.Mean(valid, nil)

	res.GroundDistance = bandMedian(roi, groundBandStart, 1.0, minValid, maxValid)
	res.FrontDistance = bandMedian(roi, frontBandStart, frontBandStop, minValid, maxValid)
	res.HeightDiff = res.GroundDistance - res.FrontDistance

	// An imminent wall is the more urgent hazard, so it wins over any stair
	// evidence. wall_dist_th <= 0 selects the dynamic threshold derived from
	// the ground distance.
	wallTh := set.Float("wall_dist_th")
	if wallTh <= 0 {
		wallTh = 0.8 * res.GroundDistance
	}
	if res.MeanDistance < wallTh {
		res.Label = LabelWall
		return res
	}

	// A front band reading closer than the ground band by more than the step
	// threshold means a raised surface ahead. The natural floor slant pulls
	// the differential negative, so only the positive direction fires.
	stepTh := set.Float("step_height_th")
	if res.GroundDistance > 0 && res.FrontDistance > 0 && res.HeightDiff >= stepTh {
		res.Label = LabelStairsUp
		return res
	}

	// Downward steps and holes show up as missing or beyond-range returns,
	// noise-filtered by component area.
	mask := voidMask(roi, minValid, maxValid)
	comps := ConnectedComponents(mask, roi.Width, roi.Height)
	res.VoidArea = LargestArea(comps)
	if res.VoidArea >= set.Int("noise_filtering_area_min_th") {
		res.Label = LabelVoid
		return res
	}

	res.Label = LabelClear
	return res
}

// prepareROI extracts and denoises the region of interest. A nil return
// means the frame or region was degenerate and the Unknown label stands.
func prepareROI(f *Frame, set params.Set) *Frame {
	if f.Empty() {
		return nil
	}
	region := RegionFromParams(set, f.Width, f.Height)
	roi := Extract(f, region)
	if roi == nil {
		return nil
	}
	return MedianFilter(roi, set.Int("median_blur_ksize"))
}

// validSamples collects in-range samples as float64 for gonum.
func validSamples(f *Frame, minValid, maxValid float64) []float64 {
	out := make([]float64, 0, len(f.Samples))
	for _, v := range f.Samples {
		d := float64(v)
		if d >= minValid && d <= maxValid && d > 0 {
			out = append(out, d)
		}
	}
	return out
}

// bandMedian returns the median valid distance within the fractional row band
// [start, stop) of the region, or 0 when the band holds no valid samples.
func bandMedian(f *Frame, start, stop, minValid, maxValid float64) float64 {
	rowStart := int(start * float64(f.Height))
	rowStop := int(stop * float64(f.Height))
	if rowStop > f.Height {
		rowStop = f.Height
	}
	if rowStop <= rowStart {
		return 0
	}
	vals := make([]float64, 0, (rowStop-rowStart)*f.Width)
	for row := rowStart; row < rowStop; row++ {
		for col := 0; col < f.Width; col++ {
			d := float64(f.At(row, col))
			if d >= minValid && d <= maxValid && d > 0 {
				vals = append(vals, d)
			}
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	return stat.Quantile(0.5, stat.Empirical, vals, nil)
}

// voidMask marks samples that are invalid or beyond the valid range: holes
// and drop-offs the component filter turns into a void verdict.
func voidMask(f *Frame, minValid, maxValid float64) []bool {
	mask := make([]bool, len(f.Samples))
	for i, v := range f.Samples {
		d := float64(v)
		mask[i] = d <= 0 || d < minValid || d > maxValid
	}
	return mask
}
