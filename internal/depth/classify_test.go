package depth

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/carrybot-robotics/stairguard/internal/params"
)

// fullFrameSet returns defaults with the ROI opened to the whole frame and
// the median filter disabled, so tests control exactly what the classifier
// sees.
func fullFrameSet() params.Set {
	set := params.Defaults()
	set["roi_h_start"] = 0
	set["roi_h_stop"] = 1
	set["roi_v_start"] = 0
	set["roi_v_stop"] = 1
	set["median_blur_ksize"] = 1
	return set
}

// uniformFrame builds a width x height frame filled with d.
func uniformFrame(width, height int, d float32) *Frame {
	f := NewFrame(width, height)
	for i := range f.Samples {
		f.Samples[i] = d
	}
	return f
}

// fillRows overwrites rows [start, stop) with d.
func fillRows(f *Frame, start, stop int, d float32) {
	for row := start; row < stop; row++ {
		for col := 0; col < f.Width; col++ {
			f.Set(row, col, d)
		}
	}
}

func TestClassifyWall(t *testing.T) {
	f := uniformFrame(100, 100, 0.4)
	set := fullFrameSet()

	res := Classify(f, set)
	if res.Label != LabelWall {
		t.Fatalf("Label = %s, want %s (mean %.2f)", res.Label, LabelWall, res.MeanDistance)
	}
	if res.MeanDistance < 0.39 || res.MeanDistance > 0.41 {
		t.Errorf("MeanDistance = %v, want ~0.4", res.MeanDistance)
	}
	if !res.Label.Hazard() {
		t.Error("wall should be a hazard")
	}
}

func TestClassifyWallWinsOverVoid(t *testing.T) {
	// Close wall plus a void-sized hole: the wall verdict takes precedence.
	f := uniformFrame(100, 100, 0.4)
	fillRows(f, 10, 30, 0) // 2000 invalid pixels
	set := fullFrameSet()

	if res := Classify(f, set); res.Label != LabelWall {
		t.Errorf("Label = %s, want %s", res.Label, LabelWall)
	}
}

func TestClassifyDynamicWallThreshold(t *testing.T) {
	f := uniformFrame(100, 100, 1.0)
	fillRows(f, 70, 100, 2.0) // ground band reads 2.0, dynamic threshold 1.6
	set := fullFrameSet()
	set["wall_dist_th"] = 0

	res := Classify(f, set)
	if res.Label != LabelWall {
		t.Errorf("Label = %s, want %s (mean %.2f, ground %.2f)",
			res.Label, LabelWall, res.MeanDistance, res.GroundDistance)
	}
}

func TestClassifyStairsUp(t *testing.T) {
	// Ground band 2.0, front band 1.9: differential 0.10 over a 0.05
	// threshold reads as a riser ahead.
	f := uniformFrame(100, 100, 2.0)
	fillRows(f, 30, 60, 1.9)
	set := fullFrameSet()
	set["step_height_th"] = 0.05

	res := Classify(f, set)
	if res.Label != LabelStairsUp {
		t.Fatalf("Label = %s, want %s (diff %.3f)", res.Label, LabelStairsUp, res.HeightDiff)
	}
	if res.HeightDiff < 0.09 || res.HeightDiff > 0.11 {
		t.Errorf("HeightDiff = %v, want ~0.10", res.HeightDiff)
	}
}

func TestClassifyFloorSlantStaysClear(t *testing.T) {
	// On a flat floor the front band reads farther than the ground band.
	// That negative differential must never fire a stair label.
	f := uniformFrame(100, 100, 1.5)
	fillRows(f, 0, 60, 2.5) // upper rows (front band and above) farther
	set := fullFrameSet()

	res := Classify(f, set)
	if res.Label != LabelClear {
		t.Errorf("Label = %s, want %s (diff %.3f)", res.Label, LabelClear, res.HeightDiff)
	}
	if res.HeightDiff >= 0 {
		t.Errorf("HeightDiff = %v, want negative on the slanted floor", res.HeightDiff)
	}
}

func TestClassifyVoidByComponentArea(t *testing.T) {
	set := fullFrameSet()
	set["noise_filtering_area_min_th"] = 1000

	// 20x50 = 1000 invalid pixels: exactly at threshold, reads as void.
	f := uniformFrame(100, 100, 2.0)
	for row := 10; row < 30; row++ {
		for col := 0; col < 50; col++ {
			f.Set(row, col, 0)
		}
	}
	res := Classify(f, set)
	if res.Label != LabelVoid {
		t.Fatalf("Label = %s, want %s (void area %d)", res.Label, LabelVoid, res.VoidArea)
	}
	if res.VoidArea != 1000 {
		t.Errorf("VoidArea = %d, want 1000", res.VoidArea)
	}

	// 10x50 = 500: below threshold, noise.
	f = uniformFrame(100, 100, 2.0)
	for row := 10; row < 20; row++ {
		for col := 0; col < 50; col++ {
			f.Set(row, col, 0)
		}
	}
	res = Classify(f, set)
	if res.Label != LabelClear {
		t.Errorf("Label = %s, want %s (void area %d)", res.Label, LabelClear, res.VoidArea)
	}
}

func TestClassifyBeyondRangeCountsAsVoid(t *testing.T) {
	// Samples beyond max_valid_dist join the hole mask, the drop-off case.
	f := uniformFrame(100, 100, 2.0)
	fillRows(f, 10, 30, 50) // far past max_valid_dist 6.0
	set := fullFrameSet()

	if res := Classify(f, set); res.Label != LabelVoid {
		t.Errorf("Label = %s, want %s", res.Label, LabelVoid)
	}
}

func TestClassifyClear(t *testing.T) {
	f := uniformFrame(100, 100, 2.0)
	set := fullFrameSet()

	res := Classify(f, set)
	if res.Label != LabelClear {
		t.Fatalf("Label = %s, want %s", res.Label, LabelClear)
	}
	if res.Label.Hazard() {
		t.Error("clear should not be a hazard")
	}
	if res.ValidFraction != 1.0 {
		t.Errorf("ValidFraction = %v, want 1.0", res.ValidFraction)
	}
}

func TestClassifyUnknownInputs(t *testing.T) {
	set := fullFrameSet()

	if res := Classify(nil, set); res.Label != LabelUnknown {
		t.Errorf("nil frame: Label = %s, want %s", res.Label, LabelUnknown)
	}
	if res := Classify(&Frame{}, set); res.Label != LabelUnknown {
		t.Errorf("empty frame: Label = %s, want %s", res.Label, LabelUnknown)
	}

	// All samples invalid: no evidence, fail closed.
	res := Classify(NewFrame(100, 100), set)
	if res.Label != LabelUnknown {
		t.Errorf("all-invalid frame: Label = %s, want %s", res.Label, LabelUnknown)
	}
	if res.ValidFraction != 0 {
		t.Errorf("ValidFraction = %v, want 0", res.ValidFraction)
	}
}

func TestClassifyDegenerateROI(t *testing.T) {
	f := uniformFrame(100, 100, 2.0)
	set := fullFrameSet()
	set["roi_v_start"] = 0.9
	set["roi_v_stop"] = 0.1

	if res := Classify(f, set); res.Label != LabelUnknown {
		t.Errorf("inverted ROI: Label = %s, want %s", res.Label, LabelUnknown)
	}
}

func TestClassifyIsPure(t *testing.T) {
	f := uniformFrame(100, 100, 2.0)
	fillRows(f, 30, 60, 1.85)
	set := fullFrameSet()

	first := Classify(f, set)
	second := Classify(f, set)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("identical inputs produced different results (-first +second):\n%s", diff)
	}
}

func TestClassifyGradientDirections(t *testing.T) {
	set := fullFrameSet()
	set["detect_mode"] = ModeGradient

	// Sharp rise in the front band against a near ground: riser ahead.
	up := uniformFrame(100, 100, 2.0)
	fillRows(up, 30, 60, 1.5)
	res := Classify(up, set)
	if res.Mode != "gradient" {
		t.Fatalf("Mode = %s, want gradient", res.Mode)
	}
	if res.Label != LabelStairsUp {
		t.Errorf("riser: Label = %s, want %s (maxGrad %.3f, diff %.3f)",
			res.Label, LabelStairsUp, res.MaxRowGradient, res.HeightDiff)
	}

	// Front band far beyond the ground: descending edge.
	down := uniformFrame(100, 100, 2.0)
	fillRows(down, 30, 60, 4.0)
	res = Classify(down, set)
	if res.Label != LabelStairsDown {
		t.Errorf("drop: Label = %s, want %s (maxGrad %.3f, diff %.3f)",
			res.Label, LabelStairsDown, res.MaxRowGradient, res.HeightDiff)
	}

	// Uniform scene has no gradient to confirm.
	flat := uniformFrame(100, 100, 2.0)
	res = Classify(flat, set)
	if res.Label != LabelClear {
		t.Errorf("flat: Label = %s, want %s (maxGrad %.3f)", res.Label, LabelClear, res.MaxRowGradient)
	}
}

func TestClassifyGradientComponentGatesInclusive(t *testing.T) {
	// A three-row transition (2.00 -> 2.05 -> 2.10 -> 2.15) keeps every row
	// gradient at 0.05, under edge_thresh, so only the component path can
	// confirm the edge. After open and close the edge stripe is exactly
	// 294 pixels over 3 rows; a component meeting the minima exactly must
	// still qualify.
	f := uniformFrame(100, 100, 2.0)
	fillRows(f, 48, 49, 2.05)
	fillRows(f, 49, 50, 2.10)
	fillRows(f, 50, 100, 2.15)

	set := fullFrameSet()
	set["detect_mode"] = ModeGradient
	set["min_component_area"] = 294
	set["min_component_height"] = 3

	res := Classify(f, set)
	if res.Label != LabelStairsUp {
		t.Errorf("at-threshold component: Label = %s, want %s (area %d, maxGrad %.3f)",
			res.Label, LabelStairsUp, res.VoidArea, res.MaxRowGradient)
	}

	// One pixel over the minimum and the component no longer counts.
	set["min_component_area"] = 295
	if res := Classify(f, set); res.Label != LabelClear {
		t.Errorf("under-threshold component: Label = %s, want %s", res.Label, LabelClear)
	}
}

func TestClassifyGradientWallPrecedence(t *testing.T) {
	set := fullFrameSet()
	set["detect_mode"] = ModeGradient

	f := uniformFrame(100, 100, 0.3)
	fillRows(f, 50, 100, 0.6) // gradient present, but everything is close
	if res := Classify(f, set); res.Label != LabelWall {
		t.Errorf("Label = %s, want %s", res.Label, LabelWall)
	}
}
