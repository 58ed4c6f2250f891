package params

import (
	"math"
	"testing"
)

func TestValidateKinds(t *testing.T) {
	tests := []struct {
		name   string
		param  string
		raw    any
		want   float64
		reject bool
	}{
		{"float in range", "wall_dist_th", 0.65, 0.65, false},
		{"float below min", "wall_dist_th", -0.1, 0, true},
		{"float above max", "wall_dist_th", 11.0, 0, true},
		{"int accepts whole float", "smooth_window", 7.0, 7, false},
		{"int rejects fraction", "smooth_window", 5.5, 0, true},
		{"int from int", "smooth_window", 3, 3, false},
		{"odd only rejects even", "median_blur_ksize", 4.0, 0, true},
		{"odd only accepts odd", "median_blur_ksize", 7.0, 7, false},
		{"string rejected", "wall_dist_th", "0.5", 0, true},
		{"nan rejected", "wall_dist_th", math.NaN(), 0, true},
		{"inf rejected", "wall_dist_th", math.Inf(1), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok := Lookup(tt.param)
			if !ok {
				t.Fatalf("parameter %q not registered", tt.param)
			}
			got, reason := spec.validate(tt.raw)
			if tt.reject {
				if reason == "" {
					t.Fatalf("validate(%v) = %v, want rejection", tt.raw, got)
				}
				return
			}
			if reason != "" {
				t.Fatalf("validate(%v) rejected: %s", tt.raw, reason)
			}
			if got != tt.want {
				t.Errorf("validate(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestValidateExclusiveBounds(t *testing.T) {
	tests := []struct {
		name   string
		param  string
		raw    float64
		reject bool
	}{
		{"roi start takes zero", "roi_h_start", 0, false},
		{"roi start rejects one", "roi_h_start", 1, true},
		{"roi stop rejects zero", "roi_h_stop", 0, true},
		{"roi stop takes one", "roi_h_stop", 1, false},
		{"vertical start rejects one", "roi_v_start", 1, true},
		{"vertical stop rejects zero", "roi_v_stop", 0, true},
		{"step threshold rejects zero", "step_height_th", 0, true},
		{"step threshold takes max", "step_height_th", 5, false},
		{"max valid dist rejects zero", "max_valid_dist", 0, true},
		{"edge threshold rejects zero", "edge_thresh", 0, true},
		{"row norm rejects zero", "row_norm_thresh", 0, true},
		// Zero wall_dist_th stays legal, it selects the dynamic threshold.
		{"wall threshold takes zero", "wall_dist_th", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok := Lookup(tt.param)
			if !ok {
				t.Fatalf("parameter %q not registered", tt.param)
			}
			got, reason := spec.validate(tt.raw)
			if tt.reject && reason == "" {
				t.Errorf("validate(%v) = %v, want rejection", tt.raw, got)
			}
			if !tt.reject && reason != "" {
				t.Errorf("validate(%v) rejected: %s", tt.raw, reason)
			}
		})
	}
}

func TestDefaultsCoversRegistry(t *testing.T) {
	defaults := Defaults()
	if len(defaults) != len(Registry) {
		t.Fatalf("Defaults() has %d entries, registry has %d", len(defaults), len(Registry))
	}
	for _, spec := range Registry {
		v, ok := defaults[spec.Name]
		if !ok {
			t.Errorf("default missing for %s", spec.Name)
			continue
		}
		if nv, reason := spec.validate(v); reason != "" || nv != v {
			t.Errorf("default for %s does not validate: %v (%s)", spec.Name, v, reason)
		}
	}
}

func TestSetFloatFallsBackToDefault(t *testing.T) {
	set := Set{"wall_dist_th": 1.5}
	if got := set.Float("wall_dist_th"); got != 1.5 {
		t.Errorf("Float(wall_dist_th) = %v, want 1.5", got)
	}
	if got := set.Float("step_height_th"); got != 0.10 {
		t.Errorf("Float(step_height_th) = %v, want registered default 0.10", got)
	}
	if got := set.Int("smooth_window"); got != 5 {
		t.Errorf("Int(smooth_window) = %v, want 5", got)
	}
}

func TestParseOverride(t *testing.T) {
	v, err := ParseOverride("wall_dist_th", "0.6")
	if err != nil {
		t.Fatalf("ParseOverride: %v", err)
	}
	if v != 0.6 {
		t.Errorf("ParseOverride = %v, want 0.6", v)
	}
	if _, err := ParseOverride("no_such_param", "1"); err == nil {
		t.Error("expected error for unknown parameter")
	}
	if _, err := ParseOverride("wall_dist_th", "fast"); err == nil {
		t.Error("expected error for non-numeric value")
	}
	if _, err := ParseOverride("median_blur_ksize", "4"); err == nil {
		t.Error("expected error for even kernel size")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("STAIRGUARD_WALL_DIST_TH", "0.55")
	t.Setenv("STAIRGUARD_SMOOTH_WINDOW", "9")
	t.Setenv("STAIRGUARD_STEP_HEIGHT_TH", "not-a-number")
	t.Setenv("STAIRGUARD_MEDIAN_BLUR_KSIZE", "4")

	set, skipped := FromEnv()
	if got := set["wall_dist_th"]; got != 0.55 {
		t.Errorf("wall_dist_th = %v, want 0.55", got)
	}
	if got := set["smooth_window"]; got != 9 {
		t.Errorf("smooth_window = %v, want 9", got)
	}
	if _, ok := set["step_height_th"]; ok {
		t.Error("unparseable env value should be skipped, not applied")
	}
	if _, ok := set["median_blur_ksize"]; ok {
		t.Error("even kernel size should be skipped")
	}
	if len(skipped) != 2 {
		t.Errorf("skipped = %v, want exactly the two invalid variables", skipped)
	}
}
