// Package params implements the live-tunable detection parameter store shared
// by the sampling loop, the HTTP parameter API and the config file watcher.
// All mutation goes through Store.Update, which validates each key against the
// registry below, applies valid keys atomically and emits one audit record per
// applied key.
package params

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// Kind is the declared value type of a parameter.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
)

// EnvPrefix is prepended to the upper-cased parameter name to form its
// environment variable, e.g. wall_dist_th -> STAIRGUARD_WALL_DIST_TH.
const EnvPrefix = "STAIRGUARD_"

// Spec declares one tunable parameter: its type, valid range and default.
// Bounds are inclusive unless the ExclMin/ExclMax flags open that end, so a
// ratio like roi_h_start can span [0,1) while roi_h_stop spans (0,1].
type Spec struct {
	Name    string
	Kind    Kind
	Min     float64
	Max     float64
	ExclMin bool
	ExclMax bool
	OddOnly bool // integer must be odd (median filter kernel)
	Default float64
}

// EnvVar returns the environment variable that overrides this parameter.
func (s Spec) EnvVar() string {
	return EnvPrefix + strings.ToUpper(s.Name)
}

// Registry is the full set of recognised parameters. Keys absent from this
// table are rejected by Store.Update and ignored by FileStore.Load.
var Registry = []Spec{
	{Name: "roi_h_start", Kind: KindFloat, Min: 0, Max: 1, ExclMax: true, Default: 0.30},
	{Name: "roi_h_stop", Kind: KindFloat, Min: 0, Max: 1, ExclMin: true, Default: 0.70},
	{Name: "roi_v_start", Kind: KindFloat, Min: 0, Max: 1, ExclMax: true, Default: 0.30},
	{Name: "roi_v_stop", Kind: KindFloat, Min: 0, Max: 1, ExclMin: true, Default: 0.70},
	{Name: "wall_dist_th", Kind: KindFloat, Min: 0, Max: 10, Default: 0.80},
	{Name: "step_height_th", Kind: KindFloat, Min: 0, Max: 5, ExclMin: true, Default: 0.10},
	{Name: "median_blur_ksize", Kind: KindInt, Min: 1, Max: 15, OddOnly: true, Default: 5},
	{Name: "min_valid_dist", Kind: KindFloat, Min: 0, Max: 100, Default: 0.15},
	{Name: "max_valid_dist", Kind: KindFloat, Min: 0, Max: 100, ExclMin: true, Default: 6.0},
	{Name: "noise_filtering_area_min_th", Kind: KindInt, Min: 1, Max: 1e6, Default: 1000},
	{Name: "edge_thresh", Kind: KindFloat, Min: 0, Max: 10, ExclMin: true, Default: 0.20},
	{Name: "row_norm_thresh", Kind: KindFloat, Min: 0, Max: 1, ExclMin: true, Default: 0.30},
	{Name: "min_component_area", Kind: KindInt, Min: 1, Max: 1e6, Default: 50},
	{Name: "min_component_height", Kind: KindInt, Min: 1, Max: 1e4, Default: 2},
	{Name: "smooth_window", Kind: KindInt, Min: 1, Max: 64, Default: 5},
	{Name: "detect_mode", Kind: KindInt, Min: 0, Max: 1, Default: 0},
}

var registryByName = func() map[string]Spec {
	m := make(map[string]Spec, len(Registry))
	for _, s := range Registry {
		m[s.Name] = s
	}
	return m
}()

// Lookup returns the Spec for name, if registered.
func Lookup(name string) (Spec, bool) {
	s, ok := registryByName[name]
	return s, ok
}

// Set is a flat name -> value mapping. Integer parameters are stored as whole
// float64 values so the set round-trips through JSON without type tags.
type Set map[string]float64

// Defaults returns a Set populated with every registered default.
func Defaults() Set {
	set := make(Set, len(Registry))
	for _, s := range Registry {
		set[s.Name] = s.Default
	}
	return set
}

// Clone returns an independent copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Float returns the named value, falling back to the registered default for
// unknown or missing keys. Classifier code reads through this so a partially
// populated snapshot still behaves.
func (s Set) Float(name string) float64 {
	if v, ok := s[name]; ok {
		return v
	}
	if spec, ok := registryByName[name]; ok {
		return spec.Default
	}
	return 0
}

// Int returns the named value truncated to int.
func (s Set) Int(name string) int {
	return int(s.Float(name))
}

// validate checks a raw JSON value against the spec, returning the normalised
// float64 or a reason string suitable for an API rejection response.
func (spec Spec) validate(raw any) (float64, string) {
	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case int:
		v = float64(x)
	default:
		return 0, fmt.Sprintf("expected a number, got %T", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, "value must be finite"
	}
	if spec.Kind == KindInt {
		if v != math.Trunc(v) {
			return 0, "expected an integer"
		}
		if spec.OddOnly && int(v)%2 == 0 {
			return 0, "expected an odd integer"
		}
	}
	if v < spec.Min || v > spec.Max ||
		(spec.ExclMin && v == spec.Min) || (spec.ExclMax && v == spec.Max) {
		return 0, "out of range " + spec.rangeString()
	}
	return v, ""
}

// rangeString renders the valid range in interval notation, open brackets on
// the exclusive ends.
func (spec Spec) rangeString() string {
	lo, hi := "[", "]"
	if spec.ExclMin {
		lo = "("
	}
	if spec.ExclMax {
		hi = ")"
	}
	return fmt.Sprintf("%s%g, %g%s", lo, spec.Min, spec.Max, hi)
}

// ParseOverride parses one textual name=value override, as supplied on the
// command line, against the registry.
func ParseOverride(name, value string) (float64, error) {
	spec, ok := Lookup(name)
	if !ok {
		return 0, fmt.Errorf("unknown parameter %q", name)
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter %s: %w", name, err)
	}
	v, reason := spec.validate(f)
	if reason != "" {
		return 0, fmt.Errorf("parameter %s: %s", name, reason)
	}
	return v, nil
}

// FromEnv returns overrides found in the process environment, one variable
// per parameter following the EnvPrefix convention. Unparseable or
// out-of-range values are skipped with the offending variable reported.
func FromEnv() (Set, []string) {
	set := make(Set)
	var skipped []string
	for _, spec := range Registry {
		raw, ok := os.LookupEnv(spec.EnvVar())
		if !ok || raw == "" {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			skipped = append(skipped, spec.EnvVar())
			continue
		}
		v, reason := spec.validate(f)
		if reason != "" {
			skipped = append(skipped, spec.EnvVar())
			continue
		}
		set[spec.Name] = v
	}
	return set, skipped
}
