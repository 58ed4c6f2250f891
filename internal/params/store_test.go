package params

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewStoreLayering(t *testing.T) {
	file := Set{"wall_dist_th": 0.5, "step_height_th": 0.2}
	env := Set{"wall_dist_th": 0.6}
	cli := Set{"smooth_window": 9, "bogus_key": 1}

	st := NewStore(file, env, cli)
	snap := st.Snapshot()

	if got := snap["wall_dist_th"]; got != 0.6 {
		t.Errorf("wall_dist_th = %v, want env layer 0.6 over file 0.5", got)
	}
	if got := snap["step_height_th"]; got != 0.2 {
		t.Errorf("step_height_th = %v, want file layer 0.2", got)
	}
	if got := snap["smooth_window"]; got != 9 {
		t.Errorf("smooth_window = %v, want cli layer 9", got)
	}
	if _, ok := snap["bogus_key"]; ok {
		t.Error("unregistered key leaked through layering")
	}
	if got := snap["min_valid_dist"]; got != 0.15 {
		t.Errorf("min_valid_dist = %v, want untouched default 0.15", got)
	}
}

func TestUpdateMixedBatch(t *testing.T) {
	st := NewStore()
	res := st.Update(map[string]any{
		"wall_dist_th":   0.7,
		"smooth_window":  3.0,
		"unknown_param":  1.0,
		"step_height_th": -5.0,
	}, SourceNetwork)

	wantApplied := Set{"wall_dist_th": 0.7, "smooth_window": 3}
	if diff := cmp.Diff(wantApplied, res.Applied); diff != "" {
		t.Errorf("Applied mismatch (-want +got):\n%s", diff)
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("Rejected = %v, want 2 entries", res.Rejected)
	}
	if _, ok := res.Rejected["unknown_param"]; !ok {
		t.Error("unknown_param should be rejected")
	}
	if _, ok := res.Rejected["step_height_th"]; !ok {
		t.Error("out-of-range step_height_th should be rejected")
	}

	snap := st.Snapshot()
	if got := snap["wall_dist_th"]; got != 0.7 {
		t.Errorf("valid key not applied, wall_dist_th = %v", got)
	}
	if got := snap["step_height_th"]; got != 0.10 {
		t.Errorf("rejected key mutated the store, step_height_th = %v", got)
	}
}

func TestUpdateAllInvalidChangesNothing(t *testing.T) {
	st := NewStore()
	before := st.Snapshot()

	var notified bool
	st.Observe(func([]Change) { notified = true })

	res := st.Update(map[string]any{"wall_dist_th": "fast"}, SourceNetwork)
	if len(res.Applied) != 0 {
		t.Fatalf("Applied = %v, want empty", res.Applied)
	}
	if notified {
		t.Error("observers notified for a batch with zero valid keys")
	}
	if diff := cmp.Diff(before, st.Snapshot()); diff != "" {
		t.Errorf("store mutated by invalid batch (-want +got):\n%s", diff)
	}
}

func TestObserversReceiveOneChangePerAppliedKey(t *testing.T) {
	st := NewStore()
	var got []Change
	st.Observe(func(changes []Change) { got = append(got, changes...) })

	st.Update(map[string]any{"wall_dist_th": 0.7, "bad_key": 1.0}, SourceFile)
	st.Update(map[string]any{"wall_dist_th": 0.9}, SourceNetwork)

	if len(got) != 2 {
		t.Fatalf("observed %d changes, want 2", len(got))
	}
	for _, ch := range got {
		if ch.Name != "wall_dist_th" {
			t.Errorf("unexpected change for %s", ch.Name)
		}
	}
	if got[0].Source != SourceFile || got[1].Source != SourceNetwork {
		t.Errorf("sources = %s, %s; want file then network", got[0].Source, got[1].Source)
	}
	if got[1].Old != 0.7 || got[1].New != 0.9 {
		t.Errorf("second change old/new = %v/%v, want 0.7/0.9", got[1].Old, got[1].New)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	st := NewStore()
	snap := st.Snapshot()
	snap["wall_dist_th"] = -999

	if got := st.Snapshot()["wall_dist_th"]; got != 0.80 {
		t.Errorf("mutating a snapshot leaked into the store: %v", got)
	}
}

func TestConcurrentUpdatesAndSnapshots(t *testing.T) {
	st := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(v float64) {
			defer wg.Done()
			st.Update(map[string]any{"wall_dist_th": 0.5 + v/100}, SourceNetwork)
		}(float64(i))
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := st.Snapshot()
				if v := snap["wall_dist_th"]; v < 0.5 || v > 0.8 {
					t.Errorf("snapshot saw out-of-band value %v", v)
					return
				}
			}
		}()
	}
	wg.Wait()
}
