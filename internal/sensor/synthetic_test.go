package sensor

import (
	"context"
	"errors"
	"testing"

	"github.com/carrybot-robotics/stairguard/internal/depth"
	"github.com/carrybot-robotics/stairguard/internal/params"
)

func TestNewSyntheticRejectsUnknownScene(t *testing.T) {
	if _, err := NewSynthetic("lava", 1); err == nil {
		t.Fatal("expected an error for an unknown scene")
	}
}

func TestSyntheticScenesClassify(t *testing.T) {
	tests := []struct {
		scene string
		want  depth.Label
	}{
		{SceneClear, depth.LabelClear},
		{SceneWall, depth.LabelWall},
		{SceneStairsUp, depth.LabelStairsUp},
		{SceneVoid, depth.LabelVoid},
	}
	set := params.Defaults()
	for _, tt := range tests {
		t.Run(tt.scene, func(t *testing.T) {
			src, err := NewSynthetic(tt.scene, 42)
			if err != nil {
				t.Fatal(err)
			}
			defer src.Close()

			frame, err := src.NextFrame(context.Background())
			if err != nil {
				t.Fatalf("NextFrame: %v", err)
			}
			if frame.Width != 160 || frame.Height != 120 {
				t.Fatalf("frame is %dx%d, want 160x120", frame.Width, frame.Height)
			}
			res := depth.Classify(frame, set)
			if res.Label != tt.want {
				t.Errorf("scene %s classified as %s, want %s (%+v)", tt.scene, res.Label, tt.want, res)
			}
		})
	}
}

func TestSyntheticDeterministicPerSeed(t *testing.T) {
	a, _ := NewSynthetic(SceneClear, 7)
	b, _ := NewSynthetic(SceneClear, 7)
	fa, err := a.NextFrame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	fb, err := b.NextFrame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	for i := range fa.Samples {
		if fa.Samples[i] != fb.Samples[i] {
			t.Fatalf("sample %d differs between equal seeds: %v vs %v", i, fa.Samples[i], fb.Samples[i])
		}
	}
}

func TestSyntheticCloseStopsFrames(t *testing.T) {
	src, _ := NewSynthetic(SceneClear, 1)
	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := src.NextFrame(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("NextFrame after Close = %v, want ErrNoFrame", err)
	}
}

func TestSyntheticHonoursContext(t *testing.T) {
	src, _ := NewSynthetic(SceneClear, 1)
	defer src.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.NextFrame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("NextFrame with cancelled context = %v, want context.Canceled", err)
	}
}
