package sensor

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/carrybot-robotics/stairguard/internal/depth"
)

// Scene names accepted by NewSynthetic.
const (
	SceneClear     = "clear"
	SceneWall      = "wall"
	SceneStairsUp  = "stairs_up"
	SceneVoid      = "void"
	SceneCorridor  = "corridor" // clear, then wall, then clear, cycling
	defaultWidth   = 160
	defaultHeight  = 120
	defaultGround  = 2.0 // meters to the floor in the ROI
	defaultFPS     = 30
	speckleFrac    = 0.02
	frameJitterStd = 0.01
)

// Synthetic generates scripted depth frames with RealSense-like speckle
// noise. It stands in for the hardware driver so the pipeline can run and be
// tuned without a sensor attached.
type Synthetic struct {
	scene  string
	width  int
	height int
	period time.Duration

	mu     sync.Mutex
	rng    *rand.Rand
	frames int
	closed bool
}

// NewSynthetic creates a source for the named scene. Unknown scene names are
// an error so a typo on the command line fails at startup, not mid-run.
func NewSynthetic(scene string, seed int64) (*Synthetic, error) {
	switch scene {
	case SceneClear, SceneWall, SceneStairsUp, SceneVoid, SceneCorridor:
	default:
		return nil, fmt.Errorf("sensor: unknown synthetic scene %q", scene)
	}
	return &Synthetic{
		scene:  scene,
		width:  defaultWidth,
		height: defaultHeight,
		period: time.Second / defaultFPS,
		rng:    rand.New(rand.NewSource(seed)),
	}, nil
}

// NextFrame waits one frame period, then renders the next scripted frame.
func (s *Synthetic) NextFrame(ctx context.Context) (*depth.Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrNoFrame
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.period):
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames++
	return s.render(), nil
}

// Close stops the source; subsequent NextFrame calls return ErrNoFrame.
func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// render builds one frame for the configured scene. Called with s.mu held.
func (s *Synthetic) render() *depth.Frame {
	scene := s.scene
	if scene == SceneCorridor {
		// Alternate clear and wall every two seconds of frames.
		if (s.frames/(2*defaultFPS))%2 == 1 {
			scene = SceneWall
		} else {
			scene = SceneClear
		}
	}

	f := depth.NewFrame(s.width, s.height)
	f.Timestamp = time.Now()

	for row := 0; row < s.height; row++ {
		for col := 0; col < s.width; col++ {
			f.Set(row, col, s.sample(scene, row))
		}
	}

	// Speckle: a small fraction of samples drop out entirely.
	dropouts := int(speckleFrac * float64(s.width*s.height))
	for i := 0; i < dropouts; i++ {
		f.Samples[s.rng.Intn(len(f.Samples))] = 0
	}
	return f
}

// sample returns the distance for one pixel of the scene, with Gaussian
// jitter. Row 0 is the top of the image (far field), the bottom rows look at
// the floor just ahead of the wheels.
func (s *Synthetic) sample(scene string, row int) float32 {
	frac := float64(row) / float64(s.height) // 0 top, 1 bottom
	var d float64
	switch scene {
	case SceneWall:
		d = 0.4
	case SceneStairsUp:
		// Front band reads closer than the ground band: a riser ahead.
		if frac < 0.55 {
			d = defaultGround - 0.8
		} else {
			d = defaultGround
		}
	case SceneVoid:
		// Floor ahead is missing: the middle of the view returns nothing.
		if frac >= 0.45 && frac < 0.75 {
			return 0
		}
		d = defaultGround
	default: // clear
		// Flat floor: distance grows gently toward the far field.
		d = defaultGround + (1-frac)*1.0
	}
	d += s.rng.NormFloat64() * frameJitterStd
	if d < 0 {
		d = 0
	}
	return float32(d)
}
