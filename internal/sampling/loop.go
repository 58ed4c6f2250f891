// Package sampling runs the process-wide acquisition loop: one goroutine
// pulls frames from the sensor, classifies them against a fresh parameter
// snapshot, feeds the temporal smoother and publishes the result. The loop is
// the sole owner of the smoother; everything else reads through the
// publisher.
package sampling

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/carrybot-robotics/stairguard/internal/depth"
	"github.com/carrybot-robotics/stairguard/internal/monitoring"
	"github.com/carrybot-robotics/stairguard/internal/params"
	"github.com/carrybot-robotics/stairguard/internal/sensor"
)

// State is the loop's lifecycle state, readable for diagnostics.
type State int32

const (
	StateIdle State = iota
	StateSampling
	StateClassifying
	StatePublishing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateClassifying:
		return "classifying"
	case StatePublishing:
		return "publishing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultMaxConsecutiveFailures bounds the retry run before an acquisition
// failure escalates to a fatal stop.
const DefaultMaxConsecutiveFailures = 30

// ErrSensorLost is returned by Run after the consecutive-failure budget is
// exhausted, the only fatal condition in the pipeline core.
var ErrSensorLost = errors.New("sampling: sensor acquisition failed repeatedly")

// Config wires a Loop.
type Config struct {
	Source    sensor.FrameSource
	Store     *params.Store
	Files     *params.FileStore // may be nil (no durable document)
	Publisher *Publisher
	// MaxConsecutiveFailures overrides the default failure budget when > 0.
	MaxConsecutiveFailures int
}

// Loop drives the Sampling -> Classifying -> Publishing cycle until its
// context is cancelled or the sensor is lost.
type Loop struct {
	source      sensor.FrameSource
	store       *params.Store
	files       *params.FileStore
	publisher   *Publisher
	smoother    *depth.Smoother
	maxFailures int

	state    atomic.Int32
	cycle    uint64
	failures int
}

// NewLoop builds a loop. The smoother window starts from the current
// snapshot and follows the smooth_window parameter every cycle.
func NewLoop(cfg Config) (*Loop, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("sampling: nil frame source")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("sampling: nil parameter store")
	}
	if cfg.Publisher == nil {
		return nil, fmt.Errorf("sampling: nil publisher")
	}
	maxFailures := cfg.MaxConsecutiveFailures
	if maxFailures <= 0 {
		maxFailures = DefaultMaxConsecutiveFailures
	}
	return &Loop{
		source:      cfg.Source,
		store:       cfg.Store,
		files:       cfg.Files,
		publisher:   cfg.Publisher,
		smoother:    depth.NewSmoother(cfg.Store.Snapshot().Int("smooth_window")),
		maxFailures: maxFailures,
	}, nil
}

// Run executes cycles until ctx is cancelled (returns nil after finishing
// the in-flight cycle) or acquisition fails beyond the budget (returns
// ErrSensorLost). Run must be called from exactly one goroutine.
func (l *Loop) Run(ctx context.Context) error {
	defer l.state.Store(int32(StateStopped))
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := l.Cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			l.failures++
			monitoring.Logf("frame acquisition failed (%d/%d): %v", l.failures, l.maxFailures, err)
			if l.failures >= l.maxFailures {
				return fmt.Errorf("%w: last error: %v", ErrSensorLost, err)
			}
			continue
		}
		l.failures = 0
	}
}

// Cycle runs exactly one acquisition+classification pass. Exposed for the
// headless validation mode, which wants a single pass and an artifact.
func (l *Loop) Cycle(ctx context.Context) error {
	// Pick up external config edits before reading the snapshot, so the
	// cycle classifies with the merged values.
	if l.files != nil {
		if edited, err := l.files.PollExternalChange(); err != nil {
			monitoring.Logf("config poll failed: %v", err)
		} else if edited != nil {
			res := l.store.UpdateValues(edited, params.SourceFile)
			monitoring.Logf("external config edit merged: %d applied, %d rejected",
				len(res.Applied), len(res.Rejected))
		}
	}
	snapshot := l.store.Snapshot()

	l.state.Store(int32(StateSampling))
	frame, err := l.source.NextFrame(ctx)
	if err != nil {
		return err
	}

	l.state.Store(int32(StateClassifying))
	result := depth.Classify(frame, snapshot)
	l.smoother.Resize(snapshot.Int("smooth_window"))
	stable := l.smoother.Push(result)

	l.state.Store(int32(StatePublishing))
	l.cycle++
	l.publisher.Publish(Published{
		Frame:       frame,
		Result:      result,
		StableLabel: stable,
		Cycle:       l.cycle,
		Timestamp:   time.Now(),
	})
	return nil
}

// State returns the loop's current lifecycle state for diagnostics.
func (l *Loop) State() State { return State(l.state.Load()) }
