package sampling

import (
	"sync"
	"time"

	"github.com/carrybot-robotics/stairguard/internal/depth"
)

// Published is the snapshot the streaming/UI layer consumes: the latest
// frame, its raw classification, the smoothed label and the cycle timestamp.
type Published struct {
	Frame       *depth.Frame `json:"-"`
	Result      depth.Result `json:"result"`
	StableLabel depth.Label  `json:"stable_label"`
	Cycle       uint64       `json:"cycle"`
	Timestamp   time.Time    `json:"timestamp"`
}

// MetricPoint is one cycle's scalar evidence, kept in a bounded history ring
// for the tuning chart.
type MetricPoint struct {
	Timestamp    time.Time   `json:"timestamp"`
	Label        depth.Label `json:"label"`
	StableLabel  depth.Label `json:"stable_label"`
	MeanDistance float64     `json:"mean_distance"`
	HeightDiff   float64     `json:"height_diff"`
	VoidArea     int         `json:"void_area"`
}

const historyCapacity = 600 // ~20s at 30 fps

// Publisher holds the latest published state under a mutex so request
// handlers read snapshots without touching loop-owned state. Listeners are
// notified after each publish for push-style consumers (websocket hub,
// drive link).
type Publisher struct {
	mu        sync.RWMutex
	latest    Published
	history   []MetricPoint
	listeners []func(Published)
}

// NewPublisher creates an empty publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe registers a listener called synchronously after every publish,
// on the sampling loop goroutine. Listeners must not block; slow consumers
// should hand off to their own goroutine.
func (p *Publisher) Subscribe(fn func(Published)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Publish installs the cycle's state and appends to the metric history.
func (p *Publisher) Publish(pub Published) {
	p.mu.Lock()
	p.latest = pub
	p.history = append(p.history, MetricPoint{
		Timestamp:    pub.Timestamp,
		Label:        pub.Result.Label,
		StableLabel:  pub.StableLabel,
		MeanDistance: pub.Result.MeanDistance,
		HeightDiff:   pub.Result.HeightDiff,
		VoidArea:     pub.Result.VoidArea,
	})
	if len(p.history) > historyCapacity {
		p.history = p.history[len(p.history)-historyCapacity:]
	}
	listeners := p.listeners
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(pub)
	}
}

// Latest returns the most recent published state. The zero Published (cycle
// 0) means nothing has been published yet.
func (p *Publisher) Latest() Published {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// History returns a copy of the metric ring, oldest first.
func (p *Publisher) History() []MetricPoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]MetricPoint, len(p.history))
	copy(out, p.history)
	return out
}
