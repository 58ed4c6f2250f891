package depth

// Smoother stabilises the per-frame label with a bounded sliding window and
// majority vote. Single-frame classification is noisy under sensor jitter and
// transient occlusion; smoothing trades up to window-length frames of latency
// for a stable verdict. The smoother is single-writer: only the sampling loop
// may call Push, and it owns no locks.
type Smoother struct {
	window  int
	history []Result
}

// NewSmoother creates a smoother with the given window length. A window of 1
// disables smoothing (pure passthrough).
func NewSmoother(window int) *Smoother {
	if window < 1 {
		window = 1
	}
	return &Smoother{window: window}
}

// Resize adjusts the window between pushes when the smooth_window parameter
// changes. Shrinking drops the oldest entries; growing leaves the gap to fill
// as new results arrive.
func (s *Smoother) Resize(window int) {
	if window < 1 {
		window = 1
	}
	s.window = window
	if len(s.history) > window {
		s.history = append(s.history[:0], s.history[len(s.history)-window:]...)
	}
}

// Push appends one result and returns the stabilised label: the majority
// vote over the current window, ties broken by the most recent result.
func (s *Smoother) Push(r Result) Label {
	s.history = append(s.history, r)
	if len(s.history) > s.window {
		s.history = s.history[len(s.history)-s.window:]
	}
	return s.stable()
}

// Window returns the configured window length.
func (s *Smoother) Window() int { return s.window }

// History returns a copy of the buffered results, oldest first, for the
// publication surface.
func (s *Smoother) History() []Result {
	out := make([]Result, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Smoother) stable() Label {
	if len(s.history) == 0 {
		return LabelUnknown
	}
	counts := make(map[Label]int, 4)
	for _, r := range s.history {
		counts[r.Label]++
	}
	maxCount := 0
	for _, n := range counts {
		if n > maxCount {
			maxCount = n
		}
	}
	// Ties break toward the most recent result: the first label at the
	// maximum count, scanning newest to oldest.
	for i := len(s.history) - 1; i >= 0; i-- {
		if label := s.history[i].Label; counts[label] == maxCount {
			return label
		}
	}
	return LabelUnknown
}
