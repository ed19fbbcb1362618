package embedding

import (
	"sync"
	"time"
)

// Tracker keeps a rolling window of provider call outcomes and answers the
// single health question the matching path asks before attempting vector
// search. An empty window is healthy: the provider gets the benefit of the
// doubt until real traffic proves otherwise.
type Tracker struct {
	mu          sync.Mutex
	window      []bool // true = success
	idx         int
	filled      int
	maxFailRate float64
	lastLatency time.Duration
	lastSuccess time.Time
}

// NewTracker creates a tracker over the last windowSize outcomes. The
// provider is reported unhealthy once the failure ratio in the window
// exceeds maxFailRate.
func NewTracker(windowSize int, maxFailRate float64) *Tracker {
	if windowSize <= 0 {
		windowSize = 20
	}
	if maxFailRate <= 0 || maxFailRate > 1 {
		maxFailRate = 0.5
	}
	return &Tracker{
		window:      make([]bool, windowSize),
		maxFailRate: maxFailRate,
	}
}

// RecordSuccess records a successful provider call and its latency.
func (t *Tracker) RecordSuccess(latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.push(true)
	t.lastLatency = latency
	t.lastSuccess = time.Now()
}

// RecordFailure records a failed provider call.
func (t *Tracker) RecordFailure() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.push(false)
}

// IsHealthy reports whether the failure ratio over the window is within
// bounds. This is the one decision point for vector-path eligibility.
func (t *Tracker) IsHealthy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filled == 0 {
		return true
	}
	fails := 0
	for i := 0; i < t.filled; i++ {
		if !t.window[i] {
			fails++
		}
	}
	return float64(fails)/float64(t.filled) <= t.maxFailRate
}

// Snapshot returns the current success ratio, last observed latency and the
// number of samples in the window. Used by the health endpoint.
func (t *Tracker) Snapshot() (successRate float64, lastLatency time.Duration, samples int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.filled == 0 {
		return 1, t.lastLatency, 0
	}
	ok := 0
	for i := 0; i < t.filled; i++ {
		if t.window[i] {
			ok++
		}
	}
	return float64(ok) / float64(t.filled), t.lastLatency, t.filled
}

func (t *Tracker) push(success bool) {
	t.window[t.idx] = success
	t.idx = (t.idx + 1) % len(t.window)
	if t.filled < len(t.window) {
		t.filled++
	}
}
