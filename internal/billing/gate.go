package billing

import (
	"sync"
	"time"
)

// DefaultScanWindow is the same-key cool-down between accepted scans.
const DefaultScanWindow = 1500 * time.Millisecond

// ScanGate serializes scan handling for one terminal. While a scan is being
// resolved every other scan is dropped, and the same key is dropped again
// until the cool-down window has passed since the last accepted scan ended.
type ScanGate struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	busy    bool
	lastKey string
	lastAt  time.Time
}

func NewScanGate(window time.Duration) *ScanGate {
	return NewScanGateWithClock(window, time.Now)
}

// NewScanGateWithClock is NewScanGate with an injectable clock for tests.
func NewScanGateWithClock(window time.Duration, now func() time.Time) *ScanGate {
	if window < 0 {
		window = 0
	}
	if now == nil {
		now = time.Now
	}
	return &ScanGate{window: window, now: now}
}

// Acquire tries to take the gate for key. On success the returned release
// must be called once resolution finishes, whatever the outcome; calling it
// more than once is harmless.
func (g *ScanGate) Acquire(key string) (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return nil, false
	}
	now := g.now()
	if key == g.lastKey && !g.lastAt.IsZero() && now.Sub(g.lastAt) < g.window {
		return nil, false
	}

	g.busy = true
	g.lastKey = key
	g.lastAt = now

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.busy = false
			g.lastAt = g.now()
			g.mu.Unlock()
		})
	}, true
}

// Busy reports whether a scan is currently being resolved.
func (g *ScanGate) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}
