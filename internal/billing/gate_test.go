package billing

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)}
}

func TestScanGateRejectsWhileBusy(t *testing.T) {
	g := NewScanGateWithClock(DefaultScanWindow, newFakeClock().Now)

	release, ok := g.Acquire("A")
	if !ok {
		t.Fatal("first acquire should succeed")
	}
	if _, ok := g.Acquire("B"); ok {
		t.Fatal("acquire while busy should fail, even for another key")
	}
	release()
	if g.Busy() {
		t.Fatal("gate still busy after release")
	}
	if _, ok := g.Acquire("B"); !ok {
		t.Fatal("different key should pass once released")
	}
}

func TestScanGateSameKeyWindow(t *testing.T) {
	clock := newFakeClock()
	g := NewScanGateWithClock(1500*time.Millisecond, clock.Now)

	release, ok := g.Acquire("A")
	if !ok {
		t.Fatal("first acquire should succeed")
	}
	release()

	clock.Advance(500 * time.Millisecond)
	if _, ok := g.Acquire("A"); ok {
		t.Fatal("same key inside window should be rejected")
	}

	clock.Advance(1100 * time.Millisecond)
	release, ok = g.Acquire("A")
	if !ok {
		t.Fatal("same key after window should pass")
	}
	release()
}

func TestScanGateReleaseIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	g := NewScanGateWithClock(time.Second, clock.Now)

	release, _ := g.Acquire("A")
	release()

	other, ok := g.Acquire("B")
	if !ok {
		t.Fatal("acquire B failed")
	}
	release()
	if !g.Busy() {
		t.Fatal("stale release freed a newer hold")
	}
	other()
}

func TestScanGateWindowCountsFromRelease(t *testing.T) {
	clock := newFakeClock()
	g := NewScanGateWithClock(time.Second, clock.Now)

	release, _ := g.Acquire("A")
	clock.Advance(2 * time.Second) // slow lookup
	release()

	clock.Advance(500 * time.Millisecond)
	if _, ok := g.Acquire("A"); ok {
		t.Fatal("window should start when the previous scan finished")
	}
}
