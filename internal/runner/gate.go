package runner

import (
	"sync"
	"sync/atomic"
	"time"
)

// Gate tracks elapsed run time against a fixed duration.
//
// Elapsed time is read from a monotonic clock captured when the gate is created, so wall
// clock adjustments do not move it. All queries are lock-free and safe from any goroutine.
type Gate struct {
	duration time.Duration
	base     time.Time
	now      func() time.Time

	// Offset of the start instant from base, plus one. Zero means not started.
	startOffset atomic.Int64

	once sync.Once
	done chan struct{}
}

func NewGate(d time.Duration) *Gate {
	return newGateWithClock(d, time.Now)
}

func newGateWithClock(d time.Duration, now func() time.Time) *Gate {
	return &Gate{
		duration: d,
		base:     now(),
		now:      now,
		done:     make(chan struct{}),
	}
}

// Start records the start instant. Later calls are no-ops.
func (g *Gate) Start() {
	g.once.Do(func() {
		g.startOffset.Store(int64(g.now().Sub(g.base)) + 1)
		time.AfterFunc(g.duration, func() { close(g.done) })
	})
}

// Started reports whether Start was called.
func (g *Gate) Started() bool {
	return g.startOffset.Load() != 0
}

// Elapsed returns the time since Start, or zero before it.
func (g *Gate) Elapsed() time.Duration {
	off := g.startOffset.Load()
	if off == 0 {
		return 0
	}
	return g.now().Sub(g.base) - time.Duration(off-1)
}

// Expired reports whether the configured duration has fully elapsed.
func (g *Gate) Expired() bool {
	return g.Started() && g.Elapsed() >= g.duration
}

// Remaining is the time left before expiry, never negative.
func (g *Gate) Remaining() time.Duration {
	if !g.Started() {
		return g.duration
	}
	r := g.duration - g.Elapsed()
	if r < 0 {
		return 0
	}
	return r
}

func (g *Gate) Duration() time.Duration {
	return g.duration
}

// Done is closed once the duration has elapsed after Start. Expired is authoritative;
// Done only exists to wake up waiters.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}
