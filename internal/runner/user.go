package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var ErrVirtualUserStarted = errors.New("virtual user already started")

// VirtualUser issues requests back to back until the gate expires. The next request only
// starts once the previous one has completed.
type VirtualUser struct {
	ID int

	gate      *Gate
	requester Requester
	sink      Sink
	thinkTime time.Duration
	inflight  *atomic.Int64
	log       log.FieldLogger

	state      atomic.Int32
	iterations atomic.Int64
}

func NewVirtualUser(id int, gate *Gate, requester Requester, sink Sink, thinkTime time.Duration) *VirtualUser {
	return &VirtualUser{
		ID:        id,
		gate:      gate,
		requester: requester,
		sink:      sink,
		thinkTime: thinkTime,
		inflight:  new(atomic.Int64),
		log:       log.StandardLogger(),
	}
}

func (u *VirtualUser) State() State {
	return State(u.state.Load())
}

// Iterations is the number of samples this user has forwarded.
func (u *VirtualUser) Iterations() int64 {
	return u.iterations.Load()
}

// Run loops until the gate expires or ctx is cancelled. Expiry is only checked between
// requests; a request that is already in flight is allowed to finish.
func (u *VirtualUser) Run(ctx context.Context) error {
	if !u.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrVirtualUserStarted
	}
	defer u.state.Store(int32(StateStopped))
	// The runner starts the gate before spawning users; this only covers standalone use.
	u.gate.Start()

	u.log.WithField("vu", u.ID).Debug("virtual user started")
	for !u.gate.Expired() && ctx.Err() == nil {
		u.inflight.Add(1)
		s := u.requester.Do(ctx)
		u.inflight.Add(-1)

		// Requests torn down by an interrupt say nothing about the target.
		if ctx.Err() != nil && s.Outcome.Failed() && errors.Is(s.Err, context.Canceled) {
			break
		}
		s.VU = u.ID
		u.sink.Ingest(s)
		u.iterations.Add(1)

		if u.thinkTime > 0 {
			u.think(ctx)
		}
	}
	u.log.WithField("vu", u.ID).WithField("iterations", u.iterations.Load()).Debug("virtual user stopped")
	return nil
}

func (u *VirtualUser) think(ctx context.Context) {
	wait := u.thinkTime
	if r := u.gate.Remaining(); r < wait {
		wait = r
	}
	if wait <= 0 {
		return
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
	case <-u.gate.Done():
	case <-ctx.Done():
	}
}
