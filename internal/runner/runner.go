package runner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"vuload/internal/stats"
)

var ErrRunnerUsed = errors.New("runner has already been run")

// Runner wires a workload to its virtual users, the gate and the aggregator.
type Runner struct {
	ID  string
	Cfg Config

	keys      []stats.Key
	gate      *Gate
	agg       *stats.Aggregator
	requester Requester
	users     []*VirtualUser
	inflight  atomic.Int64
	used      atomic.Bool

	observers []stats.Observer
	updates   StatsUpdateChan
	log       log.FieldLogger
}

type Option func(*Runner)

// WithRequester replaces the HTTP requester, e.g. with a stub in tests.
func WithRequester(r Requester) Option {
	return func(run *Runner) { run.requester = r }
}

// WithObserver registers an observer that sees every ingested sample.
func WithObserver(o stats.Observer) Option {
	return func(run *Runner) { run.observers = append(run.observers, o) }
}

// WithUpdates makes the runner push a snapshot onto ch every 200ms while running.
func WithUpdates(ch StatsUpdateChan) Option {
	return func(run *Runner) { run.updates = ch }
}

func WithLogger(l log.FieldLogger) Option {
	return func(run *Runner) { run.log = l }
}

// NewRunner validates cfg and prepares a run. Validation failures are returned as a
// *ConfigError and nothing is started.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	keys, err := stats.ParseKeys(cfg.SummaryTrendStats)
	if err != nil {
		return nil, errors.Wrap(err, "parsing summary stats")
	}
	kind, err := stats.ParseSketchKind(cfg.Sketch)
	if err != nil {
		return nil, errors.Wrap(err, "parsing sketch")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "generating run id")
	}

	r := &Runner{
		ID:   id.String(),
		Cfg:  cfg,
		keys: keys,
		gate: NewGate(cfg.Duration),
		log:  log.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.requester == nil {
		r.requester = NewHTTPRequester(cfg)
	}
	r.agg = stats.NewAggregator(kind, r.observers...)
	r.log = r.log.WithField("run_id", r.ID)

	r.users = make([]*VirtualUser, cfg.VUs)
	for i := range r.users {
		u := NewVirtualUser(i+1, r.gate, r.requester, r.agg, cfg.ThinkTime)
		u.inflight = &r.inflight
		u.log = r.log
		r.users[i] = u
	}
	return r, nil
}

// Run executes the workload and blocks until every virtual user has stopped. Cancelling
// ctx stops users early; the partial result is still returned.
func (r *Runner) Run(ctx context.Context) (*stats.Result, error) {
	if !r.used.CompareAndSwap(false, true) {
		return nil, ErrRunnerUsed
	}

	r.log.WithFields(log.Fields{
		"vus":      r.Cfg.VUs,
		"duration": r.Cfg.Duration,
		"method":   r.Cfg.Method,
		"url":      r.Cfg.URL,
	}).Info("starting run")

	tickCtx, stopTicks := context.WithCancel(ctx)
	defer stopTicks()

	startedAt := time.Now()
	r.gate.Start()
	ticksDone := make(chan struct{})
	if r.updates != nil {
		r.startTickLoop(tickCtx, 200*time.Millisecond, ticksDone)
	} else {
		close(ticksDone)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, u := range r.users {
		g.Go(func() error {
			return u.Run(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "running virtual users")
	}
	stopTicks()
	<-ticksDone

	elapsed := r.gate.Elapsed()
	res, err := r.agg.Finalize(r.keys, stats.RunInfo{
		ID:        r.ID,
		StartedAt: startedAt,
		Elapsed:   elapsed,
	})
	if err != nil {
		return nil, errors.Wrap(err, "finalizing results")
	}
	if r.updates != nil {
		r.sendUpdate()
	}

	r.log.WithFields(log.Fields{
		"elapsed":  elapsed.Round(time.Millisecond),
		"requests": res.Count,
		"failures": res.Failed(),
	}).Info("run finished")
	return res, nil
}

// startTickLoop starts a goroutine that pushes stats updates
func (r *Runner) startTickLoop(ctx context.Context, interval time.Duration, done chan<- struct{}) {
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sendUpdate()
			}
		}
	}()
}

func (r *Runner) sendUpdate() {
	// Non-blocking send
	select {
	case r.updates <- r.Snapshot():
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Snapshot returns live counters and latency percentiles.
func (r *Runner) Snapshot() stats.Snapshot {
	s := r.agg.Snapshot()
	s.Inflight = r.inflight.Load()
	s.Elapsed = r.gate.Elapsed()
	return s
}

func (r *Runner) Gate() *Gate {
	return r.gate
}

func (r *Runner) Inflight() int64 {
	return r.inflight.Load()
}

// Users exposes the virtual users, mostly for inspecting their states.
func (r *Runner) Users() []*VirtualUser {
	return r.users
}
