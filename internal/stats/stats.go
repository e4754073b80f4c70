package stats

import (
	"fmt"
	"sync"
	"time"
)

// Aggregator folds samples from every virtual user into one summary.
// Ingest is safe for concurrent use; all state sits behind a single mutex.
type Aggregator struct {
	mu sync.Mutex

	count     int64
	successes int64
	failures  map[Outcome]int64
	bytes     int64

	// Over successful samples only.
	sum    time.Duration
	min    time.Duration
	max    time.Duration
	sketch Sketch
	// live backs Snapshot. It is always a bounded hdr sketch so progress reads never sort
	// the exact buffer.
	live Sketch

	observers []Observer
}

func NewAggregator(kind SketchKind, observers ...Observer) *Aggregator {
	a := &Aggregator{
		failures:  make(map[Outcome]int64),
		sketch:    newSketch(kind),
		observers: observers,
	}
	a.live = a.sketch
	if kind != SketchHDR {
		a.live = newHDRSketch()
	}
	return a
}

// Ingest records one sample.
func (a *Aggregator) Ingest(s Sample) {
	a.mu.Lock()
	a.count++
	a.bytes += s.Bytes
	if s.Outcome.Failed() {
		a.failures[s.Outcome]++
	} else {
		a.successes++
		a.sum += s.Latency
		if a.successes == 1 || s.Latency < a.min {
			a.min = s.Latency
		}
		if s.Latency > a.max {
			a.max = s.Latency
		}
		a.sketch.Record(s.Latency)
		if a.live != a.sketch {
			a.live.Record(s.Latency)
		}
	}
	a.mu.Unlock()

	for _, o := range a.observers {
		o.Observe(s)
	}
}

// Snapshot is a cheap point-in-time view for progress displays. Its percentiles come from
// the bounded live histogram and are approximate.
type Snapshot struct {
	Requests int64
	Success  int64
	Fail     int64
	Bytes    int64
	Inflight int64
	Elapsed  time.Duration

	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs float64
}

// ErrorRate is the failed share of requests in percent.
func (s Snapshot) ErrorRate() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Fail) / float64(s.Requests) * 100
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Snapshot{
		Requests: a.count,
		Success:  a.successes,
		Fail:     a.count - a.successes,
		Bytes:    a.bytes,
	}
	if a.successes > 0 {
		q := a.live.Quantiles(50, 90, 99)
		s.P50Ms = ms(a.clamp(q[0]))
		s.P90Ms = ms(a.clamp(q[1]))
		s.P99Ms = ms(a.clamp(q[2]))
		s.MaxMs = ms(a.max)
	}
	return s
}

// AggregationError means the aggregate state contradicts itself. It points at a
// synchronization bug, never at bad input.
type AggregationError struct {
	Reason string
}

func (e *AggregationError) Error() string {
	return "aggregation invariant violated: " + e.Reason
}

// RunInfo carries run metadata that is copied into the Result.
type RunInfo struct {
	ID        string
	StartedAt time.Time
	Elapsed   time.Duration
}

// Finalize freezes the current state into a Result. The caller must make sure no
// sample can still be ingested.
func (a *Aggregator) Finalize(keys []Key, info RunInfo) (*Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.check(); err != nil {
		return nil, err
	}

	res := &Result{
		ID:        info.ID,
		StartedAt: info.StartedAt,
		Elapsed:   info.Elapsed,
		Count:     a.count,
		Successes: a.successes,
		Bytes:     a.bytes,
		Failures:  make(map[string]int64, len(a.failures)),
		Stats:     make([]Stat, 0, len(keys)),
	}
	for o, n := range a.failures {
		res.Failures[o.String()] = n
	}

	var ps []float64
	for _, k := range keys {
		if k.Kind == KindPercentile || k.Kind == KindMed {
			ps = append(ps, k.P)
		}
	}
	quantiles := a.sketch.Quantiles(ps...)

	qi := 0
	for _, k := range keys {
		st := Stat{Key: k.String()}
		switch k.Kind {
		case KindCount:
			st.Value, st.Present = float64(a.count), true
		case KindAvg:
			if a.successes > 0 {
				st.Value, st.Present = ms(a.sum)/float64(a.successes), true
			}
		case KindMin:
			if a.successes > 0 {
				st.Value, st.Present = ms(a.min), true
			}
		case KindMax:
			if a.successes > 0 {
				st.Value, st.Present = ms(a.max), true
			}
		case KindMed, KindPercentile:
			if a.successes > 0 {
				st.Value, st.Present = ms(a.clamp(quantiles[qi])), true
			}
			qi++
		}
		res.Stats = append(res.Stats, st)
	}
	return res, nil
}

func (a *Aggregator) check() error {
	var failed int64
	for _, n := range a.failures {
		failed += n
	}
	if a.successes+failed != a.count {
		return &AggregationError{Reason: fmt.Sprintf("%d successes + %d failures != %d samples", a.successes, failed, a.count)}
	}
	if a.sketch.Len() != a.successes {
		return &AggregationError{Reason: fmt.Sprintf("sketch holds %d latencies, want %d", a.sketch.Len(), a.successes)}
	}
	if a.successes > 0 && a.min > a.max {
		return &AggregationError{Reason: fmt.Sprintf("min %s > max %s", a.min, a.max)}
	}
	return nil
}

// clamp keeps approximate quantiles inside the observed range.
func (a *Aggregator) clamp(d time.Duration) time.Duration {
	if d < a.min {
		return a.min
	}
	if d > a.max {
		return a.max
	}
	return d
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
