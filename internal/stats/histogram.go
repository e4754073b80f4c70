package stats

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/pkg/errors"
)

// SketchKind selects how order statistics are kept.
type SketchKind string

const (
	// SketchExact keeps every latency and answers percentiles exactly.
	SketchExact SketchKind = "exact"
	// SketchHDR keeps a fixed-size HdrHistogram; percentiles are approximate.
	SketchHDR SketchKind = "hdr"
)

// ParseSketchKind maps a config value to a SketchKind. Empty means exact.
func ParseSketchKind(s string) (SketchKind, error) {
	switch SketchKind(s) {
	case "", SketchExact:
		return SketchExact, nil
	case SketchHDR:
		return SketchHDR, nil
	}
	return "", errors.Errorf("unknown sketch %q (want %q or %q)", s, SketchExact, SketchHDR)
}

// Sketch answers order-statistic queries over recorded latencies.
// Implementations are not safe for concurrent use; the Aggregator serializes access.
type Sketch interface {
	Record(d time.Duration)
	Len() int64
	// Quantiles returns one value per requested percentile, in the same order.
	Quantiles(ps ...float64) []time.Duration
}

func newSketch(kind SketchKind) Sketch {
	if kind == SketchHDR {
		return newHDRSketch()
	}
	return &exactSketch{}
}

type exactSketch struct {
	values []time.Duration
	sorted bool
}

func (s *exactSketch) Record(d time.Duration) {
	s.values = append(s.values, d)
	s.sorted = false
}

func (s *exactSketch) Len() int64 {
	return int64(len(s.values))
}

func (s *exactSketch) Quantiles(ps ...float64) []time.Duration {
	out := make([]time.Duration, len(ps))
	if len(s.values) == 0 {
		return out
	}
	if !s.sorted {
		sortLatencies(s.values)
		s.sorted = true
	}
	for i, p := range ps {
		out[i], _ = Percentile(s.values, p)
	}
	return out
}

// hdrSketch records microseconds. Values outside 1µs..10min are clamped.
type hdrSketch struct {
	hist *hdrhistogram.Histogram
}

const (
	hdrMinUs = 1
	hdrMaxUs = int64(10 * time.Minute / time.Microsecond)
)

func newHDRSketch() *hdrSketch {
	// 1us to 10min, 3 significant figures
	return &hdrSketch{hist: hdrhistogram.New(hdrMinUs, hdrMaxUs, 3)}
}

func (s *hdrSketch) Record(d time.Duration) {
	us := d.Microseconds()
	if us < hdrMinUs {
		us = hdrMinUs
	}
	if us > hdrMaxUs {
		us = hdrMaxUs
	}
	// Cannot fail after clamping.
	_ = s.hist.RecordValue(us)
}

func (s *hdrSketch) Len() int64 {
	return s.hist.TotalCount()
}

func (s *hdrSketch) Quantiles(ps ...float64) []time.Duration {
	out := make([]time.Duration, len(ps))
	if s.hist.TotalCount() == 0 {
		return out
	}
	for i, p := range ps {
		out[i] = time.Duration(s.hist.ValueAtQuantile(p)) * time.Microsecond
	}
	return out
}
