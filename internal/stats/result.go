package stats

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// Stat is one computed summary statistic. Durations are in milliseconds; count is a
// plain number. Present is false when the statistic has no defined value, which happens
// for every trend statistic when no request succeeded.
type Stat struct {
	Key     string  `json:"key"`
	Value   float64 `json:"value"`
	Present bool    `json:"present"`
}

// Result is the frozen outcome of a run.
type Result struct {
	ID        string           `json:"id"`
	StartedAt time.Time        `json:"started_at"`
	Elapsed   time.Duration    `json:"elapsed"`
	Count     int64            `json:"count"`
	Successes int64            `json:"successes"`
	Failures  map[string]int64 `json:"failures"`
	Bytes     int64            `json:"bytes"`
	Stats     []Stat           `json:"stats"`
}

// Get looks up a statistic by key.
func (r *Result) Get(key string) (Stat, bool) {
	for _, s := range r.Stats {
		if s.Key == key {
			return s, true
		}
	}
	return Stat{}, false
}

// Failed is the total number of failed requests across all outcomes.
func (r *Result) Failed() int64 {
	var n int64
	for _, v := range r.Failures {
		n += v
	}
	return n
}

// FailureKinds returns failure outcome names sorted by name.
func (r *Result) FailureKinds() []string {
	kinds := make([]string, 0, len(r.Failures))
	for k := range r.Failures {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Summary renders the requested statistics as key -> value, with absent values as nil.
func (r *Result) Summary() map[string]any {
	out := make(map[string]any, len(r.Stats))
	for _, s := range r.Stats {
		switch {
		case !s.Present:
			out[s.Key] = nil
		case s.Key == "count":
			out[s.Key] = int64(s.Value)
		default:
			out[s.Key] = s.Value
		}
	}
	return out
}

// FormatValue renders a statistic for humans.
func FormatValue(s Stat) string {
	if !s.Present {
		return "n/a"
	}
	if s.Key == "count" {
		return strconv.FormatInt(int64(s.Value), 10)
	}
	return strconv.FormatFloat(s.Value, 'f', 2, 64) + "ms"
}

// Report is the on-disk summary written next to a run.
type Report struct {
	ID        string           `json:"id"`
	StartedAt time.Time        `json:"started_at"`
	ElapsedMs float64          `json:"elapsed_ms"`
	Count     int64            `json:"count"`
	Successes int64            `json:"successes"`
	Failures  map[string]int64 `json:"failures"`
	Stats     map[string]any   `json:"stats"`
}

func (r *Result) Report() Report {
	return Report{
		ID:        r.ID,
		StartedAt: r.StartedAt,
		ElapsedMs: ms(r.Elapsed),
		Count:     r.Count,
		Successes: r.Successes,
		Failures:  r.Failures,
		Stats:     r.Summary(),
	}
}

func (r *Result) MarshalReport() ([]byte, error) {
	return json.MarshalIndent(r.Report(), "", "  ")
}
