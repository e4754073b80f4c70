package runner

import (
	"time"

	"vuload/internal/stats"
)

const (
	DefaultMethod  = "GET"
	DefaultTimeout = 60 * time.Second
)

// Config is a workload declaration. Field tags follow k6 option names so that a k6-style
// options block can be loaded as-is.
type Config struct {
	Name    string            `mapstructure:"name" json:"name,omitempty"`
	URL     string            `mapstructure:"url" json:"url"`
	Method  string            `mapstructure:"method" json:"method"`
	Headers map[string]string `mapstructure:"headers" json:"headers,omitempty"`
	Body    string            `mapstructure:"body" json:"body,omitempty"`

	VUs       int           `mapstructure:"vus" json:"vus"`
	Duration  time.Duration `mapstructure:"duration" json:"duration"`
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout"`
	ThinkTime time.Duration `mapstructure:"thinkTime" json:"think_time,omitempty"`

	// FailOnStatus counts responses outside 2xx/3xx as failures.
	FailOnStatus          bool `mapstructure:"failOnStatus" json:"fail_on_status,omitempty"`
	NoConnectionReuse     bool `mapstructure:"noConnectionReuse" json:"no_connection_reuse,omitempty"`
	InsecureSkipTLSVerify bool `mapstructure:"insecureSkipTLSVerify" json:"insecure_skip_tls_verify,omitempty"`

	Sketch            string   `mapstructure:"sketch" json:"sketch,omitempty"`
	SummaryTrendStats []string `mapstructure:"summaryTrendStats" json:"summary_trend_stats"`
}

// State is the lifecycle of a virtual user.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Sink accepts samples from virtual users. *stats.Aggregator is the production sink.
type Sink interface {
	Ingest(s stats.Sample)
}

// StatsUpdateChan carries periodic snapshots to progress displays.
type StatsUpdateChan chan stats.Snapshot
