package stats

import (
	"time"
)

// Outcome classifies a single request.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTimeout
	OutcomeNetwork
	// OutcomeStatus is only produced when status-code failure classification is enabled.
	OutcomeStatus
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeNetwork:
		return "network"
	case OutcomeStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Failed reports whether the outcome counts as a load-level error.
func (o Outcome) Failed() bool {
	return o != OutcomeSuccess
}

// Sample is the result of one request. It is ingested exactly once and then dropped.
type Sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Outcome   Outcome
	Status    int
	Bytes     int64
	VU        int
	Err       error
}

// Observer receives every ingested sample after the aggregate state is updated.
type Observer interface {
	Observe(s Sample)
}
