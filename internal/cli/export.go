package cli

import (
	"encoding/csv"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"vuload/internal/stats"
)

var csvHeader = []string{
	"timeStamp", "elapsed", "label", "responseCode", "responseMessage",
	"threadName", "success", "failureMessage", "bytes",
}

// SampleWriter streams samples as JMeter-compatible CSV rows. It is a stats.Observer and
// safe for concurrent use.
type SampleWriter struct {
	mu    sync.Mutex
	w     *csv.Writer
	label string
	err   error
}

func NewSampleWriter(w io.Writer, label string) (*SampleWriter, error) {
	if label == "" {
		label = "vuload"
	}
	sw := &SampleWriter{w: csv.NewWriter(w), label: label}
	if err := sw.w.Write(csvHeader); err != nil {
		return nil, errors.Wrap(err, "writing csv header")
	}
	return sw, nil
}

func (sw *SampleWriter) Observe(s stats.Sample) {
	errMsg := ""
	if s.Err != nil {
		errMsg = s.Err.Error()
	} else if s.Outcome.Failed() {
		errMsg = s.Outcome.String()
	}

	record := []string{
		strconv.FormatInt(s.Timestamp.UnixMilli(), 10),
		strconv.FormatInt(s.Latency.Milliseconds(), 10),
		sw.label,
		strconv.Itoa(s.Status),
		http.StatusText(s.Status),
		"VU-" + strconv.Itoa(s.VU),
		strconv.FormatBool(!s.Outcome.Failed()),
		errMsg,
		strconv.FormatInt(s.Bytes, 10),
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.err == nil {
		sw.err = sw.w.Write(record)
	}
}

// Flush writes buffered rows and reports the first error seen.
func (sw *SampleWriter) Flush() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.w.Flush()
	if sw.err != nil {
		return errors.Wrap(sw.err, "writing csv row")
	}
	return errors.Wrap(sw.w.Error(), "flushing csv")
}

// ExportSummary writes the summary report as indented JSON.
func ExportSummary(res *stats.Result, filename string) error {
	data, err := res.MarshalReport()
	if err != nil {
		return errors.Wrap(err, "encoding summary")
	}
	return errors.Wrapf(os.WriteFile(filename, data, 0644), "writing %s", filename)
}
