package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuload/internal/dummy"
	"vuload/internal/runner"
	"vuload/internal/stats"
)

func quietLogger() log.FieldLogger {
	l := log.New()
	l.SetLevel(log.PanicLevel)
	return l
}

func TestStart_RunsAndPrintsSummary(t *testing.T) {
	srv := httptest.NewServer(dummy.NewHandler(dummy.ServerConfig{}))
	defer srv.Close()

	updates := make(runner.StatsUpdateChan, 100)
	r, err := runner.NewRunner(runner.Config{
		URL:               srv.URL + "/hello",
		VUs:               2,
		Duration:          300 * time.Millisecond,
		SummaryTrendStats: []string{"avg", "p(95)", "count"},
	}, runner.WithUpdates(updates), runner.WithLogger(quietLogger()))
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := Start(context.Background(), &out, r, updates)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Positive(t, res.Count)

	text := out.String()
	assert.Contains(t, text, "Target URL : "+srv.URL+"/hello")
	assert.Contains(t, text, "RESULTS")
	assert.Contains(t, text, "p(95)")
	assert.Contains(t, text, "count")
	assert.NotContains(t, text, "FAILURE SUMMARY")
}

func TestStart_CancelledReportsPartial(t *testing.T) {
	srv := httptest.NewServer(dummy.NewHandler(dummy.ServerConfig{}))
	defer srv.Close()

	r, err := runner.NewRunner(runner.Config{
		URL:      srv.URL + "/fast",
		VUs:      1,
		Duration: time.Minute,
	}, runner.WithLogger(quietLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	start := time.Now()
	res, err := Start(ctx, &out, r, nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
	assert.NotNil(t, res)
	assert.Contains(t, out.String(), "Interrupted")
}

func TestPrintSummary_AllFailed(t *testing.T) {
	res := &stats.Result{
		ID:       "run-1",
		Elapsed:  time.Second,
		Count:    3,
		Failures: map[string]int64{"network": 2, "timeout": 1},
		Stats: []stats.Stat{
			{Key: "avg"},
			{Key: "count", Value: 3, Present: true},
		},
	}
	var out bytes.Buffer
	PrintSummary(&out, res)

	text := out.String()
	assert.Contains(t, text, "n/a")
	assert.Contains(t, text, "FAILURE SUMMARY")
	assert.Contains(t, text, "2 x network")
	assert.Contains(t, text, "1 x timeout")
	assert.Contains(t, text, "Actual RPS     : 3.00")
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[----]", progressBar(0, 4))
	assert.Equal(t, "[██--]", progressBar(0.5, 4))
	assert.Equal(t, "[████]", progressBar(1.5, 4))
	assert.Equal(t, "[----]", progressBar(-1, 4))
}

func TestSampleWriter(t *testing.T) {
	var buf bytes.Buffer
	sw, err := NewSampleWriter(&buf, "")
	require.NoError(t, err)

	ts := time.UnixMilli(1700000000000)
	sw.Observe(stats.Sample{Timestamp: ts, Latency: 12 * time.Millisecond, Status: 200, Bytes: 13, VU: 1})
	sw.Observe(stats.Sample{Timestamp: ts, Outcome: stats.OutcomeNetwork, Err: errors.New("connection refused"), VU: 2})
	sw.Observe(stats.Sample{Timestamp: ts, Outcome: stats.OutcomeStatus, Status: 503, VU: 3})
	require.NoError(t, sw.Flush())

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"1700000000000", "12", "vuload", "200", "OK", "VU-1", "true", "", "13"}, rows[1])
	assert.Equal(t, "false", rows[2][6])
	assert.Equal(t, "connection refused", rows[2][7])
	assert.Equal(t, "Service Unavailable", rows[3][4])
	assert.Equal(t, "status", rows[3][7])
}

func TestExportSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench_summary.json")
	res := &stats.Result{
		ID:        "run-1",
		Count:     5,
		Successes: 5,
		Failures:  map[string]int64{},
		Stats: []stats.Stat{
			{Key: "med", Value: 30, Present: true},
			{Key: "count", Value: 5, Present: true},
		},
	}
	require.NoError(t, ExportSummary(res, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "run-1", report["id"])
	assert.Equal(t, map[string]any{"med": 30.0, "count": 5.0}, report["stats"])
}
