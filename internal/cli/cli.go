package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"vuload/internal/runner"
	"vuload/internal/stats"
	"vuload/internal/tui/styles"
)

const rule = "======================================================================"

// Start runs r headless, drawing a progress line on w from updates until the run ends,
// then prints the summary. updates may be nil.
func Start(ctx context.Context, w io.Writer, r *runner.Runner, updates runner.StatsUpdateChan) (*stats.Result, error) {
	printHeader(w, r.Cfg)

	type outcome struct {
		res *stats.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := r.Run(ctx)
		done <- outcome{res, err}
	}()

	total := r.Gate().Duration()
	for {
		select {
		case s := <-updates:
			printProgress(w, s, total)
		case o := <-done:
			fmt.Fprintln(w)
			if o.err != nil {
				return nil, o.err
			}
			if ctx.Err() != nil {
				fmt.Fprintln(w, styles.Warn.Render("Interrupted: reporting partial results"))
			}
			PrintSummary(w, o.res)
			return o.res, nil
		}
	}
}

func printHeader(w io.Writer, cfg runner.Config) {
	fmt.Fprintf(w, "\n%s\n", styles.Active.Render("STARTING VULOAD RUN"))
	fmt.Fprintln(w, rule)
	if cfg.Name != "" {
		fmt.Fprintf(w, "Name       : %s\n", cfg.Name)
	}
	fmt.Fprintf(w, "Target URL : %s\n", cfg.URL)
	fmt.Fprintf(w, "Method     : %s\n", cfg.Method)
	fmt.Fprintf(w, "VUs        : %d\n", cfg.VUs)
	fmt.Fprintf(w, "Duration   : %s\n", cfg.Duration)
	fmt.Fprintf(w, "Timeout    : %s\n", cfg.Timeout)
	if cfg.ThinkTime > 0 {
		fmt.Fprintf(w, "Think Time : %s\n", cfg.ThinkTime)
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

func printProgress(w io.Writer, s stats.Snapshot, total time.Duration) {
	pct := 1.0
	if total > 0 {
		pct = min(s.Elapsed.Seconds()/total.Seconds(), 1.0)
	}
	rps := 0.0
	if s.Elapsed > 0 {
		rps = float64(s.Requests) / s.Elapsed.Seconds()
	}
	fmt.Fprintf(w, "\r%s %3.0f%% | %s/%s | Inf: %3d | RPS: %.1f | OK: %d | Err: %d",
		progressBar(pct, 20), pct*100,
		s.Elapsed.Round(time.Second), total,
		s.Inflight,
		rps,
		s.Success,
		s.Fail,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

// PrintSummary writes the requested statistics and the failure tally.
func PrintSummary(w io.Writer, res *stats.Result) {
	rps := 0.0
	if res.Elapsed > 0 {
		rps = float64(res.Count) / res.Elapsed.Seconds()
	}

	fmt.Fprintf(w, "\n%s\n", styles.Active.Render("RESULTS"))
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Run ID         : %s\n", res.ID)
	fmt.Fprintf(w, "Total Duration : %s\n", res.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "Requests Sent  : %d\n", res.Count)
	fmt.Fprintf(w, "Success        : %s\n", styles.Success.Render(fmt.Sprint(res.Successes)))
	fmt.Fprintf(w, "Failures       : %d\n", res.Failed())
	fmt.Fprintf(w, "Actual RPS     : %.2f\n", rps)
	fmt.Fprintf(w, "Received       : %d bytes\n", res.Bytes)

	fmt.Fprintf(w, "\n%s\n", styles.Active.Render("RESPONSE TIMES [success only]"))
	for _, s := range res.Stats {
		fmt.Fprintf(w, "   %-8s : %s\n", s.Key, styles.Value.Render(stats.FormatValue(s)))
	}

	if res.Failed() > 0 {
		fmt.Fprintf(w, "\n%s\n", styles.Error.Render("FAILURE SUMMARY"))
		for _, kind := range res.FailureKinds() {
			fmt.Fprintf(w, "   %d x %s\n", res.Failures[kind], kind)
		}
	}
	fmt.Fprintln(w, rule)
}
