package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vuload/internal/cli"
	"vuload/internal/metrics"
	"vuload/internal/runner"
	"vuload/internal/stats"
	"vuload/internal/storage"
	"vuload/internal/tui"
	"vuload/internal/workload"
)

type runOptions struct {
	headers     []string
	outPrefix   string
	noHistory   bool
	historyDB   string
	metricsAddr string
	tui         bool
}

var runOpts runOptions

// workload key -> flag name
var runFlagKeys = map[string]string{
	"vus":               "vus",
	"duration":          "duration",
	"url":               "url",
	"method":            "method",
	"body":              "body",
	"timeout":           "timeout",
	"thinkTime":         "think-time",
	"sketch":            "sketch",
	"failOnStatus":      "fail-on-status",
	"noConnectionReuse": "no-connection-reuse",
	"summaryTrendStats": "summary-trend-stats",
}

var runCmd = &cobra.Command{
	Use:   "run [workload-file]",
	Short: "Run a workload",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if len(args) == 1 {
			path = args[0]
		}

		l := workload.NewLoader()
		for key, name := range runFlagKeys {
			if err := l.BindFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return err
			}
		}
		cfg, err := l.Load(path)
		if err != nil {
			return err
		}
		cfg.Headers, err = mergeHeaders(cfg.Headers, runOpts.headers)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return execute(ctx, cmd, cfg, runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.IntP("vus", "u", 1, "number of virtual users")
	f.DurationP("duration", "d", 0, "run duration (e.g. 10s)")
	f.String("url", "", "target URL")
	f.StringP("method", "X", runner.DefaultMethod, "HTTP method")
	f.StringP("body", "b", "", "request body")
	f.Duration("timeout", runner.DefaultTimeout, "per-request timeout")
	f.Duration("think-time", 0, "pause between iterations of a virtual user")
	f.String("sketch", string(stats.SketchExact), "latency store: exact or hdr")
	f.Bool("fail-on-status", false, "count responses outside 2xx/3xx as failures")
	f.Bool("no-connection-reuse", false, "disable keep-alive")
	f.StringSlice("summary-trend-stats", nil, "statistics to report, e.g. avg,med,p(95)")
	f.StringSliceVarP(&runOpts.headers, "header", "H", nil, `HTTP header (e.g. "Key: Value")`)
	f.StringVarP(&runOpts.outPrefix, "out", "o", "", "write <prefix>.csv and <prefix>_summary.json")
	f.BoolVar(&runOpts.noHistory, "no-history", false, "do not save the run to history")
	f.StringVar(&runOpts.historyDB, "history-db", "", "history database (default ~/.vuload/history.db)")
	f.StringVar(&runOpts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	f.BoolVar(&runOpts.tui, "tui", false, "show the interactive live view")
}

func mergeHeaders(base map[string]string, raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return base, nil
	}
	out := make(map[string]string, len(base)+len(raw))
	for k, v := range base {
		out[k] = v
	}
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, errors.Errorf("invalid header %q, want \"Key: Value\"", h)
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return out, nil
}

func execute(ctx context.Context, cmd *cobra.Command, cfg runner.Config, opts runOptions) error {
	// Nothing is created or started for an invalid workload.
	if err := cfg.WithDefaults().Validate(); err != nil {
		return err
	}

	updates := make(runner.StatsUpdateChan, 100)
	runnerOpts := []runner.Option{runner.WithUpdates(updates)}

	if opts.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		exp, err := metrics.NewExporter(reg)
		if err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, runner.WithObserver(exp))

		metricsCtx, stopMetrics := context.WithCancel(context.Background())
		defer stopMetrics()
		go func() {
			if err := metrics.Serve(metricsCtx, opts.metricsAddr, reg); err != nil {
				log.WithError(err).Error("metrics server failed")
			}
		}()
	}

	var samples *cli.SampleWriter
	if opts.outPrefix != "" {
		f, err := os.Create(opts.outPrefix + ".csv")
		if err != nil {
			return errors.Wrap(err, "creating sample report")
		}
		defer f.Close()
		samples, err = cli.NewSampleWriter(f, cfg.Name)
		if err != nil {
			return err
		}
		runnerOpts = append(runnerOpts, runner.WithObserver(samples))
	}

	r, err := runner.NewRunner(cfg, runnerOpts...)
	if err != nil {
		return err
	}

	var res *stats.Result
	if opts.tui {
		res, err = tui.Run(ctx, r, updates)
	} else {
		res, err = cli.Start(ctx, cmd.OutOrStdout(), r, updates)
	}
	if err != nil {
		return err
	}

	if opts.outPrefix != "" {
		if err := samples.Flush(); err != nil {
			return err
		}
		if err := cli.ExportSummary(res, opts.outPrefix+"_summary.json"); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reports saved to %s.csv and %s_summary.json\n", opts.outPrefix, opts.outPrefix)
	}

	if !opts.noHistory {
		if err := saveHistory(opts.historyDB, storage.NewHistoryItem(r.Cfg, res)); err != nil {
			// History is a convenience; the run itself succeeded.
			log.WithError(err).Warn("could not save run to history")
		}
	}
	return nil
}

func saveHistory(path string, item storage.HistoryItem) error {
	store, err := openHistory(path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(item)
}

func openHistory(path string) (*storage.Store, error) {
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return storage.Open(path)
}
