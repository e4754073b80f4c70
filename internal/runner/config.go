package runner

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"

	"vuload/internal/stats"
)

// ConfigError reports every problem found in a workload before the run starts.
type ConfigError struct {
	Problems *multierror.Error
}

func (e *ConfigError) Error() string {
	if e.Problems == nil {
		return "invalid workload config"
	}
	msgs := make([]string, len(e.Problems.Errors))
	for i, err := range e.Problems.Errors {
		msgs[i] = err.Error()
	}
	return "invalid workload config: " + strings.Join(msgs, "; ")
}

func (e *ConfigError) Unwrap() error {
	return e.Problems.ErrorOrNil()
}

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// WithDefaults fills optional fields. Required fields (VUs, Duration, URL) are left alone
// so that Validate can reject them.
func (c Config) WithDefaults() Config {
	if c.Method == "" {
		c.Method = DefaultMethod
	}
	c.Method = strings.ToUpper(c.Method)
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Sketch == "" {
		c.Sketch = string(stats.SketchExact)
	}
	if len(c.SummaryTrendStats) == 0 {
		c.SummaryTrendStats = append([]string(nil), stats.DefaultKeys...)
	}
	return c
}

// Validate checks the config and returns a *ConfigError listing every problem.
func (c Config) Validate() error {
	var problems *multierror.Error
	add := func(format string, args ...any) {
		problems = multierror.Append(problems, fmt.Errorf(format, args...))
	}

	if c.VUs < 1 {
		add("vus must be at least 1, got %d", c.VUs)
	}
	if c.Duration <= 0 {
		add("duration must be positive, got %s", c.Duration)
	}
	if err := validateURL(c.URL); err != nil {
		add("url: %v", err)
	}
	if c.Method != "" && !allowedMethods[strings.ToUpper(c.Method)] {
		add("unsupported method %q", c.Method)
	}
	if c.Timeout < 0 {
		add("timeout cannot be negative, got %s", c.Timeout)
	}
	if c.ThinkTime < 0 {
		add("thinkTime cannot be negative, got %s", c.ThinkTime)
	}
	if _, err := stats.ParseSketchKind(c.Sketch); err != nil {
		add("%v", err)
	}
	if _, err := stats.ParseKeys(c.SummaryTrendStats); err != nil {
		add("summaryTrendStats: %v", err)
	}

	if problems != nil {
		return &ConfigError{Problems: problems}
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("target is required")
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
