package runner

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vuload/internal/stats"
)

func validConfig() Config {
	return Config{
		URL:               "http://localhost:8080/serve_dir/scout.webp",
		VUs:               1,
		Duration:          10 * time.Second,
		SummaryTrendStats: []string{"avg", "min", "med", "max", "p(50)", "p(95)", "p(99)", "count"},
	}
}

func TestConfig_Valid(t *testing.T) {
	assert.NoError(t, validConfig().WithDefaults().Validate())
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{Method: "post"}.WithDefaults()
	assert.Equal(t, "POST", c.Method)
	assert.Equal(t, DefaultTimeout, c.Timeout)
	assert.Equal(t, string(stats.SketchExact), c.Sketch)
	assert.Equal(t, stats.DefaultKeys, c.SummaryTrendStats)
	assert.Zero(t, c.VUs, "required fields are not defaulted")
	assert.Zero(t, c.Duration)

	c = Config{}.WithDefaults()
	assert.Equal(t, "GET", c.Method)
}

func TestConfig_Invalid(t *testing.T) {
	tests := map[string]func(*Config){
		"zero vus":          func(c *Config) { c.VUs = 0 },
		"negative vus":      func(c *Config) { c.VUs = -3 },
		"zero duration":     func(c *Config) { c.Duration = 0 },
		"negative duration": func(c *Config) { c.Duration = -time.Second },
		"empty url":         func(c *Config) { c.URL = "" },
		"relative url":      func(c *Config) { c.URL = "/hello" },
		"ftp url":           func(c *Config) { c.URL = "ftp://example.com/file" },
		"no host":           func(c *Config) { c.URL = "http:///path" },
		"bad method":        func(c *Config) { c.Method = "BREW" },
		"negative timeout":  func(c *Config) { c.Timeout = -1 },
		"negative think":    func(c *Config) { c.ThinkTime = -time.Millisecond },
		"bad sketch":        func(c *Config) { c.Sketch = "tdigest" },
		"bad stat":          func(c *Config) { c.SummaryTrendStats = []string{"p(100)"} },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(&c)
			err := c.Validate()
			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr), "got %v", err)
			assert.Len(t, cfgErr.Problems.Errors, 1)
		})
	}
}

func TestConfig_ReportsEveryProblem(t *testing.T) {
	err := Config{VUs: 0, Duration: 0, URL: "nope"}.Validate()
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Problems.Errors, 3)
	assert.Contains(t, err.Error(), "vus must be at least 1")
	assert.Contains(t, err.Error(), "duration must be positive")
	assert.Contains(t, err.Error(), "url:")
}
