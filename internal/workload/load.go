// Package workload reads workload declarations into runner.Config.
//
// A declaration is a YAML, JSON or TOML file using k6 option names:
//
//	vus: 1
//	duration: 10s
//	url: http://localhost:8080/serve_dir/scout.webp
//	summaryTrendStats: [avg, min, med, max, p(50), p(95), p(99), count]
//
// Every key can be overridden from the environment with a VULOAD_ prefix, e.g.
// VULOAD_DURATION=30s, and from bound command line flags.
package workload

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vuload/internal/runner"
)

const EnvPrefix = "VULOAD"

// Loader wraps a viper instance so flag bindings and defaults stay local to one load.
type Loader struct {
	v *viper.Viper
}

func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("vus", 1)
	v.SetDefault("method", runner.DefaultMethod)
	v.SetDefault("timeout", runner.DefaultTimeout)
	v.SetDefault("sketch", "exact")

	// AutomaticEnv only applies to keys viper already knows about.
	for _, k := range []string{"url", "duration", "thinkTime", "failOnStatus", "noConnectionReuse", "insecureSkipTLSVerify", "body", "name"} {
		_ = v.BindEnv(k)
	}
	return &Loader{v: v}
}

// BindFlag makes a command line flag override the config key when the flag is set.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return errors.Errorf("no flag for key %q", key)
	}
	return errors.Wrapf(l.v.BindPFlag(key, flag), "binding flag %s", flag.Name)
}

// Load reads path (if not empty) and decodes the merged settings. The result is not
// validated; runner.NewRunner does that.
func (l *Loader) Load(path string) (runner.Config, error) {
	var cfg runner.Config
	if path != "" {
		l.v.SetConfigFile(path)
		if err := l.v.ReadInConfig(); err != nil {
			return cfg, errors.Wrapf(err, "reading workload %s", path)
		}
		log.WithField("path", l.v.ConfigFileUsed()).Debug("loaded workload")
	}
	if err := l.v.Unmarshal(&cfg, viper.DecodeHook(DecodeHook())); err != nil {
		return cfg, errors.Wrap(err, "decoding workload")
	}
	return cfg, nil
}

// Load is a shortcut for NewLoader().Load(path).
func Load(path string) (runner.Config, error) {
	return NewLoader().Load(path)
}

// DecodeHook decodes durations from strings ("10s", "1m30s") and from bare numbers,
// which are taken as milliseconds.
func DecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		NumberToDurationHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

func NumberToDurationHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case int:
			return time.Duration(v) * time.Millisecond, nil
		case int64:
			return time.Duration(v) * time.Millisecond, nil
		case float64:
			return time.Duration(v * float64(time.Millisecond)), nil
		case time.Duration:
			return v, nil
		}
		return data, nil
	}
}
