package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"go.uber.org/multierr"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "REABRIDGE_"

type envBinding struct {
	name string
	set  func(c *Config, value string) error
}

// envBindings maps variable names (without prefix) to settings.
var envBindings = []envBinding{
	{"LOG_LEVEL", func(c *Config, v string) error { c.Logging.Level = v; return nil }},
	{"LOG_FORMAT", func(c *Config, v string) error { c.Logging.Format = v; return nil }},
	{"REALTIME_TASK_CAPACITY", intSetting(func(c *Config) *int { return &c.Realtime.TaskCapacity })},
	{"MAIN_THREAD_TASK_CAPACITY", intSetting(func(c *Config) *int { return &c.MainThread.TaskCapacity })},
	{"MAIN_THREAD_BULK_SIZE", intSetting(func(c *Config) *int { return &c.MainThread.BulkSize })},
	{"EXTENSIONS_PATHS", func(c *Config, v string) error {
		c.Extensions.Paths = splitList(v)
		return nil
	}},
	{"EXTENSIONS_WATCH", func(c *Config, v string) error {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		c.Extensions.Watch = b
		return nil
	}},
	{"EXTENSIONS_EXECUTION_TIMEOUT", durationSetting(func(c *Config) *Duration { return &c.Extensions.ExecutionTimeout })},
	{"SIM_HOST_VERSION", func(c *Config, v string) error { c.Sim.HostVersion = v; return nil }},
	{"SIM_BLOCK_SIZE", intSetting(func(c *Config) *int { return &c.Sim.BlockSize })},
	{"SIM_SAMPLE_RATE", func(c *Config, v string) error {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		c.Sim.SampleRate = f
		return nil
	}},
	{"SIM_BLOCK_INTERVAL", durationSetting(func(c *Config) *Duration { return &c.Sim.BlockInterval })},
	{"SIM_RUN_INTERVAL", durationSetting(func(c *Config) *Duration { return &c.Sim.RunInterval })},
	{"SIM_LISTEN_ADDR", func(c *Config, v string) error { c.Sim.ListenAddr = v; return nil }},
}

func intSetting(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func durationSetting(field func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := cast.ToDurationE(v)
		if err != nil {
			return err
		}
		*field(c) = Duration(d)
		return nil
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, string(os.PathListSeparator)) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ApplyEnv overrides cfg from environ (KEY=VALUE pairs, as os.Environ
// returns them). Variables are named prefix + setting, e.g.
// REABRIDGE_SIM_LISTEN_ADDR. REABRIDGE_KEYS_<NAME> sets the shortcut of
// command <name> (lowercased).
func ApplyEnv(cfg *Config, prefix string, environ []string) error {
	values := make(map[string]string)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		values[strings.TrimPrefix(name, prefix)] = value
	}

	var errs error
	for _, b := range envBindings {
		v, ok := values[b.name]
		if !ok {
			continue
		}
		if err := b.set(cfg, v); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s%s: %w", prefix, b.name, err))
		}
	}

	for name, v := range values {
		cmd, ok := strings.CutPrefix(name, "KEYS_")
		if !ok || cmd == "" {
			continue
		}
		if cfg.Keys == nil {
			cfg.Keys = make(map[string]string)
		}
		cfg.Keys[strings.ToLower(cmd)] = v
	}
	return errs
}
