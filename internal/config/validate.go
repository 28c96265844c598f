package config

import (
	"fmt"
	"sort"

	"github.com/coreos/go-semver/semver"
	"go.uber.org/multierr"

	"github.com/dshills/reabridge/internal/host"
)

var (
	validLevels  = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats = map[string]bool{"console": true, "json": true}
)

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs error
	add := func(path, msg string, value any) {
		errs = multierr.Append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	if !validLevels[c.Logging.Level] {
		add("logging.level", "must be debug, info, warn or error", c.Logging.Level)
	}
	if !validFormats[c.Logging.Format] {
		add("logging.format", "must be console or json", c.Logging.Format)
	}
	if c.Realtime.TaskCapacity <= 0 {
		add("realtime.task_capacity", "must be positive", c.Realtime.TaskCapacity)
	}
	if c.MainThread.TaskCapacity <= 0 {
		add("main_thread.task_capacity", "must be positive", c.MainThread.TaskCapacity)
	}
	if c.MainThread.BulkSize <= 0 {
		add("main_thread.bulk_size", "must be positive", c.MainThread.BulkSize)
	}
	if c.Extensions.ExecutionTimeout <= 0 {
		add("extensions.execution_timeout", "must be positive", c.Extensions.ExecutionTimeout.Std())
	}
	if _, err := semver.NewVersion(c.Sim.HostVersion); err != nil {
		add("sim.host_version", "must be a semantic version", c.Sim.HostVersion)
	}
	if c.Sim.BlockSize <= 0 {
		add("sim.block_size", "must be positive", c.Sim.BlockSize)
	}
	if c.Sim.SampleRate <= 0 {
		add("sim.sample_rate", "must be positive", c.Sim.SampleRate)
	}
	if c.Sim.BlockInterval <= 0 {
		add("sim.block_interval", "must be positive", c.Sim.BlockInterval.Std())
	}
	if c.Sim.RunInterval <= 0 {
		add("sim.run_interval", "must be positive", c.Sim.RunInterval.Std())
	}
	if _, err := c.KeyBindings(); err != nil {
		errs = multierr.Append(errs, err)
	}
	return errs
}

// KeyBindings parses the [keys] table.
func (c *Config) KeyBindings() (map[string]host.Accel, error) {
	names := make([]string, 0, len(c.Keys))
	for name := range c.Keys {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs error
	out := make(map[string]host.Accel, len(c.Keys))
	for _, name := range names {
		accel, err := host.ParseAccel(c.Keys[name])
		if err != nil {
			errs = multierr.Append(errs, &ValidationError{
				Path:    fmt.Sprintf("keys.%s", name),
				Message: err.Error(),
				Value:   c.Keys[name],
			})
			continue
		}
		out[name] = accel
	}
	return out, errs
}
