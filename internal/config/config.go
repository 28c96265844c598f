package config

import (
	"time"

	"github.com/dshills/reabridge/internal/reaper"
	"github.com/dshills/reabridge/internal/rtqueue"
)

// Config is the full reabridge configuration.
type Config struct {
	Logging    Logging    `toml:"logging" yaml:"logging"`
	Realtime   Realtime   `toml:"realtime" yaml:"realtime"`
	MainThread MainThread `toml:"main_thread" yaml:"main_thread"`
	Extensions Extensions `toml:"extensions" yaml:"extensions"`
	// Keys maps command names to default shortcuts such as "Ctrl+Shift+K".
	Keys map[string]string `toml:"keys" yaml:"keys"`
	Sim  Sim               `toml:"sim" yaml:"sim"`
}

// Logging configures the zap logger.
type Logging struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
	// Format is console or json.
	Format string `toml:"format" yaml:"format"`
}

// Realtime configures the real-time task queue.
type Realtime struct {
	TaskCapacity int `toml:"task_capacity" yaml:"task_capacity"`
}

// MainThread configures the main-thread task queue.
type MainThread struct {
	TaskCapacity int `toml:"task_capacity" yaml:"task_capacity"`
	BulkSize     int `toml:"bulk_size" yaml:"bulk_size"`
}

// Extensions configures Lua extension loading.
type Extensions struct {
	// Paths are searched in order; the first extension with a given name wins.
	Paths []string `toml:"paths" yaml:"paths"`
	// Watch reloads extensions when their files change.
	Watch bool `toml:"watch" yaml:"watch"`
	// ExecutionTimeout bounds a single Lua handler call.
	ExecutionTimeout Duration `toml:"execution_timeout" yaml:"execution_timeout"`
}

// Sim configures the simulated host.
type Sim struct {
	// HostVersion is the semantic version the simulator reports.
	HostVersion   string   `toml:"host_version" yaml:"host_version"`
	BlockSize     int      `toml:"block_size" yaml:"block_size"`
	SampleRate    float64  `toml:"sample_rate" yaml:"sample_rate"`
	BlockInterval Duration `toml:"block_interval" yaml:"block_interval"`
	RunInterval   Duration `toml:"run_interval" yaml:"run_interval"`
	// ListenAddr enables the HTTP introspection server when non-empty.
	ListenAddr string `toml:"listen_addr" yaml:"listen_addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Realtime: Realtime{
			TaskCapacity: rtqueue.DefaultCapacity,
		},
		MainThread: MainThread{
			TaskCapacity: reaper.DefaultMainThreadTaskCapacity,
			BulkSize:     reaper.DefaultMainThreadTaskBulkSize,
		},
		Extensions: Extensions{
			Paths:            []string{"extensions"},
			ExecutionTimeout: Duration(5 * time.Second),
		},
		Keys: map[string]string{},
		Sim: Sim{
			HostVersion:   "7.0.0",
			BlockSize:     512,
			SampleRate:    48000,
			BlockInterval: Duration(10 * time.Millisecond),
			RunInterval:   Duration(33 * time.Millisecond),
		},
	}
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}
