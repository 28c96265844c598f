package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dshills/reabridge/internal/config"
)

type rootOptions struct {
	configPath string
	fs         afero.Fs
	environ    func() []string
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(&rootOptions{
		fs:      afero.NewOsFs(),
		environ: os.Environ,
	})
}

func newRootCmdWith(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reabridge-sim",
		Short: "Run reabridge extensions against a simulated host",
		Long: `reabridge-sim runs the extension façade inside a simulated host with a
main thread, an audio thread and a control surface poll, and loads Lua
extensions into it.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newCheckCmd(opts))
	return cmd
}

// loadConfig reads the config file, applies REABRIDGE_* overrides and
// validates the result.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.fs, o.configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, config.EnvPrefix, o.environ()); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
