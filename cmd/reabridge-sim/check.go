package main

import (
	"errors"
	"fmt"

	"github.com/coreos/go-semver/semver"
	"github.com/spf13/cobra"

	"github.com/dshills/reabridge/internal/extension"
)

// errCheckFailed is returned when any extension fails its check.
var errCheckFailed = errors.New("check failed")

func newCheckCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and every extension",
		Long: `Check validates the configuration, then discovers every extension and
checks its manifest, host version requirement and script syntax without
running it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, root)
		},
	}
}

func runCheck(cmd *cobra.Command, root *rootOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "config: ok")

	loader := extension.NewLoader(extension.WithFs(root.fs), extension.WithPaths(cfg.Extensions.Paths...))
	infos, err := loader.Discover()
	if err != nil {
		return err
	}
	hostVersion := semver.New(cfg.Sim.HostVersion)

	failed := 0
	for _, info := range infos {
		if err := loader.Check(info, hostVersion); err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", info.Name, err)
			continue
		}
		fmt.Fprintf(out, "%s: ok (%s)\n", info.Name, info.Manifest)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d extensions", errCheckFailed, failed, len(infos))
	}
	return nil
}
