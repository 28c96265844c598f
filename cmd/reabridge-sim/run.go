package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/reabridge/internal/config"
	"github.com/dshills/reabridge/internal/extension"
	"github.com/dshills/reabridge/internal/host"
	"github.com/dshills/reabridge/internal/host/simhost"
	"github.com/dshills/reabridge/internal/logging"
	"github.com/dshills/reabridge/internal/reaper"
	"github.com/dshills/reabridge/internal/server"
)

const shutdownTimeout = 5 * time.Second

type runOptions struct {
	*rootOptions
	listen   string
	watch    bool
	duration time.Duration
	invoke   []string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{rootOptions: root}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the simulated host and load extensions",
		Long: `Run starts the simulated host, sets up the façade, loads every extension
found in the configured paths and keeps running until interrupted.

Use --invoke to run actions by name once everything is loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", "", "HTTP introspection address (overrides sim.listen_addr)")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload extensions when their files change (overrides extensions.watch)")
	cmd.Flags().DurationVar(&opts.duration, "for", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().StringSliceVar(&opts.invoke, "invoke", nil, "actions to invoke after loading")
	return cmd
}

func (o *runOptions) run(cmd *cobra.Command) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.Sim.ListenAddr = o.listen
	}
	if cmd.Flags().Changed("watch") {
		cfg.Extensions.Watch = o.watch
	}

	logger, err := logging.New(cfg.Logging, logging.ProfileRuntime)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	host.SetLogger(logger.Named("host"))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if o.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.duration)
		defer cancel()
	}

	s := newSim(cfg, logger, cmd)
	s.fs = o.fs
	return s.run(ctx, o.invoke)
}

// sim wires the simulated host, the façade and the extension manager.
type sim struct {
	cfg    *config.Config
	logger *zap.Logger
	host   *simhost.Host
	fs     afero.Fs

	guard   *reaper.Guard
	manager *extension.Manager
	watcher *extension.Watcher
	server  *server.Server
}

func newSim(cfg *config.Config, logger *zap.Logger, cmd *cobra.Command) *sim {
	h := simhost.New(
		simhost.WithLogger(logger.Named("sim")),
		simhost.WithVersion(semver.New(cfg.Sim.HostVersion)),
		simhost.WithAudio(cfg.Sim.BlockSize, cfg.Sim.SampleRate, cfg.Sim.BlockInterval.Std()),
		simhost.WithRunInterval(cfg.Sim.RunInterval.Std()),
		simhost.WithConsole(cmd.OutOrStdout()),
	)
	return &sim{cfg: cfg, logger: logger, host: h}
}

func (s *sim) run(ctx context.Context, invoke []string) error {
	// The host outlives ctx so teardown can still run on its main thread.
	hostCtx, stopHost := context.WithCancel(context.Background())
	defer stopHost()
	hostDone := make(chan error, 1)
	go func() { hostDone <- s.host.Run(hostCtx) }()

	var setupErr error
	if err := s.host.Call(ctx, func() { setupErr = s.setup() }); err != nil {
		setupErr = err
	}
	if setupErr == nil {
		setupErr = s.start(invoke)
	}

	if setupErr == nil {
		select {
		case <-ctx.Done():
		case err := <-hostDone:
			return fmt.Errorf("simulated host stopped: %w", err)
		}
	}

	s.shutdown()
	stopHost()
	if err := <-hostDone; err != nil {
		s.logger.Warn("simulated host", zap.Error(err))
	}
	return setupErr
}

// setup runs on the main thread.
func (s *sim) setup() error {
	keys, err := s.cfg.KeyBindings()
	if err != nil {
		return err
	}

	err = reaper.Load(s.host,
		reaper.WithRealTimeCapacity(s.cfg.Realtime.TaskCapacity),
		reaper.WithMainThreadCapacity(s.cfg.MainThread.TaskCapacity),
		reaper.WithMainThreadBulkSize(s.cfg.MainThread.BulkSize),
		reaper.WithKeyBindings(keys),
	).Logger(s.logger.Named("reaper")).Setup()
	if err != nil {
		return err
	}

	// Keeps the session awake even when no extension holds a guard.
	s.guard = reaper.Guarded(nil, nil)

	loader := extension.NewLoader(extension.WithFs(s.fs), extension.WithPaths(s.cfg.Extensions.Paths...))
	s.manager = extension.NewManager(loader, reaper.Get(),
		extension.WithManagerLogger(s.logger.Named("extension")),
		extension.WithHostVersion(s.host.Version()),
		extension.WithTimeout(s.cfg.Extensions.ExecutionTimeout.Std()),
		extension.WithKeys(keys),
	)
	if err := s.manager.LoadAll(); err != nil {
		s.logger.Warn("some extensions failed to start", zap.Error(err))
	}
	s.logger.Info("extensions loaded", zap.Int("count", len(s.manager.List())))
	return nil
}

func (s *sim) start(invoke []string) error {
	if s.cfg.Extensions.Watch {
		w, err := s.manager.Watch(reaper.Get().DoInMainThreadAsap)
		if err != nil {
			return fmt.Errorf("extension watcher: %w", err)
		}
		if err := w.Start(); err != nil {
			_ = w.Close()
			return fmt.Errorf("extension watcher: %w", err)
		}
		s.watcher = w
	}

	if s.cfg.Sim.ListenAddr != "" {
		srv := server.New(s.host, reaper.Get(),
			server.WithLogger(s.logger.Named("http")),
			server.WithExtensions(s.manager),
		)
		if _, err := srv.Start(s.cfg.Sim.ListenAddr); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		s.server = srv
	}

	for _, name := range invoke {
		var invokeErr error
		if err := s.host.Call(context.Background(), func() { invokeErr = s.host.Invoke(name) }); err != nil {
			return err
		}
		if invokeErr != nil {
			return fmt.Errorf("invoke %s: %w", name, invokeErr)
		}
	}
	return nil
}

func (s *sim) shutdown() {
	if s.watcher != nil {
		if err := s.watcher.Close(); err != nil {
			s.logger.Warn("close extension watcher", zap.Error(err))
		}
	}
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn("shut down http server", zap.Error(err))
		}
		cancel()
	}

	err := s.host.Call(context.Background(), func() {
		if s.manager != nil {
			if err := s.manager.UnloadAll(); err != nil {
				s.logger.Warn("unload extensions", zap.Error(err))
			}
		}
		s.guard.Release()
		if err := reaper.Teardown(); err != nil {
			s.logger.Warn("teardown", zap.Error(err))
		}
	})
	if err != nil {
		s.logger.Warn("shutdown on main thread", zap.Error(err))
	}
}
