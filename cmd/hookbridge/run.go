// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/hookbridge/internal/config"
	"github.com/holomush/hookbridge/internal/control"
	"github.com/holomush/hookbridge/internal/core"
	"github.com/holomush/hookbridge/internal/logging"
	"github.com/holomush/hookbridge/internal/observability"
	"github.com/holomush/hookbridge/internal/plugin"
	"github.com/holomush/hookbridge/internal/plugin/capability"
	"github.com/holomush/hookbridge/internal/plugin/hostfunc"
	pluginlua "github.com/holomush/hookbridge/internal/plugin/lua"
	"github.com/holomush/hookbridge/internal/runner"
	"github.com/holomush/hookbridge/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load scripts and run the event loop",
		Long: `Load every script in the scripts directory, fire the startup events and
tick timers until interrupted. SIGINT or SIGTERM fires the shutdown events,
unloads the scripts and exits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.Load(resolveConfigFile(), cmd.Flags())
			if err != nil {
				return err
			}
			return runBridge(ctx, cfg, cmd.ErrOrStderr())
		},
	}

	config.RegisterFlags(cmd.Flags())
	return cmd
}

// bridge is the assembled runtime of the run command.
type bridge struct {
	engine  *core.Engine
	manager *plugin.Manager
	runner  *runner.Runner
	obs     *observability.Server
	ready   atomic.Bool
}

// status reports loaded scripts and, from the runner's goroutine, the engine
// id and pending timer count.
func (b *bridge) status(ctx context.Context, resp *control.StatusResponse) error {
	resp.Scripts = b.manager.ListScripts()
	var (
		engineID ulid.ULID
		pending  int
	)
	err := b.runner.Do(ctx, func(_ context.Context, e *core.Engine) {
		engineID = e.ID()
		pending = e.Timers().Len()
	})
	if err != nil {
		return err
	}
	started := core.ULIDTime(engineID).UTC()
	resp.EngineID = engineID.String()
	resp.EngineStarted = &started
	resp.PendingTimers = pending
	return nil
}

// newBridge wires engine, script host, manager and runner from cfg and loads
// the scripts. Scripts that fail to load are logged and counted.
func newBridge(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*bridge, error) {
	b := &bridge{}

	engineOpts := []core.EngineOption{core.WithLogger(logger)}
	if cfg.Seed != 0 {
		engineOpts = append(engineOpts, core.WithSeed(cfg.Seed))
	}
	b.engine = core.NewEngine(engineOpts...)

	enforcer := capability.NewEnforcer()
	funcs := hostfunc.New(b.engine, enforcer, hostfunc.WithLogger(logger))
	host, err := pluginlua.NewHost(funcs,
		pluginlua.WithHostLogger(logger),
		pluginlua.WithStateOptions(pluginlua.WithPrintLogger(logger)),
	)
	if err != nil {
		b.engine.Close()
		return nil, oops.Wrapf(err, "create script host")
	}

	b.manager = plugin.NewManager(cfg.ScriptsDir,
		plugin.WithHost(host),
		plugin.WithEnforcer(enforcer),
		plugin.WithGrants(cfg.Grants),
		plugin.WithAPIVersion(cfg.APIVersion),
		plugin.WithLogger(logger),
	)

	if cfg.MetricsAddr != "" {
		b.obs = observability.NewServer(cfg.MetricsAddr, b.ready.Load, observability.WithLogger(logger))
	}

	discovered, err := b.manager.Discover(ctx)
	if err != nil {
		closeErr := b.manager.Close(ctx)
		b.engine.Close()
		return nil, errors.Join(oops.Wrapf(err, "discover scripts"), closeErr)
	}
	failed := 0
	for _, ds := range discovered {
		if err := b.manager.Load(ctx, ds); err != nil {
			failed++
			errutil.LogError(logger, "failed to load script", err, "dir", ds.Dir)
		}
	}
	loaded := b.manager.ListScripts()
	if b.obs != nil {
		b.obs.Metrics().ScriptsLoaded.Set(float64(len(loaded)))
		b.obs.Metrics().ScriptsFailed.Add(float64(failed))
	}
	logger.Info("scripts loaded", "loaded", len(loaded), "failed", failed, "scripts", loaded)

	b.runner = runner.New(b.engine,
		runner.WithInterval(cfg.TickInterval),
		runner.WithLogger(logger),
		runner.WithOnStop(b.manager.Close),
	)
	return b, nil
}

// runBridge runs the bridge until ctx is done. Logs go to w.
func runBridge(ctx context.Context, cfg *config.Config, w io.Writer) error {
	logger := logging.Setup("hookbridge", version, cfg.LogFormat, cfg.LogLevel, w)
	slog.SetDefault(logger)

	logger.Info("starting hookbridge",
		"scripts_dir", cfg.ScriptsDir,
		"tick_interval", cfg.TickInterval,
		"api_version", cfg.APIVersion,
	)

	b, err := newBridge(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if b.obs != nil {
		obsErrChan, err := b.obs.Start(ctx)
		if err != nil {
			closeErr := b.manager.Close(context.Background())
			b.engine.Close()
			return errors.Join(oops.Wrapf(err, "start observability server"), closeErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
	}

	var ctl *control.Server
	if cfg.ControlSocket != "" {
		ctl = control.NewServer(cfg.ControlSocket, func() { cancel() },
			control.WithStatus(b.status),
			control.WithLogger(logger),
		)
		if err := ctl.Start(); err != nil {
			// Not fatal: the bridge keeps running without a control socket.
			errutil.LogError(logger, "failed to start control socket", err)
			ctl = nil
		}
	}

	b.ready.Store(true)
	runErr := b.runner.Run(ctx)
	b.ready.Store(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if ctl != nil {
		if err := ctl.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping control socket", "error", err)
		}
	}
	if b.obs != nil {
		if err := b.obs.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	if runErr != nil {
		return oops.Wrapf(runErr, "run bridge")
	}
	logger.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when an error arrives, the channel closes or ctx ends.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
