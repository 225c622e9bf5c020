package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flemzord/agentgate/internal/approval"
	"github.com/flemzord/agentgate/internal/config"
	"github.com/flemzord/agentgate/internal/executor"
	"github.com/flemzord/agentgate/internal/hook"
	"github.com/flemzord/agentgate/internal/policy"
	"github.com/flemzord/agentgate/internal/redact"
	"github.com/flemzord/agentgate/internal/sched"
	"github.com/flemzord/agentgate/internal/server"
	"github.com/flemzord/agentgate/internal/store"
	"github.com/flemzord/agentgate/internal/task"
	"github.com/flemzord/agentgate/internal/telemetry"
	"github.com/flemzord/agentgate/internal/tool"
	"github.com/flemzord/agentgate/internal/tool/builtin"
	"github.com/flemzord/agentgate/internal/trust"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := loadConfig(cfgPath)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

// gate bundles the wired components shared by the serve and mcp commands.
type gate struct {
	store     store.Store
	registry  *tool.Registry
	hooks     *hook.Pipeline
	policy    *policy.Policy
	trust     *trust.Tracker
	approvals *approval.Manager
	tasks     *task.Manager
	executor  *executor.Executor

	closers []func() error
}

// close releases resources in reverse acquisition order.
func (g *gate) close(logger *slog.Logger) {
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](); err != nil {
			logger.Error("shutdown: closing resource", "error", err)
		}
	}
}

// buildGate wires the store, policy, tools, hooks, and executor from config.
func buildGate(cfg *config.Config, logger *slog.Logger) (*gate, error) {
	g := &gate{}

	var st store.Store
	switch cfg.Store.Driver {
	case "sqlite":
		sq, err := store.OpenSQLite(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		g.closers = append(g.closers, sq.Close)
		st = sq
	default:
		st = store.NewMemoryStore()
	}

	pol, err := policy.New(cfg.Policy)
	if err != nil {
		return nil, err
	}

	g.registry = tool.NewRegistry()
	if err := g.registry.RegisterAll(builtin.Tools()); err != nil {
		return nil, err
	}

	g.hooks = hook.NewPipeline(logger)
	if cfg.Audit.Path != "" {
		f, err := os.OpenFile(cfg.Audit.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		g.closers = append(g.closers, f.Close)
		g.hooks.Register(hook.NewAuditHook(f).WithRedactor(redact.New()))
	}
	if cfg.Checkpoint.Enabled {
		g.hooks.Register(hook.NewCheckpointHook(cfg.Checkpoint.Root, hook.GitRunner{}, logger))
	}

	g.store = st
	g.policy = pol
	g.trust = trust.NewTracker(cfg.Policy.TrustAfterCount)
	g.approvals = approval.NewManager()
	g.tasks = task.NewManager(st, logger)
	g.executor = executor.New(executor.Deps{
		Provider:      executor.EchoProvider{},
		Registry:      g.registry,
		Hooks:         g.hooks,
		Policy:        g.policy,
		Trust:         g.trust,
		Approvals:     g.approvals,
		Tasks:         g.tasks,
		Logger:        logger,
		MaxIterations: cfg.Agent.MaxIterations,
	})

	return g, nil
}

// startRetention runs the terminal-task sweeper when a schedule is set.
// The returned stop function is nil when retention is disabled.
func startRetention(cfg *config.Config, g *gate, logger *slog.Logger) (func() error, error) {
	if cfg.Retention.Schedule == "" {
		return nil, nil
	}

	scheduler := sched.NewScheduler(logger)
	job := &sched.RetentionJob{
		Store:        g.store,
		MaxAge:       cfg.Retention.MaxAge,
		Logger:       logger,
		ScheduleExpr: cfg.Retention.Schedule,
	}
	if err := scheduler.RegisterJob(job); err != nil {
		return nil, err
	}
	if err := scheduler.Start(); err != nil {
		return nil, err
	}
	return func() error { return scheduler.Stop(context.Background()) }, nil
}

// runServe runs the gateway until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config) error {
	logger := newLogger()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: version,
			OTLPEndpoint:   cfg.Telemetry.Endpoint,
		})
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.Error("shutdown: flushing traces", "error", err)
			}
		}()
	}

	g, err := buildGate(cfg, logger)
	if err != nil {
		return err
	}
	defer g.close(logger)

	stopRetention, err := startRetention(cfg, g, logger)
	if err != nil {
		return err
	}
	if stopRetention != nil {
		defer func() {
			if err := stopRetention(); err != nil {
				logger.Error("shutdown: stopping scheduler", "error", err)
			}
		}()
	}

	srv := server.New(server.Config{
		Bind:            cfg.Server.Bind,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, server.Deps{
		Tasks:     g.tasks,
		Approvals: g.approvals,
		Executor:  g.executor,
		Registry:  g.registry,
		Logger:    logger,
		Name:      cfg.Agent.Name,
		Version:   version,
	})

	if err := srv.Start(); err != nil {
		return err
	}
	logger.Info("gateway started", "bind", cfg.Server.Bind)

	<-ctx.Done()
	logger.Info("shutting down")
	return srv.Stop(context.Background())
}
