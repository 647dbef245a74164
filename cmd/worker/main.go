// Package main is the worker entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack"
	temporalactivity "go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/tinkerloft/formpilot/internal/activity"
	"github.com/tinkerloft/formpilot/internal/app"
	"github.com/tinkerloft/formpilot/internal/config"
	"github.com/tinkerloft/formpilot/internal/logging"
	"github.com/tinkerloft/formpilot/internal/metrics"
	"github.com/tinkerloft/formpilot/internal/notify"
	"github.com/tinkerloft/formpilot/internal/scheduler"
	"github.com/tinkerloft/formpilot/internal/session"
	"github.com/tinkerloft/formpilot/internal/workflow"
)

func main() {
	configPath := flag.String("config", "", "Path to formpilot.yaml (default $FORMPILOT_CONFIG)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Address for the Prometheus endpoint (empty to disable)")
	flag.Parse()

	logger := logging.New(os.Stderr, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fatal(logger, "Failed to load configuration", err)
	}

	// Validate configuration at startup
	configMode := activity.ConfigModeWarn
	if os.Getenv("REQUIRE_CONFIG") == "true" {
		configMode = activity.ConfigModeRequire
	}
	features := activity.Features{Hints: cfg.Hint.Enabled, Slack: cfg.Slack.Channel != ""}
	if err := activity.CheckConfig(configMode, features, logger); err != nil {
		fatal(logger, "Configuration error", err)
	}

	m, err := metrics.Register(prometheus.DefaultRegisterer)
	if err != nil {
		fatal(logger, "Failed to register metrics", err)
	}

	rt, err := app.Build(cfg, app.Options{Logger: logger, Metrics: m})
	if err != nil {
		fatal(logger, "Failed to build engine", err)
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Error("Failed to flush knowledge", "error", err)
		}
	}()

	var poster notify.Poster
	if token := os.Getenv("SLACK_BOT_TOKEN"); token != "" {
		poster = slack.New(token)
	}
	var actOpts []activity.Option
	if dir := cfg.Knowledge.MergeDir; dir != "" {
		// Each session learns into its own snapshot; the merge job folds
		// snapshots into the shared file.
		actOpts = append(actOpts, activity.WithSessionDeps(func(id string) (session.Deps, error) {
			srt, err := rt.SessionRuntime(dir, id)
			if err != nil {
				return session.Deps{}, err
			}
			return srt.Deps(nil, nil), nil
		}))
		logger.Info("Sessions write to per-session snapshots", "dir", dir)
	}
	sessionActivities, err := activity.NewSessionActivities(rt.Deps(nil, nil), poster, actOpts...)
	if err != nil {
		fatal(logger, "Failed to create activities", err)
	}

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logging.NewSlogAdapter(logger),
	})
	if err != nil {
		fatal(logger, "Failed to connect to Temporal", err)
	}
	defer c.Close()

	logger.Info("Connected to Temporal", "address", cfg.Temporal.Address, "task_queue", cfg.Temporal.TaskQueue)

	// One activity at a time keeps a single writer on the knowledge file.
	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: 1,
		Interceptors:                       []interceptor.WorkerInterceptor{metrics.NewInterceptor(m)},
	})

	w.RegisterWorkflow(workflow.FormSession)

	// Register activities with explicit names to match workflow constants
	w.RegisterActivityWithOptions(sessionActivities.AttemptQuestion, temporalactivity.RegisterOptions{Name: activity.ActivityAttemptQuestion})
	w.RegisterActivityWithOptions(sessionActivities.NotifyHuman, temporalactivity.RegisterOptions{Name: activity.ActivityNotifyHuman})
	w.RegisterActivityWithOptions(sessionActivities.ResolveQuestion, temporalactivity.RegisterOptions{Name: activity.ActivityResolveQuestion})
	w.RegisterActivityWithOptions(sessionActivities.MergeKnowledge, temporalactivity.RegisterOptions{Name: activity.ActivityMergeKnowledge})

	if cfg.Knowledge.MergeDir != "" && cfg.Knowledge.MergeSchedule != "" {
		merge := func(ctx context.Context, dir string) (int, error) {
			return sessionActivities.MergeKnowledge(ctx, activity.MergeKnowledgeInput{Dir: dir})
		}
		sched, err := scheduler.New(cfg.Knowledge.MergeSchedule, cfg.Knowledge.MergeDir, merge, logger)
		if err != nil {
			fatal(logger, "Failed to schedule knowledge merge", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: *metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer srv.Close()
	}

	logger.Info("Worker started. Press Ctrl+C to stop.")

	// Run worker - Temporal's InterruptCh handles graceful shutdown
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Error("Worker failed", "error", err)
		return
	}

	logger.Info("Worker stopped")
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
