// Package main is the formpilot API server entry point.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tinkerloft/formpilot/internal/client"
	"github.com/tinkerloft/formpilot/internal/config"
	"github.com/tinkerloft/formpilot/internal/knowledge"
	"github.com/tinkerloft/formpilot/internal/logging"
	"github.com/tinkerloft/formpilot/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to formpilot.yaml (default $FORMPILOT_CONFIG)")
	flag.Parse()

	logger := logging.New(os.Stderr, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL"))
	slog.SetDefault(logger)

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	cl, err := cfg.NewClassifier()
	if err != nil {
		logger.Error("Failed to build classifier", "error", err)
		os.Exit(1)
	}

	c, err := client.NewClient(client.Options{
		Address:   cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to connect to Temporal", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	knowledgePath := cfg.Knowledge.Path
	if knowledgePath == "" {
		knowledgePath = knowledge.DefaultPath()
	}

	s := server.New(c, server.Options{
		KnowledgePath: knowledgePath,
		Classifier:    cl,
		Gatherer:      prometheus.DefaultGatherer,
		SlackChannel:  cfg.Slack.Channel,
	})
	logger.Info("formpilot server listening", "addr", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, s); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
