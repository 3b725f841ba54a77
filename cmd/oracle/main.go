// Command oracle runs the outreach-intelligence pipeline server.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oracle/pkg/config"
	"oracle/pkg/eventlog"
	"oracle/pkg/extract"
	"oracle/pkg/llm"
	"oracle/pkg/logx"
	"oracle/pkg/metrics"
	"oracle/pkg/pipeline"
	"oracle/pkg/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env and defaults apply)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *debug {
		logx.SetDebug(true)
	}
	logger := logx.NewLogger("main")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Error("config: %v", err)
		os.Exit(1)
	}

	llmClient, err := llm.NewClient(cfg.Provider)
	if err != nil {
		logger.Error("llm client: %v", err)
		os.Exit(1)
	}

	executor := pipeline.NewExecutor(
		llmClient,
		cfg.Pipeline.Temperature,
		cfg.Pipeline.MaxTokens,
		time.Duration(cfg.Pipeline.StallTimeoutSec)*time.Second,
	)
	orchestrator := pipeline.NewOrchestrator(executor)

	var events *eventlog.Writer
	if !cfg.EventLog.Disabled {
		events, err = eventlog.NewWriter(cfg.EventLog.Dir, cfg.EventLog.RotationHours)
		if err != nil {
			logger.Error("event log: %v", err)
			os.Exit(1)
		}
		defer events.Close()
	}

	srv := server.NewServer(
		orchestrator,
		extract.PlainText{},
		metrics.NewPrometheusRecorder(),
		events,
		cfg.Provider.Model,
	)

	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening on %s (provider %s, model %s)", cfg.ListenAddr(), cfg.Provider.Name, cfg.Provider.Model)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown: %v", err)
	}
}
