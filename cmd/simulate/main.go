package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/barnes-hut-sim/internal/config"
	"github.com/onnwee/barnes-hut-sim/internal/errorreporting"
	"github.com/onnwee/barnes-hut-sim/internal/logger"
	"github.com/onnwee/barnes-hut-sim/internal/server"
	"github.com/onnwee/barnes-hut-sim/internal/tracing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (falling back to system env)")
	}

	os.Exit(run())
}

func run() int {
	cfg := config.Load()

	logger.Init(cfg.LogLevel)
	logger.Info("Initializing simulation",
		"version", cfg.ServiceVersion,
		"scenario", cfg.Scenario,
		"bodies", cfg.Bodies,
		"seed", cfg.Seed,
	)

	if err := errorreporting.Init(errorreporting.Options{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     cfg.SentryRelease,
	}); err != nil {
		logger.Warn("Failed to initialize error reporting", "error", err)
	} else if errorreporting.IsSentryEnabled() {
		logger.Info("Error reporting initialized", "environment", cfg.SentryEnvironment)
		defer errorreporting.Flush(2 * time.Second)
	}

	shutdownTracing, err := tracing.Init("barnes-hut-simulate", tracing.Options{
		Enabled:    cfg.OTELEnabled,
		Endpoint:   cfg.OTELEndpoint,
		SampleRate: cfg.OTELSampleRate,
		Version:    cfg.ServiceVersion,
	})
	if err != nil {
		logger.Warn("Failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Received shutdown signal, stopping after the current step")
		cancel()
	}()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to set up simulation", "error", err)
		errorreporting.CaptureError(err)
		return 1
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("Failed to release resources", "error", err)
		}
	}()

	if err := srv.RunSimulation(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return 1
	}
	return 0
}
