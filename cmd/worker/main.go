// Package main provides the entry point for the decision-fitness worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/decision-fitness/internal/config"
	"github.com/thebtf/decision-fitness/internal/worker"
	"github.com/thebtf/decision-fitness/pkg/client"
)

var Version = "dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "healthcheck" {
		os.Exit(healthcheck())
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	log.Info().
		Str("version", Version).
		Msg("Starting decision-fitness worker")

	if err := config.EnsureAll(); err != nil {
		log.Warn().Err(err).Msg("Could not create data directory")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	svc, err := worker.NewService(Version, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create service")
	}

	if err := svc.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start service")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := svc.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Shutdown error")
	}

	log.Info().Msg("Worker shutdown complete")
}

// healthcheck probes a worker on the configured port, for container
// health checks. It exits non-zero unless the worker reports ready.
func healthcheck() int {
	c := client.ForPort(config.GetWorkerPort())
	if !c.Healthy(context.Background()) {
		return 1
	}
	if v, err := c.Version(context.Background()); err == nil && !client.VersionsCompatible(v, Version) {
		log.Warn().Str("running", v).Str("expected", Version).Msg("Worker version mismatch")
	}
	return 0
}
