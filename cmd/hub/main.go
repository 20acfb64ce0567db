// Package main is the entry point for the market-data hub.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tickertronix/hub/internal/config"
	"github.com/tickertronix/hub/internal/di"
	"github.com/tickertronix/hub/pkg/logger"
)

var (
	bindHost = flag.String("bind-host", "", "HTTP listen host (overrides HUB_BIND_HOST)")
	port     = flag.Int("port", 0, "HTTP listen port (overrides HUB_PORT)")
	logLevel = flag.String("log-level", "", "log level: debug, info, warn, error (overrides HUB_LOG_LEVEL)")
	dataDir  = flag.String("data-dir", "", "state directory for the SQLite file and warm cache (overrides HUB_DATA_DIR)")
	logDir   = flag.String("log-dir", "", "log directory, stored in config; logs are written to stdout only (overrides HUB_LOG_DIR)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := cfg.ApplyOverrides(config.Overrides{
		BindHost: *bindHost,
		Port:     *port,
		LogLevel: *logLevel,
		DataDir:  *dataDir,
		LogDir:   *logDir,
	}); err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("failed to apply CLI flag overrides")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: true})
	log.Info().Msg("starting hub")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire dependencies")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container.Scheduler.Start(ctx)
	log.Info().Msg("scheduler started")

	go func() {
		if err := container.Server.Start(); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()
	container.Scheduler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := container.Server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := container.Shutdown(); err != nil {
		log.Error().Err(err).Msg("failed to shut down cleanly")
	}

	log.Info().Msg("hub stopped")
}
