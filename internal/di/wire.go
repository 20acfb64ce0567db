// Package di wires the hub's dependencies: one database, one store, the
// two upstream adapters, the scheduler, and the HTTP server.
package di

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/tickertronix/hub/internal/clients/equities"
	"github.com/tickertronix/hub/internal/clients/forex"
	"github.com/tickertronix/hub/internal/config"
	"github.com/tickertronix/hub/internal/database"
	"github.com/tickertronix/hub/internal/scheduler"
	"github.com/tickertronix/hub/internal/server"
	"github.com/tickertronix/hub/internal/store"
)

// Container holds every long-lived dependency the process needs, built
// once by Wire and handed to main for its start/stop sequence.
type Container struct {
	DB        *database.DB
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Server    *server.Server

	warmCachePath string
}

// Wire initializes the database, store, upstream adapters, scheduler, and
// server, in that order, closing anything already open if a later step
// fails. It also loads the store's on-disk warm cache (if one exists) and
// applies any credentials found in the store over the ones loaded from
// the environment.
func Wire(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{Path: filepath.Join(cfg.DataDir, "hub.db")})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	st := store.New(db, log)

	warmCachePath := filepath.Join(cfg.DataDir, "warmcache.msgpack")
	if err := st.LoadWarmCache(warmCachePath); err != nil {
		log.Warn().Err(err).Msg("failed to load warm cache, starting cold")
	}

	if err := cfg.UpdateFromStore(st); err != nil {
		log.Warn().Err(err).Msg("failed to apply stored credentials, using environment values")
	}

	equitiesClient := equities.New(equities.Config{
		BaseURL: cfg.EquitiesBaseURL,
		APIKey:  cfg.EquitiesAPIKey,
		Timeout: time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second,
	}, log)
	equitiesAdapter := equities.NewAdapter(equitiesClient, equities.AdapterConfig{
		InterRequestDelay: time.Duration(cfg.InterRequestDelayMillis) * time.Millisecond,
	}, log)

	forexClient := forex.New(forex.Config{
		BaseURL: cfg.ForexBaseURL,
		APIKey:  cfg.ForexAPIKey,
		Timeout: time.Duration(cfg.UpstreamTimeoutSeconds) * time.Second,
	}, log)
	forexAdapter := forex.NewAdapter(forexClient, forex.AdapterConfig{
		BatchSize:     cfg.ForexBatchSize,
		BatchDelay:    time.Duration(cfg.ForexBatchDelaySeconds) * time.Second,
		CreditsPerMin: cfg.ForexCreditsPerMinute,
		CreditsPerDay: cfg.ForexCreditsPerDay,
	}, log)

	sched := scheduler.New(st, equitiesAdapter, forexAdapter, scheduler.Config{
		GeneralInterval: time.Duration(cfg.GeneralIntervalSeconds) * time.Second,
		ForexInterval:   time.Duration(cfg.ForexIntervalSeconds) * time.Second,
	}, log)

	srv := server.New(server.Config{
		Log:       log,
		Store:     st,
		Scheduler: sched,
		Port:      cfg.Port,
		BindHost:  cfg.BindHost,
	})
	sched.SetOnUpdate(srv.BroadcastPriceUpdate)

	return &Container{
		DB:            db,
		Store:         st,
		Scheduler:     sched,
		Server:        srv,
		warmCachePath: warmCachePath,
	}, nil
}

// Shutdown saves the store's warm cache and closes the database, and
// returns any error from the warm-cache write — the database is closed
// regardless. The scheduler is stopped by the caller beforehand.
func (c *Container) Shutdown() error {
	saveErr := c.Store.SaveWarmCache(c.warmCachePath)
	closeErr := c.DB.Close()
	if saveErr != nil {
		return fmt.Errorf("failed to save warm cache: %w", saveErr)
	}
	return closeErr
}
