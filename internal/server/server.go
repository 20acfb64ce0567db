// Package server provides the HTTP API surface for the hub.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/tickertronix/hub/internal/domain"
	"github.com/tickertronix/hub/internal/scheduler"
	"github.com/tickertronix/hub/internal/store"
)

// Config holds server configuration.
type Config struct {
	Log       zerolog.Logger
	Store     *store.Store
	Scheduler *scheduler.Scheduler
	Port      int
	BindHost  string
}

// Server is the hub's HTTP API.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	log       zerolog.Logger
	store     *store.Store
	scheduler *scheduler.Scheduler
	hub       *pushHub
}

// New builds a Server with routes and middleware wired, ready to Start.
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		store:     cfg.Store,
		scheduler: cfg.Scheduler,
		hub:       newPushHub(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.BindHost, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(middleware.Compress(5))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Get("/prices", s.handleListPrices)
	s.router.Get("/prices/{class}", s.handleListPrices)
	s.router.Get("/prices/{class}/{symbol}", s.handleGetPrice)

	s.router.Get("/status", s.handleStatus)
	s.router.Get("/assets", s.handleListAssets)
	s.router.Post("/assets", s.handleAddAsset)
	s.router.Delete("/assets/{class}/{symbol}", s.handleRemoveAsset)

	s.router.Post("/refresh", s.handleRefresh)

	s.router.Get("/device/{id}/settings", s.handleGetDeviceSettings)
	s.router.Post("/device/{id}/settings", s.handlePutDeviceSettings)
	s.router.Post("/device/{id}/heartbeat", s.handleHeartbeat)
	s.router.Get("/devices", s.handleListDevices)

	s.router.Get("/credentials/status", s.handleCredentialsStatus)
	s.router.Put("/credentials/{provider}", s.handlePutCredential)

	s.router.Get("/ws/prices", s.handleWebSocketPrices)
}

// Start begins serving. It blocks until the listener stops (on Shutdown
// or an unrecoverable error).
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server, letting in-flight handlers finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	s.hub.closeAll()
	return s.server.Shutdown(ctx)
}

// BroadcastPriceUpdate pushes one frame per changed row to connected
// /ws/prices clients. Called by the scheduler after a tick that persisted
// at least one update.
func (s *Server) BroadcastPriceUpdate(updates []domain.PriceUpdate) {
	for _, u := range updates {
		s.hub.broadcast(priceUpdateFrame(u))
	}
}

// BroadcastSettingsUpdate pushes a {settings_updated_at} frame to connected
// /ws/prices clients. Called after a device's settings watermark bumps.
func (s *Server) BroadcastSettingsUpdate(updatedAt time.Time) {
	s.hub.broadcast(settingsFrame(updatedAt))
}
