package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/speedwagon-io/vitalwatch/internal/collector"
	"github.com/speedwagon-io/vitalwatch/internal/config"
	"github.com/speedwagon-io/vitalwatch/internal/health"
	"github.com/speedwagon-io/vitalwatch/internal/lib/logger/sl"
)

// Server exposes the views to the rendering layer: probes, JSON snapshots
// and websocket streams.
type Server struct {
	log      *slog.Logger
	cfg      *config.HTTPConfig
	manager  *collector.Manager
	health   *health.Registry
	upgrader websocket.Upgrader
	server   *http.Server
}

func NewServer(log *slog.Logger, cfg *config.HTTPConfig, manager *collector.Manager, registry *health.Registry) *Server {
	return &Server{
		log:     log,
		cfg:     cfg,
		manager: manager,
		health:  registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health.HandleHealth)
	r.Get("/ready", s.health.HandleReady)
	r.Get("/live", s.health.HandleLive)

	r.Route("/api", func(r chi.Router) {
		r.Get("/views/{view}", s.handleView)
		r.Post("/views/{view}/refresh", s.handleRefresh)
		r.Get("/summary", s.handleSummary)
		r.Get("/alerts", s.handleAlerts)
		r.Get("/cards", s.handleCards)
		r.Get("/patients/{id}", s.handlePatient)
	})

	r.Route("/ws", func(r chi.Router) {
		r.Get("/views/{view}", s.handleViewStream)
		r.Get("/patients/{id}", s.handlePatientStream)
	})

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}

	s.log.Info("starting http server", slog.String("address", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", sl.Err(err))
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
