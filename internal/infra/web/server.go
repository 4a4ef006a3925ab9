package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"whatsapp-ai-assistant/internal/usecase"
)

type Server struct {
	enqueueUC *usecase.EnqueueUseCase
	statusUC  *usecase.JobStatusReader
	log       *zerolog.Logger
	srv       *http.Server
}

func NewServer(
	port int,
	enqueueUC *usecase.EnqueueUseCase,
	statusUC *usecase.JobStatusReader,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	s := &Server{enqueueUC: enqueueUC, statusUC: statusUC, log: &l}
	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/chat/enqueue", enqueueHandler(s.enqueueUC, s.log))
	r.Get("/chat/job/{jobID}", jobStatusHandler(s.statusUC, s.log))

	return r
}

// Start blocks until the listener closes.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
