// Package server exposes the study-notes pipeline over HTTP.
//
// Routes:
//
//	GET    /            upload page
//	POST   /upload      multipart field "file"; returns filename, text and result
//	GET    /history     all notes, newest first
//	DELETE /delete/{id} removes a note
//	GET    /healthz     database check
//	GET    /metrics     Prometheus metrics
//
// Artifacts are model output and are sanitized before they are returned.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"studynotes/internal/logger"
	"studynotes/internal/metrics"
	"studynotes/internal/pipeline"
	"studynotes/pkg/models"
)

// DefaultMaxUploadBytes caps request bodies on /upload.
const DefaultMaxUploadBytes = 16 << 20

// NoteStore is the part of the store the handlers use.
type NoteStore interface {
	List(ctx context.Context) ([]models.Note, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
}

// Config configures the HTTP server.
type Config struct {
	Addr           string
	UploadDir      string
	MaxUploadBytes int64
}

// Server handles uploads and history requests.
type Server struct {
	config   Config
	pipeline *pipeline.Pipeline
	store    NoteStore
	metrics  *metrics.Metrics
	policy   *bluemonday.Policy
	router   chi.Router
	log      zerolog.Logger
}

// New creates a server and its routes. metrics may be nil.
func New(config Config, p *pipeline.Pipeline, store NoteStore, m *metrics.Metrics) (*Server, error) {
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if config.UploadDir == "" {
		config.UploadDir = "uploads"
	}
	if err := os.MkdirAll(config.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	s := &Server{
		config:   config,
		pipeline: p,
		store:    store,
		metrics:  m,
		policy:   bluemonday.UGCPolicy(),
		log:      logger.WithComponent("server"),
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Get("/history", s.handleHistory)
	r.Delete("/delete/{id}", s.handleDelete)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.config.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
