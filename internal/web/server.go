// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the read-only report viewer API. It only reads
// from the report store; pipeline runs happen out of band.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pdiddy/paper-radar/pkg/types"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ReportReader is the store surface the server needs.
type ReportReader interface {
	Dates() ([]string, error)
	Load(date string) (*types.DailyReport, error)
	Latest() (*types.DailyReport, error)
}

// Server exposes stored reports over HTTP.
type Server struct {
	cfg   types.ServerConfig
	store ReportReader
	log   zerolog.Logger
	http  *http.Server
}

// New builds the server and its routes.
func New(cfg types.ServerConfig, store ReportReader, log zerolog.Logger) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		log:   log.With().Str("component", "web").Logger(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/dates", s.handleDates)
	r.Get("/api/report", s.handleReport)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// ListenAndServe blocks until the context is cancelled or the listener
// fails, then shuts down gracefully within the configured timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("serving reports")
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownTimeout := s.cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info().Msg("shutting down")
	return s.http.Shutdown(shutdownCtx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.store.Dates()
	if err != nil {
		s.log.Error().Err(err).Msg("listing dates")
		s.writeError(w, http.StatusInternalServerError, "listing report dates failed")
		return
	}
	if dates == nil {
		dates = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")

	var (
		report *types.DailyReport
		err    error
	)
	switch {
	case date == "":
		report, err = s.store.Latest()
	case !datePattern.MatchString(date):
		s.writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	default:
		report, err = s.store.Load(date)
	}

	if err != nil {
		s.log.Error().Str("date", date).Err(err).Msg("loading report")
		s.writeError(w, http.StatusInternalServerError, "loading report failed")
		return
	}
	if report == nil {
		s.writeError(w, http.StatusNotFound, "no report for that date")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}
