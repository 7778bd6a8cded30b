// Package server provides the HTTP status server for joythm.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/ayusman/joythm/internal/device"
	"github.com/ayusman/joythm/internal/server/api"
	"github.com/ayusman/joythm/internal/store"
)

// Source provides the live state served by the status endpoints.
type Source interface {
	Devices() []device.Snapshot
	Scanning() bool
}

// Config holds the server configuration.
type Config struct {
	Source Source
	Store  *store.Store
	Logger *log.Logger
}

// Server represents the HTTP status server.
type Server struct {
	config Config
	logger *log.Logger
	mux    *http.ServeMux
	stream *StreamHandler
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		config: config,
		logger: logger,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Source != nil {
		s.mux.HandleFunc("/api/devices", s.handleDevices)
		s.stream = NewStreamHandler(s.config.Source, s.logger)
		s.mux.Handle("/api/stream", s.stream)
	}

	if s.config.Store != nil {
		settings := api.NewSettingsHandler(s.config.Store)
		s.mux.Handle("/api/settings", settings)
		s.mux.Handle("/api/settings/", settings)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.start).String(),
	}
	if s.config.Source != nil {
		response["scanning"] = s.config.Source.Scanning()
		response["devices"] = len(s.config.Source.Devices())
	}

	writeJSON(w, response)
}

// handleDevices handles GET requests to /api/devices.
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	devices := s.config.Source.Devices()
	if devices == nil {
		devices = []device.Snapshot{}
	}
	writeJSON(w, map[string]interface{}{"devices": devices})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	defer s.Close()

	s.logger.Printf("Status server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the stream broadcaster.
func (s *Server) Close() {
	if s.stream != nil {
		s.stream.Close()
	}
}
