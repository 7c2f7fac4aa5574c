// Package server provides the local HTTP status server for handtune.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/handtune/internal/app"
	"github.com/ayusman/handtune/internal/capture"
	"github.com/ayusman/handtune/internal/gesture"
	"github.com/ayusman/handtune/internal/server/api"
	"github.com/ayusman/handtune/internal/store"
)

// MaxCameraProbe bounds /api/cameras enumeration.
const MaxCameraProbe = 10

// Pipeline is the part of *app.App the server exposes.
type Pipeline interface {
	Status() app.Status
	Subscribe() (<-chan app.Status, func())
	Frame() ([]byte, uint64)
	SetEnabled(enabled bool)
}

var _ Pipeline = (*app.App)(nil)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	App       Pipeline
	Store     *store.Store
	Profile   gesture.Profile
	Metrics   http.Handler
	// ListCameras overrides device probing.
	ListCameras func() []int
	Logger      *zap.Logger
}

// Server represents the HTTP server for the handtune application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	logger *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.ListCameras == nil {
		config.ListCameras = func() []int { return capture.ListDevices(MaxCameraProbe) }
	}
	if config.Profile == "" {
		config.Profile = gesture.ProfileMediaKeys
	}
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		logger: config.Logger.Named("server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/cameras", s.handleCameras)
	s.mux.Handle("/api/manual", api.NewManualHandler(s.config.Profile))

	if s.config.Store != nil {
		history := api.NewHistoryHandler(s.config.Store)
		s.mux.Handle("/api/history", history)
		s.mux.Handle("/api/history/", history)
	}

	if s.config.App != nil {
		s.mux.HandleFunc("/api/status", s.handleStatus)
		s.mux.HandleFunc("/api/enabled", s.handleEnabled)
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.App))
		s.mux.Handle("/api/events", NewEventsHandler(s.config.App, s.logger))
	}

	if s.config.Metrics != nil {
		s.mux.Handle("/metrics", s.config.Metrics)
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
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

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	api.WriteJSON(w, http.StatusOK, s.config.App.Status())
}

type enabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleEnabled(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !sameOrigin(r) {
		api.WriteError(w, http.StatusForbidden, "cross-origin request refused")
		return
	}

	var req enabledRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		api.WriteError(w, http.StatusBadRequest, `expected {"enabled": true|false}`)
		return
	}
	s.config.App.SetEnabled(*req.Enabled)
	api.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": *req.Enabled})
}

func (s *Server) handleCameras(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	devices := s.config.ListCameras()
	if devices == nil {
		devices = []int{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("status server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// sameOrigin reports whether r was sent by a page served from this host.
// Requests without an Origin header come from non-browser clients and pass.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
