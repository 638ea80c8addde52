// Package server provides the HTTP server that serves the document and its
// live-reload event stream.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/livedoc/livedoc/internal/event"
	"github.com/livedoc/livedoc/internal/logging"
	"github.com/livedoc/livedoc/internal/watcher"
)

// Config holds server configuration.
type Config struct {
	Hostname     string
	Port         int
	Document     string
	EnableCORS   bool
	Heartbeat    time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Hostname:     "127.0.0.1",
		Port:         8999,
		EnableCORS:   false,
		Heartbeat:    SSEHeartbeatInterval,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // No write timeout for SSE
	}
}

// WatchStatus reports on the running document watcher.
type WatchStatus interface {
	Stats() watcher.Stats
}

// Server is the HTTP server.
type Server struct {
	config  *Config
	router  *chi.Mux
	httpSrv *http.Server
	hub     *event.Hub
	watch   WatchStatus

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new Server. watch is nil when live reload is disabled; the
// event stream then tells clients that no updates will arrive instead of
// leaving them waiting.
func New(cfg *Config, hub *event.Hub, watch WatchStatus) *Server {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = SSEHeartbeatInterval
	}

	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		hub:    hub,
		watch:  watch,
		stopCh: make(chan struct{}),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures middleware for the server.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)

	// Viewers embedded in other pages need CORS for /listen
	if s.config.EnableCORS {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Cache-Control", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}
}

// requestLogger logs each request through the structured logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			logging.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("requestID", middleware.GetReqID(r.Context())).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Hostname, fmt.Sprint(s.config.Port))
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.httpSrv = s.newHTTPServer()
	return s.httpSrv.ListenAndServe()
}

// Serve serves on an existing listener and blocks until the server stops.
func (s *Server) Serve(l net.Listener) error {
	s.httpSrv = s.newHTTPServer()
	return s.httpSrv.Serve(l)
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
}

// Shutdown gracefully shuts down the server. The hub is closed first so open
// event streams end instead of holding the shutdown open.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.hub.Close(); err != nil {
		logging.Warn().Err(err).Msg("event hub close error")
	}
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Stopped is closed once a client asks the server to stop via POST /stop.
func (s *Server) Stopped() <-chan struct{} {
	return s.stopCh
}

// requestStop signals Stopped. It is safe to call more than once.
func (s *Server) requestStop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}
