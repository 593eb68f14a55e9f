package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"go-offline-cache/internal/auth"
	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/notify"
	"go-offline-cache/internal/offline"
	"go-offline-cache/internal/strategy"
)

// Server is the offline cache HTTP front end
type Server struct {
	registration *offline.Registration
	updater      *offline.Updater
	storage      interfaces.CacheStorage
	hub          *notify.Hub
	origin       *url.URL
	allowlist    *strategy.HostAllowlist
	serverCfg    config.ServerConfig
	pushSecret   string
	maxBodyBytes int64
	logger       *zap.Logger

	mu      sync.Mutex
	servers []*http.Server
}

// NewServer creates a new offline cache HTTP server
func NewServer(registration *offline.Registration, updater *offline.Updater, storage interfaces.CacheStorage, hub *notify.Hub, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	origin, err := url.Parse(cfg.Site.Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid site origin: %w", err)
	}
	allowlist, err := strategy.NewHostAllowlist(origin, cfg.Manifest, cfg.Site.AllowedHosts)
	if err != nil {
		return nil, err
	}
	return &Server{
		registration: registration,
		updater:      updater,
		storage:      storage,
		hub:          hub,
		origin:       origin,
		allowlist:    allowlist,
		serverCfg:    cfg.Server,
		pushSecret:   cfg.Push.JWTSecret,
		maxBodyBytes: cfg.Fetch.MaxBodyBytes,
		logger:       logger,
	}, nil
}

// Start starts the HTTP server on a TCP address
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("Starting offline cache HTTP server", zap.String("addr", listener.Addr().String()))
	return s.serve(listener)
}

// StartUnixSocket starts the HTTP server on a Unix socket
func (s *Server) StartUnixSocket(socketPath string) error {
	// Remove existing socket file
	if err := os.RemoveAll(socketPath); err != nil {
		s.logger.Warn("Failed to remove existing socket file", zap.String("path", socketPath), zap.Error(err))
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return err
	}

	// Set socket permissions (readable/writable by owner and group)
	if err := os.Chmod(socketPath, 0660); err != nil {
		s.logger.Warn("Failed to set socket permissions", zap.String("path", socketPath), zap.Error(err))
	}

	s.logger.Info("Starting offline cache HTTP server on Unix socket", zap.String("socket_path", socketPath))
	return s.serve(listener)
}

func (s *Server) serve(listener net.Listener) error {
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.serverCfg.ReadTimeout,
		WriteTimeout: s.serverCfg.WriteTimeout,
		IdleTimeout:  s.serverCfg.IdleTimeout,
	}

	s.mu.Lock()
	s.servers = append(s.servers, server)
	s.mu.Unlock()

	err := server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully stops every listener
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping offline cache HTTP server")

	s.mu.Lock()
	servers := s.servers
	s.servers = nil
	s.mu.Unlock()

	var errs []error
	for _, server := range servers {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handler returns the root handler. Absolute-form (forward proxy) requests
// always go to the proxy, which only reaches allowed hosts; everything else
// is routed.
func (s *Server) Handler() http.Handler {
	router := s.createRouter()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.IsAbs() && r.URL.Host != "" {
			s.handleProxy(w, r)
			return
		}
		router.ServeHTTP(w, r)
	})
}

// createRouter creates and configures the HTTP router
func (s *Server) createRouter() *mux.Router {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Control endpoints
	control := router.PathPrefix("/_offline").Subrouter()
	control.HandleFunc("/status", s.handleStatus).Methods("GET")
	control.HandleFunc("/namespaces", s.handleNamespaces).Methods("GET")
	control.HandleFunc("/update", s.handleUpdate).Methods("POST")
	control.HandleFunc("/sync", s.handleSync).Methods("POST")
	control.Handle("/push", auth.RequireScope(s.pushSecret, auth.PushScope, http.HandlerFunc(s.handlePush))).Methods("POST")
	control.HandleFunc("/events", s.handleEvents).Methods("GET")

	// Everything else is a page request
	router.PathPrefix("/").HandlerFunc(s.handleProxy)

	return router
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeResponse(w, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().UTC(),
	})
}

// allowedTarget reports whether the proxy may fetch rawURL
func (s *Server) allowedTarget(rawURL string) bool {
	if s.allowlist.Allowed(rawURL) {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return s.registration.PrecachesHost(u.Hostname())
}

// readBody reads a bounded request body
func (s *Server) readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	reader := io.Reader(r.Body)
	if s.maxBodyBytes > 0 {
		reader = io.LimitReader(r.Body, s.maxBodyBytes)
	}
	return io.ReadAll(reader)
}

// parseRequest parses JSON request body
func (s *Server) parseRequest(r *http.Request, v interface{}) error {
	body, err := s.readBody(r)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// writeResponse writes JSON response
func (s *Server) writeResponse(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to write response", zap.Error(err))
	}
}

// writeErrorResponse writes error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Error("Failed to write error response", zap.Error(err))
	}
}
