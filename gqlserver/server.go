// Package gqlserver serves the Beaver GraphQL API over HTTP, with a
// playground, a websocket change feed, prometheus metrics and a health endpoint.
package gqlserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/99designs/gqlgen/graphql/playground"
	"go.uber.org/zap"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/metrics"
	"github.com/archbeaver/beaver/schema"
	"github.com/archbeaver/beaver/service"
)

// GraphQLPath is where the API is mounted
const GraphQLPath = "/graphql"

// Server manages the HTTP server for the GraphQL endpoint
type Server struct {
	config     config.ServerConfig
	executor   *Executor
	hub        *Hub
	registry   *metrics.Registry
	ping       func(context.Context) error
	started    time.Time
	logger     *zap.SugaredLogger
	httpServer *http.Server
	mux        *http.ServeMux

	// Lifecycle
	running  bool
	mu       sync.RWMutex
	stopChan chan struct{}
	stopOnce sync.Once
}

// New wires the executor, change feed and routes for svc. Change events from
// svc are published to the websocket hub.
func New(cfg config.ServerConfig, svc *service.Service, reg *metrics.Registry, log *zap.SugaredLogger) (*Server, error) {
	if svc == nil {
		return nil, errors.New("service is required")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if reg == nil {
		reg = metrics.NewRegistry()
	}
	sch, err := schema.Load()
	if err != nil {
		return nil, err
	}

	log = log.Named("gqlserver")
	s := &Server{
		config:   cfg,
		executor: NewExecutor(sch, NewResolvers(svc), log),
		registry: reg,
		ping:     svc.Ping,
		started:  time.Now(),
		logger:   log,
		mux:      http.NewServeMux(),
		stopChan: make(chan struct{}),
	}
	s.executor.AroundResponses(s.observeResponse)
	s.hub = NewHub(s.checkOrigin, reg.Server, log)
	svc.SetPublisher(s.hub)
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	s.mux.HandleFunc(GraphQLPath, s.handleGraphQL)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", s.registry.Handler())
	s.mux.Handle("/ws", s.hub)
	if s.config.Playground {
		s.mux.Handle("GET /{$}", playground.Handler("Beaver GraphQL", GraphQLPath))
		s.logger.Infow("GraphQL Playground enabled", "path", "/")
	}

	port := s.config.Port
	if port == 0 {
		port = config.DefaultServerPort
	}
	timeout := s.config.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
		IdleTimeout:  60 * time.Second,
	}
}

// Handler returns the routed handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(s.mux)
}

// Executor exposes the GraphQL executor
func (s *Server) Executor() *Executor {
	return s.executor
}

// Hub exposes the change feed
func (s *Server) Hub() *Hub {
	return s.hub
}

// Addr is the configured listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until ctx is cancelled or Stop is called. ready is closed
// right before the listener starts.
func (s *Server) Start(ctx context.Context, ready chan<- struct{}) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	server := s.httpServer
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		s.logger.Infow("Server starting", "address", server.Addr)
		if ready != nil {
			close(ready)
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			select {
			case errChan <- err:
			case <-ctx.Done():
			case <-s.stopChan:
			}
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Infow("Server context cancelled, shutting down")
		return s.Stop(30 * time.Second)
	case <-s.stopChan:
		return nil
	case err := <-errChan:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return errors.Wrap(err, "HTTP server failed")
	}
}

// Stop gracefully shuts down the HTTP server and the change feed
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	server := s.httpServer
	s.mu.Unlock()

	s.logger.Infow("Server stopping")
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	s.hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Infow("Server stopped")
	return nil
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.ping(r.Context()); err != nil {
		s.logger.Warnw("Health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	system, err := collectSystemStats(s.started)
	if err != nil {
		s.logger.Debugw("System stats unavailable", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"ws_clients": s.hub.Clients(),
		"system":     system,
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// corsMiddleware adds CORS headers for configured origins
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
