// Package testing holds fixtures shared by Beaver's package tests: a migrated
// SQLite database, a service on top of it and a running GraphQL endpoint.
package testing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/db"
	"github.com/archbeaver/beaver/gqlserver"
	"github.com/archbeaver/beaver/metrics"
	"github.com/archbeaver/beaver/service"
	"github.com/archbeaver/beaver/storage"
)

// DatabaseConfig returns a SQLite config pointing into a fresh temp dir
func DatabaseConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "beaver.db"),
	}
}

// CreateTestDB opens a migrated, seeded SQLite database in a temp dir.
// Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *db.DB {
	t.Helper()
	conn, err := db.OpenWithMigrations(context.Background(), DatabaseConfig(t), zaptest.NewLogger(t).Sugar())
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

// NewService returns a service over a fresh test database and an in-memory graph store
func NewService(t *testing.T, log *zap.SugaredLogger) *service.Service {
	t.Helper()
	if log == nil {
		log = zaptest.NewLogger(t).Sugar()
	}
	return service.New(storage.New(CreateTestDB(t), log), nil, log)
}

// Server is a GraphQL endpoint running on httptest
type Server struct {
	*httptest.Server
	Service  *service.Service
	Registry *metrics.Registry
	GraphQL  *gqlserver.Server
}

// Endpoint is the URL of the GraphQL route
func (s *Server) Endpoint() string {
	return s.URL + gqlserver.GraphQLPath
}

// NewServer starts a GraphQL server backed by a fresh test database.
// wrap, when non-nil, decorates the handler (e.g. to count requests).
func NewServer(t *testing.T, wrap func(http.Handler) http.Handler) *Server {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	svc := NewService(t, log)
	reg := metrics.NewRegistry()

	srv, err := gqlserver.New(config.ServerConfig{}, svc, reg, log)
	if err != nil {
		t.Fatalf("Failed to create GraphQL server: %v", err)
	}
	h := srv.Handler()
	if wrap != nil {
		h = wrap(h)
	}
	ts := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Hub().Close()
		ts.Close()
	})
	return &Server{Server: ts, Service: svc, Registry: reg, GraphQL: srv}
}
