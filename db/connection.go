package db

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
)

// SQLiteBusyTimeoutMS is how long SQLite waits on a locked database
const SQLiteBusyTimeoutMS = 5000

// Dialect identifies the SQL flavour of a connection
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DB is an open relational store together with its dialect
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open opens a SQLite database at the specified path with optimized settings.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "path", path, "driver", SQLite)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// Enable WAL mode for concurrent reads during writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	// PRAGMAs are per connection; a single writer keeps them effective
	db.SetMaxOpenConns(1)

	if logger != nil {
		logger.Infow("Database opened successfully",
			"path", path,
			"wal_mode", true,
			"foreign_keys", true,
		)
	}

	return db, nil
}

// OpenPostgres opens a Postgres database through the pgx stdlib driver and pings it.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping postgres")
	}
	if logger != nil {
		logger.Infow("Database opened successfully", "driver", Postgres)
	}
	return db, nil
}

// OpenWithMigrations opens the configured database and applies pending migrations.
func OpenWithMigrations(ctx context.Context, cfg config.DatabaseConfig, logger *zap.SugaredLogger) (*DB, error) {
	var (
		raw     *sql.DB
		dialect Dialect
		err     error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		dialect = Postgres
		raw, err = OpenPostgres(ctx, cfg.DSN, logger)
	case config.DriverSQLite, "":
		dialect = SQLite
		raw, err = Open(cfg.Path, logger)
	default:
		return nil, errors.Newf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(raw, dialect, logger); err != nil {
		raw.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return &DB{DB: raw, Dialect: dialect}, nil
}
