package commands

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/db"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/graphstore"
	"github.com/archbeaver/beaver/logger"
	"github.com/archbeaver/beaver/service"
	"github.com/archbeaver/beaver/storage"
)

// ConfigFile is set by the global --config flag. Empty means the normal cascade.
var ConfigFile string

// LoadConfig loads configuration from --config or the file cascade
func LoadConfig() (*config.Config, error) {
	if ConfigFile != "" {
		return config.LoadFromFile(ConfigFile)
	}
	return config.Load()
}

// SetupLogging initializes the global logger from -v flags and log.json
func SetupLogging(cmd *cobra.Command) error {
	verbosity, _ := cmd.Flags().GetCount("verbose")

	jsonOutput := false
	if cfg, err := LoadConfig(); err == nil {
		jsonOutput = cfg.Log.JSON
	}
	if err := logger.InitializeWithVerbosity(jsonOutput, verbosity); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	return nil
}

// backend is the server-side stack: relational store, graph store and service
type backend struct {
	db    *db.DB
	graph graphstore.Store
	svc   *service.Service
	log   *zap.SugaredLogger
}

func openBackend(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*backend, error) {
	conn, err := db.OpenWithMigrations(ctx, cfg.Database, log.Named("db"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	gs, err := graphstore.Open(ctx, cfg.Graph, log.Named("graphstore"))
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to open graph store")
	}

	backendName := cfg.Graph.Backend
	if backendName == "" {
		backendName = config.GraphBackendMemory
	}
	svc := service.New(storage.New(conn, log.Named("storage")), gs, log, service.WithBackendName(backendName))
	return &backend{db: conn, graph: gs, svc: svc, log: log}, nil
}

func (b *backend) Close(ctx context.Context) {
	if err := b.svc.Close(ctx); err != nil {
		b.log.Warnw("Failed to close graph store", logger.FieldError, err)
	}
	if err := b.db.Close(); err != nil {
		b.log.Warnw("Failed to close database", logger.FieldError, err)
	}
}
