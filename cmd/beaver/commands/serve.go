package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/archbeaver/beaver/config"
	"github.com/archbeaver/beaver/errors"
	"github.com/archbeaver/beaver/gqlserver"
	"github.com/archbeaver/beaver/logger"
	"github.com/archbeaver/beaver/metrics"
)

// ServeCmd starts the GraphQL server
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the Beaver GraphQL server",
	Long: `Start the Beaver GraphQL API.

Opens (and migrates) the relational store, rebuilds the graph store from it,
then serves /graphql, the playground, the /ws change feed, /metrics and /health.`,
	RunE: runServe,
}

var (
	servePort         int
	serveDBPath       string
	serveNoPlayground bool
	serveWatch        bool
	serveSkipResync   bool
)

func init() {
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "SQLite database path (overrides database.path)")
	ServeCmd.Flags().BoolVar(&serveNoPlayground, "no-playground", false, "Disable the GraphQL playground")
	ServeCmd.Flags().BoolVar(&serveWatch, "watch", true, "Reload log level when the project config file changes")
	ServeCmd.Flags().BoolVar(&serveSkipResync, "skip-resync", false, "Do not rebuild the graph store on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if serveDBPath != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = serveDBPath
	}
	if serveNoPlayground {
		cfg.Server.Playground = false
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	// the server logs at log.level unless -v was given
	if verbosity, _ := cmd.Flags().GetCount("verbose"); verbosity == 0 {
		logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	}
	log := logger.ComponentLogger("serve")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer b.Close(context.Background())

	if !serveSkipResync {
		stats, err := b.svc.Resync(ctx)
		if err != nil {
			// the API still works; only the graph view is stale
			log.Warnw("Graph resync failed", logger.FieldError, err)
		} else {
			log.Infow("Graph resynced",
				logger.FieldNodes, stats.Nodes,
				logger.FieldDurationMS, stats.Duration.Milliseconds(),
			)
		}
	}

	srv, err := gqlserver.New(cfg.Server, b.svc, metrics.NewRegistry(), logger.Logger)
	if err != nil {
		return errors.Wrap(err, "failed to create server")
	}

	if serveWatch {
		if path := configWatchPath(); path != "" {
			w, err := config.NewWatcher(path, log)
			if err != nil {
				log.Warnw("Config watcher disabled", logger.FieldPath, path, logger.FieldError, err)
			} else {
				w.OnReload(func(next *config.Config) error {
					logger.SetLevel(logger.ParseLevel(next.Log.Level))
					log.Infow("Log level reloaded", "level", next.Log.Level)
					return nil
				})
				w.Start()
				defer w.Close()
			}
		}
	}

	printServeBanner(cfg)

	ready := make(chan struct{})
	go func() {
		<-ready
		pterm.Success.Printf("Listening on http://localhost%s%s\n", srv.Addr(), gqlserver.GraphQLPath)
	}()

	if err := srv.Start(ctx, ready); err != nil {
		return errors.Wrap(err, "server failed")
	}
	pterm.Info.Println("Server stopped")
	return nil
}

func configWatchPath() string {
	if ConfigFile != "" {
		return ConfigFile
	}
	return config.FindProjectConfig()
}

func printServeBanner(cfg *config.Config) {
	location := cfg.Database.Path
	if cfg.Database.Driver == config.DriverPostgres {
		location = "postgres"
	}
	graphBackend := cfg.Graph.Backend
	if cfg.Graph.Backend == config.GraphBackendNeo4j {
		graphBackend += " (" + cfg.Graph.Neo4j.URI + ")"
	}

	pterm.DefaultSection.Println("Beaver")
	_ = pterm.DefaultTable.WithData(pterm.TableData{
		{"Database", cfg.Database.Driver, location},
		{"Graph", graphBackend, ""},
		{"Playground", boolLabel(cfg.Server.Playground), ""},
		{"Timeout", cfg.Server.Timeout().String(), ""},
	}).Render()
	pterm.Info.Printf("Started at %s. Press Ctrl+C to stop.\n", time.Now().Format(time.Kitchen))
}

func boolLabel(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
